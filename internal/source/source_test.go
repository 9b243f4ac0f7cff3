package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"candidate-search/internal/storage"
	"candidate-search/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	files map[string]string
	bytes map[string]string
}

func (s *stubExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	text, ok := s.files[filepath.Base(filePath)]
	if !ok {
		return "", errors.New("unreadable")
	}
	return text, nil
}

func (s *stubExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	return s.bytes[uri] + string(data), nil
}

func TestFolderSource_ListDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt", "c.pdf.bak"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))

	src := NewFolderSource(dir, &stubExtractor{})
	docs, err := src.ListDocuments(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "a.PDF", docs[0].Name)
	assert.Equal(t, "b.pdf", docs[1].Name)
	assert.Equal(t, filepath.Join(dir, "b.pdf"), docs[1].Location)
	assert.Equal(t, int64(1), docs[1].Size)
	assert.Contains(t, src.Name(), "folder:")
}

func TestFolderSource_EmptyAndMissing(t *testing.T) {
	docs, err := NewFolderSource(t.TempDir(), &stubExtractor{}).ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = NewFolderSource(filepath.Join(t.TempDir(), "nope"), &stubExtractor{}).ListDocuments(context.Background())
	require.Error(t, err)
}

func TestFolderSource_ExtractText(t *testing.T) {
	src := NewFolderSource("/docs", &stubExtractor{files: map[string]string{"jane.pdf": "Jane Doe"}})

	text, err := src.ExtractText(context.Background(), types.SourceDocument{Name: "jane.pdf", Location: "/docs/jane.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", text)
}

type stubObjectStore struct {
	objects []storage.ObjectInfo
	data    map[string][]byte
	listErr error
}

func (s *stubObjectStore) Bucket() string { return "resumes" }

func (s *stubObjectStore) ListObjects(ctx context.Context, prefix, ext string) ([]storage.ObjectInfo, error) {
	return s.objects, s.listErr
}

func (s *stubObjectStore) DownloadFile(ctx context.Context, objectName string) ([]byte, error) {
	data, ok := s.data[objectName]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func TestMinIOSource(t *testing.T) {
	store := &stubObjectStore{
		objects: []storage.ObjectInfo{{Key: "incoming/jane.pdf", Size: 4}},
		data:    map[string][]byte{"incoming/jane.pdf": []byte("body")},
	}
	src := NewMinIOSource(store, "incoming/", &stubExtractor{bytes: map[string]string{"incoming/jane.pdf": "text:"}})
	assert.Equal(t, "minio:resumes/incoming/", src.Name())

	docs, err := src.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "jane.pdf", docs[0].Name)

	text, err := src.ExtractText(context.Background(), docs[0])
	require.NoError(t, err)
	assert.Equal(t, "text:body", text)

	_, err = src.ExtractText(context.Background(), types.SourceDocument{Name: "x.pdf", Location: "missing"})
	require.Error(t, err)
	assert.Equal(t, types.KindTransport, types.KindOf(err))
}
