package source

import (
	"context"
	"path"

	"candidate-search/internal/storage"
	"candidate-search/internal/types"
)

// ObjectStore MinIOSource 依赖的对象存储操作
type ObjectStore interface {
	Bucket() string
	ListObjects(ctx context.Context, prefix, ext string) ([]storage.ObjectInfo, error)
	DownloadFile(ctx context.Context, objectName string) ([]byte, error)
}

// MinIOSource 对象存储中某个前缀下的PDF文件
type MinIOSource struct {
	store     ObjectStore
	prefix    string
	extractor PDFTextExtractor
}

// NewMinIOSource 创建对象存储来源
func NewMinIOSource(store ObjectStore, prefix string, extractor PDFTextExtractor) *MinIOSource {
	return &MinIOSource{store: store, prefix: prefix, extractor: extractor}
}

// Name 来源标识
func (s *MinIOSource) Name() string {
	return "minio:" + s.store.Bucket() + "/" + s.prefix
}

// ListDocuments 列出前缀下的PDF对象，Name 取对象键的最后一段
func (s *MinIOSource) ListDocuments(ctx context.Context) ([]types.SourceDocument, error) {
	objects, err := s.store.ListObjects(ctx, s.prefix, pdfExt)
	if err != nil {
		return nil, err
	}
	docs := make([]types.SourceDocument, 0, len(objects))
	for _, obj := range objects {
		docs = append(docs, types.SourceDocument{
			Name:     path.Base(obj.Key),
			Location: obj.Key,
			Size:     obj.Size,
		})
	}
	return docs, nil
}

// ExtractText 下载对象后提取全文
func (s *MinIOSource) ExtractText(ctx context.Context, doc types.SourceDocument) (string, error) {
	data, err := s.store.DownloadFile(ctx, doc.Location)
	if err != nil {
		return "", types.NewTransportError(doc.Name, "download_object", err)
	}
	return s.extractor.ExtractTextFromBytes(ctx, data, doc.Location)
}
