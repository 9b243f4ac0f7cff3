package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"candidate-search/internal/types"
)

const pdfExt = ".pdf"

// PDFTextExtractor PDF转文本
type PDFTextExtractor interface {
	ExtractFromFile(ctx context.Context, filePath string) (string, error)
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, error)
}

// FolderSource 本地目录中的PDF文件，不递归子目录
type FolderSource struct {
	dir       string
	extractor PDFTextExtractor
}

// NewFolderSource 创建本地目录来源
func NewFolderSource(dir string, extractor PDFTextExtractor) *FolderSource {
	return &FolderSource{dir: dir, extractor: extractor}
}

// Name 来源标识，用作导入锁的键
func (s *FolderSource) Name() string {
	if abs, err := filepath.Abs(s.dir); err == nil {
		return "folder:" + abs
	}
	return "folder:" + s.dir
}

// ListDocuments 按文件名排序返回目录下扩展名为 .pdf(不区分大小写)的文件
func (s *FolderSource) ListDocuments(ctx context.Context) ([]types.SourceDocument, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("读取文档目录 %s 失败: %w", s.dir, err)
	}

	docs := make([]types.SourceDocument, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), pdfExt) {
			continue
		}
		var size int64
		if info, infoErr := entry.Info(); infoErr == nil {
			size = info.Size()
		}
		docs = append(docs, types.SourceDocument{
			Name:     entry.Name(),
			Location: filepath.Join(s.dir, entry.Name()),
			Size:     size,
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// ExtractText 提取单个文档的全文
func (s *FolderSource) ExtractText(ctx context.Context, doc types.SourceDocument) (string, error) {
	return s.extractor.ExtractFromFile(ctx, doc.Location)
}
