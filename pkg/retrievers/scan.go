package retrievers

import (
	"context"
	"strings"

	"github.com/easyops/contextengine-go/pkg/engine"
)

// Document 扫描检索器中的一条文档
type Document struct {
	// ID 文档标识
	ID string
	// Text 文档文本
	Text string
	// Metadata 文档元数据（可选）
	Metadata map[string]interface{}
}

// ScanRetriever 内存扫描检索器。
//
// 对内存中的文档列表做大小写不敏感的子串匹配，
// 适合小语料和测试场景。匹配结果按文档加入顺序返回，
// 保证相同输入产生相同输出。
type ScanRetriever struct {
	documents []Document
}

// NewScanRetriever 创建扫描检索器
func NewScanRetriever(documents []Document) *ScanRetriever {
	return &ScanRetriever{documents: documents}
}

// Add 追加文档
func (r *ScanRetriever) Add(docs ...Document) {
	r.documents = append(r.documents, docs...)
}

// SupportsPagination 支持分页检索
func (r *ScanRetriever) SupportsPagination() bool {
	return true
}

// Retrieve 执行一次扫描检索
func (r *ScanRetriever) Retrieve(_ context.Context, req engine.RetrieverRequest) (*engine.Pack, error) {
	query := strings.ToLower(req.Query)

	var matched []Document
	for _, doc := range r.documents {
		if query == "" || strings.Contains(strings.ToLower(doc.Text), query) {
			matched = append(matched, doc)
		}
	}

	// 分页切片
	if req.Offset >= len(matched) {
		return engine.BuildPack(nil), nil
	}
	matched = matched[req.Offset:]
	if req.Limit > 0 && len(matched) > req.Limit {
		matched = matched[:req.Limit]
	}

	blocks := make([]engine.PackBlock, 0, len(matched))
	for _, doc := range matched {
		blocks = append(blocks, engine.PackBlock{
			EvidenceItemID: doc.ID,
			Text:           doc.Text,
			Metadata:       doc.Metadata,
		})
	}
	return engine.BuildPack(blocks), nil
}

// 编译时接口检查
var _ engine.Retriever = (*ScanRetriever)(nil)
var _ engine.PaginationSupporter = (*ScanRetriever)(nil)
