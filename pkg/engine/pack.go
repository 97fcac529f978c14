package engine

import "strings"

// PackBlock 证据包中的一个文本块
type PackBlock struct {
	// EvidenceItemID 证据条目标识
	EvidenceItemID string `json:"evidence_item_id"`
	// Text 块文本
	Text string `json:"text"`
	// Metadata 块级元数据（可选）
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Pack 检索器返回的证据包。
// 零个块的证据包是合法的（空证据），贡献空文本。
type Pack struct {
	// Text 所有块文本的拼接
	Text string `json:"text"`
	// EvidenceCount 证据条目数量
	EvidenceCount int `json:"evidence_count"`
	// Blocks 文本块列表
	Blocks []PackBlock `json:"blocks"`
}

// BuildPack 从文本块构建证据包，块之间以空行分隔。
func BuildPack(blocks []PackBlock) *Pack {
	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	return &Pack{
		Text:          strings.Join(texts, "\n\n"),
		EvidenceCount: len(blocks),
		Blocks:        blocks,
	}
}

// RetrieverRequest 单次检索调用的请求参数。
// 每次调用独立构造，调用后不再修改。
type RetrieverRequest struct {
	// Query 检索查询（模板变量已展开）
	Query string `json:"query"`
	// Offset 分页偏移
	Offset int `json:"offset"`
	// Limit 单页条数
	Limit int `json:"limit"`
	// BudgetTokens 本次调用分得的 Token 子预算
	BudgetTokens int `json:"budget_tokens"`
}
