package engine

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEstimator 定义 Token 估算接口。
//
// 估算必须是确定的（相同输入 → 相同输出）且单调的
// （更长的超串不会得到更小的估算值）。估算允许是近似值，
// 不要求与任何具体模型的分词器逐 Token 一致。
type TokenEstimator interface {
	// Estimate 返回给定文本的 Token 估算值。
	// 空文本返回 0，永不报错。
	Estimate(text string) int
}

// TiktokenEstimator 使用 tiktoken 实现精确的 Token 估算。
type TiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// TiktokenOption 配置 TiktokenEstimator。
type TiktokenOption func(*TiktokenEstimator)

// WithModel 设置 Token 编码使用的模型。
// 支持的模型：gpt-4、gpt-4o、gpt-3.5-turbo 等。
func WithModel(model string) TiktokenOption {
	return func(e *TiktokenEstimator) {
		e.model = model
	}
}

// NewTiktokenEstimator 创建新的 TiktokenEstimator。
// 默认使用 cl100k_base 编码（GPT-4、GPT-4o 等使用）。
func NewTiktokenEstimator(opts ...TiktokenOption) (*TiktokenEstimator, error) {
	e := &TiktokenEstimator{
		model: "gpt-4o", // 默认使用 GPT-4o
	}

	for _, opt := range opts {
		opt(e)
	}

	// 尝试获取模型对应的编码
	encoding, err := tiktoken.EncodingForModel(e.model)
	if err != nil {
		// 降级到 cl100k_base 编码
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	e.encoding = encoding
	return e, nil
}

// Estimate 返回给定文本的 Token 估算值。
func (e *TiktokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	if e.encoding == nil {
		return estimateTokens(text)
	}
	return len(e.encoding.Encode(text, nil, nil))
}

// CharEstimator 使用字符估算实现 Token 估算。
// 这是当 tiktoken 不可用时的降级方案。
type CharEstimator struct {
	// CharsPerToken 是每个 Token 的平均字符数。
	// 默认值为 4，这是英文文本的合理估计。
	CharsPerToken float64
}

// NewCharEstimator 创建新的 CharEstimator。
func NewCharEstimator() *CharEstimator {
	return &CharEstimator{
		CharsPerToken: 4.0,
	}
}

// Estimate 返回估算的 Token 数量。
func (e *CharEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	perToken := e.CharsPerToken
	if perToken <= 0 {
		perToken = 4.0
	}
	n := int(float64(len(text)) / perToken)
	if n == 0 {
		n = 1 // 非空文本至少 1 个 token
	}
	return n
}

// estimateTokens 提供简单的 Token 估算降级方案。
func estimateTokens(text string) int {
	// 粗略估算：英文 1 token ≈ 4 字符，
	// 但中文/日文字符通常每个 1-2 个 token
	charCount := len(text)
	wordCount := len(strings.Fields(text))

	// 使用混合方法：同时计算词数和字符数
	// 这对混合内容效果更好
	if wordCount == 0 {
		return charCount / 4
	}

	// 取字符估算和词估算的平均值
	charBasedTokens := charCount / 4
	wordBasedTokens := int(float64(wordCount) * 1.3) // 平均每词约 1.3 个 token

	return (charBasedTokens + wordBasedTokens) / 2
}

// DefaultTokenEstimator 返回一个 TokenEstimator，
// 优先使用 TiktokenEstimator，如果不可用则降级到 CharEstimator。
func DefaultTokenEstimator() TokenEstimator {
	estimator, err := NewTiktokenEstimator()
	if err != nil {
		return NewCharEstimator()
	}
	return estimator
}

// 编译时接口检查
var _ TokenEstimator = (*TiktokenEstimator)(nil)
var _ TokenEstimator = (*CharEstimator)(nil)
