package engine

import (
	"context"
	"fmt"

	"github.com/easyops/contextengine-go/pkg/core/llm"
	"github.com/easyops/contextengine-go/pkg/core/message"
)

// CompactorSummarize 摘要压缩器的注册名称
const CompactorSummarize = "summarize"

// SummarizeCompactor 使用 LLM 摘要实现压缩。
// 摘要仍可能超出目标预算，超出部分由截断压缩器兜底。
type SummarizeCompactor struct {
	provider  llm.Provider
	estimator TokenEstimator
	fallback  *TruncateCompactor
}

// NewSummarizeCompactor 创建摘要压缩器
func NewSummarizeCompactor(provider llm.Provider, estimator TokenEstimator) *SummarizeCompactor {
	if estimator == nil {
		estimator = DefaultTokenEstimator()
	}
	return &SummarizeCompactor{
		provider:  provider,
		estimator: estimator,
		fallback:  NewTruncateCompactor(estimator),
	}
}

// Compact 将文本摘要压缩到目标 Token 预算内
func (c *SummarizeCompactor) Compact(ctx context.Context, text string, targetTokens int) (string, error) {
	if targetTokens <= 0 {
		return "", nil
	}
	if c.estimator.Estimate(text) <= targetTokens {
		return text, nil
	}

	prompt := fmt.Sprintf(
		"请将以下内容压缩为不超过 %d 个 token 的摘要，保留关键事实和结论，不要添加新信息：\n\n%s",
		targetTokens, text)

	maxTokens := targetTokens
	temperature := 0.0

	resp, err := c.provider.Generate(ctx, llm.Request{
		Messages:    []message.Message{message.NewUserMessage(prompt)},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		// 摘要失败时降级为截断
		return c.fallback.Compact(ctx, text, targetTokens)
	}

	summary := resp.Content
	if summary == "" {
		return c.fallback.Compact(ctx, text, targetTokens)
	}

	// 摘要仍超预算时截断兜底
	if c.estimator.Estimate(summary) > targetTokens {
		return c.fallback.Compact(ctx, summary, targetTokens)
	}

	return summary, nil
}

// 编译时接口检查
var _ Compactor = (*SummarizeCompactor)(nil)
