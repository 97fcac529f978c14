// Package llm 提供 LLM 服务的统一接口
package llm

import (
	"context"

	"github.com/easyops/contextengine-go/pkg/core/message"
)

// Provider 定义 LLM 提供商接口
//
// 统一不同 LLM 服务的调用方式，供摘要压缩器等组件使用。
type Provider interface {
	// Generate 生成响应（非流式）
	//
	// 参数:
	//   - ctx: 上下文
	//   - req: 请求参数
	//
	// 返回:
	//   - Response: 响应结果
	//   - error: 调用错误
	Generate(ctx context.Context, req Request) (Response, error)

	// Name 返回提供商名称
	Name() string

	// Model 返回当前模型名称
	Model() string

	// Close 关闭客户端连接
	Close() error
}

// Request LLM 请求
type Request struct {
	// Messages 消息历史
	Messages []message.Message
	// Temperature 温度参数（可选）
	Temperature *float64
	// MaxTokens 最大输出 token（可选）
	MaxTokens *int
	// Stop 停止序列（可选）
	Stop []string
}

// Response LLM 响应
type Response struct {
	// ID 响应标识
	ID string `json:"id"`
	// Content 响应文本内容
	Content string `json:"content"`
	// TokenUsage Token 使用统计
	TokenUsage message.TokenUsage `json:"token_usage"`
	// FinishReason 结束原因
	// 值: "stop", "length", "content_filter"
	FinishReason string `json:"finish_reason"`
}
