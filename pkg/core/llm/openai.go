package llm

import (
	"context"
	"fmt"

	"github.com/easyops/contextengine-go/pkg/core/errors"
	"github.com/easyops/contextengine-go/pkg/core/message"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient OpenAI LLM 客户端
type OpenAIClient struct {
	client  *openai.Client
	options *Options
}

var _ Provider = (*OpenAIClient)(nil)

// NewOpenAI 创建 OpenAI 客户端
func NewOpenAI(opts ...Option) (*OpenAIClient, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.APIKey == "" {
		return nil, errors.ErrInvalidAPIKey
	}
	if options.Model == "" {
		options.Model = "gpt-4o"
	}

	config := openai.DefaultConfig(options.APIKey)
	if options.BaseURL != "" {
		config.BaseURL = options.BaseURL
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		options: options,
	}, nil
}

// Name 返回提供商名称
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Model 返回当前模型名称
func (c *OpenAIClient) Model() string {
	return c.options.Model
}

// Close 关闭客户端连接
func (c *OpenAIClient) Close() error {
	return nil
}

// Generate 生成响应（非流式）
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	// 构建 OpenAI 请求
	chatReq := c.buildChatRequest(req)

	// 执行请求（带重试）
	var resp openai.ChatCompletionResponse
	var err error

	err = retry(ctx, c.options.MaxRetries, c.options.RetryDelay, func() error {
		resp, err = c.client.CreateChatCompletion(ctx, chatReq)
		return mapOpenAIError(err)
	})

	if err != nil {
		return Response{}, err
	}

	return parseResponse(resp), nil
}

// buildChatRequest 构建 OpenAI 请求
func (c *OpenAIClient) buildChatRequest(req Request) openai.ChatCompletionRequest {
	chatReq := openai.ChatCompletionRequest{
		Model:    c.options.Model,
		Messages: convertMessages(req.Messages),
	}

	// 设置温度
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	} else {
		chatReq.Temperature = float32(c.options.Temperature)
	}

	// 设置最大 token
	if req.MaxTokens != nil {
		chatReq.MaxTokens = *req.MaxTokens
	} else {
		chatReq.MaxTokens = c.options.MaxTokens
	}

	// 设置停止序列
	if len(req.Stop) > 0 {
		chatReq.Stop = req.Stop
	}

	return chatReq
}

// convertMessages 转换消息格式
func convertMessages(msgs []message.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return result
}

// parseResponse 解析响应
func parseResponse(resp openai.ChatCompletionResponse) Response {
	if len(resp.Choices) == 0 {
		return Response{}
	}

	choice := resp.Choices[0]
	return Response{
		ID:           resp.ID,
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		TokenUsage: message.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

// mapOpenAIError 映射 OpenAI 错误到框架错误
func mapOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	// 检查是否是 OpenAI API 错误
	apiErr, ok := err.(*openai.APIError)
	if !ok {
		return errors.WrapError(err, "openai request failed")
	}

	switch apiErr.HTTPStatusCode {
	case 401:
		return errors.ErrInvalidAPIKey
	case 429:
		return errors.ErrRateLimited
	case 500, 502, 503:
		return errors.ErrProviderUnavailable
	default:
		return fmt.Errorf("openai error (code=%d): %w", apiErr.HTTPStatusCode, err)
	}
}
