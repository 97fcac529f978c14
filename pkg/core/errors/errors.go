// Package errors 定义框架的通用错误类型
package errors

import (
	"errors"
	"fmt"
)

// 通用错误
var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrContextCanceled 上下文被取消
	ErrContextCanceled = errors.New("context canceled")
)

// 上下文计划相关错误（配置类，在任何检索发生前触发）
var (
	// ErrContextNotFound 上下文计划未找到
	ErrContextNotFound = errors.New("context declaration not found")
	// ErrCyclicContext 嵌套上下文存在循环引用
	ErrCyclicContext = errors.New("cyclic nested context reference")
	// ErrInvalidDeclaration 上下文计划无效
	ErrInvalidDeclaration = errors.New("invalid context declaration")
	// ErrInvalidPolicy 上下文策略无效
	ErrInvalidPolicy = errors.New("invalid context policy")
	// ErrRetrieverNotFound 检索器未注册
	ErrRetrieverNotFound = errors.New("retriever not registered")
	// ErrCompactorNotFound 压缩器未注册
	ErrCompactorNotFound = errors.New("compactor not registered")
)

// 组装过程相关错误
var (
	// ErrRetrieverFailed 检索器调用失败
	ErrRetrieverFailed = errors.New("retriever failed")
	// ErrBudgetExceeded 压缩后仍超出 Token 预算
	ErrBudgetExceeded = errors.New("token budget exceeded")
	// ErrUnresolvedVariable 模板变量无法解析
	ErrUnresolvedVariable = errors.New("unresolved template variable")
)

// LLM 相关错误（summarize 压缩器使用的 LLM 客户端）
var (
	// ErrRateLimited 请求被限速
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout 请求超时
	ErrTimeout = errors.New("request timeout")
	// ErrInvalidAPIKey API 密钥无效
	ErrInvalidAPIKey = errors.New("invalid API key")
	// ErrProviderUnavailable 提供商不可用
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrInvalidResponse LLM 响应无效
	ErrInvalidResponse = errors.New("invalid LLM response")
)

// WrapError 包装错误并添加上下文信息
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// IsConfig 判断错误是否为配置错误（快速失败，不应到达检索阶段）
func IsConfig(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrContextNotFound) ||
		errors.Is(err, ErrCyclicContext) ||
		errors.Is(err, ErrInvalidDeclaration) ||
		errors.Is(err, ErrInvalidPolicy) ||
		errors.Is(err, ErrRetrieverNotFound) ||
		errors.Is(err, ErrCompactorNotFound) ||
		errors.Is(err, ErrInvalidConfig)
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrProviderUnavailable)
}
