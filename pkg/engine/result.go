package engine

import "github.com/easyops/contextengine-go/pkg/core/message"

// SectionEstimate 单个装配片段的 Token 估算诊断
type SectionEstimate struct {
	// Name 片段名称（证据包名或条目类型）
	Name string `json:"name"`
	// Kind 片段类型
	Kind string `json:"kind"`
	// Tokens Token 估算值
	Tokens int `json:"tokens"`
}

// AssemblyResult 装配结果
type AssemblyResult struct {
	// RunID 本次装配的唯一标识
	RunID string `json:"run_id"`
	// SystemPrompt 装配后的系统提示
	SystemPrompt string `json:"system_prompt"`
	// HistoryMessages 装配后的历史消息列表
	HistoryMessages []message.Message `json:"history_messages"`
	// UserMessage 装配后的用户消息
	UserMessage string `json:"user_message"`
	// TotalTokens 总 Token 估算值
	TotalTokens int `json:"total_tokens"`
	// Sections 各片段的 Token 估算诊断
	Sections []SectionEstimate `json:"sections"`
	// Warnings 装配过程中的诊断告警
	Warnings []string `json:"warnings,omitempty"`
}
