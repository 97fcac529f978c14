// Package message 定义对话消息相关的类型
package message

import (
	"time"
)

// Role 表示消息的角色类型
type Role string

const (
	// RoleSystem 系统消息
	RoleSystem Role = "system"
	// RoleUser 用户消息
	RoleUser Role = "user"
	// RoleAssistant AI 助手消息
	RoleAssistant Role = "assistant"
)

// IsValid 检查 Role 是否为有效值
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message 表示对话中的一条消息
type Message struct {
	// ID 消息唯一标识
	ID string `json:"id,omitempty"`
	// Role 消息角色
	Role Role `json:"role"`
	// Content 消息内容
	Content string `json:"content"`
	// Metadata 元数据
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	// Timestamp 时间戳
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NewMessage 创建新消息
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewSystemMessage 创建系统消息
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage 创建用户消息
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage 创建助手消息
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// Validate 验证消息是否有效
func (m *Message) Validate() error {
	if !m.Role.IsValid() {
		return ErrInvalidRole
	}
	if m.Content == "" {
		return ErrEmptyContent
	}
	return nil
}
