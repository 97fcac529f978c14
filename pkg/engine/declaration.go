package engine

import (
	"fmt"

	"github.com/easyops/contextengine-go/pkg/core/errors"
)

// MessageKind 消息条目类型
type MessageKind string

const (
	// KindSystem 系统提示条目（静态或模板文本）
	KindSystem MessageKind = "system"
	// KindUser 用户消息条目（模板文本）
	KindUser MessageKind = "user"
	// KindAssistant 固定历史中的助手条目
	KindAssistant MessageKind = "assistant"
	// KindPack 证据包条目（引用检索器或嵌套上下文）
	KindPack MessageKind = "pack"
)

// IsValid 检查消息条目类型是否有效
func (k MessageKind) IsValid() bool {
	switch k {
	case KindSystem, KindUser, KindAssistant, KindPack:
		return true
	}
	return false
}

// PackSpec 证据包条目的静态配置。
//
// Retriever 与 Context 二选一：前者引用检索器注册表中的检索能力，
// 后者引用另一个 ContextDeclaration（嵌套上下文）。
type PackSpec struct {
	// Retriever 检索器名称
	Retriever string `koanf:"retriever" json:"retriever,omitempty"`
	// Context 嵌套上下文计划名称
	Context string `koanf:"context" json:"context,omitempty"`
	// Query 检索查询（支持模板变量）
	Query string `koanf:"query" json:"query,omitempty"`
	// Limit 单页检索条数。为 0 时使用默认值，
	// 且该证据包参与超预算重生成。
	Limit int `koanf:"limit" json:"limit,omitempty"`
	// Optional 检索失败时降级为空包而非报错
	Optional bool `koanf:"optional" json:"optional,omitempty"`
	// Weight 预算按权重比例分配（默认 1.0）
	Weight float64 `koanf:"weight" json:"weight,omitempty"`
	// Priority 预算按优先级顺序贪心分配（数值越小越先分配）。
	// 为 nil 时该证据包参与权重分配。
	Priority *int `koanf:"priority" json:"priority,omitempty"`
}

// Name 返回证据包的标识名称
func (p *PackSpec) Name() string {
	if p.Context != "" {
		return p.Context
	}
	return p.Retriever
}

// IsNested 检查是否为嵌套上下文引用
func (p *PackSpec) IsNested() bool {
	return p.Context != ""
}

// Validate 验证证据包配置
func (p *PackSpec) Validate() error {
	if p.Retriever == "" && p.Context == "" {
		return errors.WrapError(errors.ErrInvalidDeclaration, "pack requires a retriever or context reference")
	}
	if p.Retriever != "" && p.Context != "" {
		return errors.WrapError(errors.ErrInvalidDeclaration,
			fmt.Sprintf("pack %q sets both retriever and context", p.Retriever))
	}
	if p.Limit < 0 {
		return errors.WrapError(errors.ErrInvalidDeclaration,
			fmt.Sprintf("pack %q: limit must be non-negative", p.Name()))
	}
	if p.Weight < 0 {
		return errors.WrapError(errors.ErrInvalidDeclaration,
			fmt.Sprintf("pack %q: weight must be non-negative", p.Name()))
	}
	return nil
}

// MessageSpec 上下文计划中的一个消息条目。
// 条目顺序即最终装配顺序。
type MessageSpec struct {
	// Kind 条目类型
	Kind MessageKind `koanf:"kind" json:"kind"`
	// Content 文本内容（system/user/assistant 条目使用，支持模板变量）
	Content string `koanf:"content" json:"content,omitempty"`
	// Pack 证据包配置（pack 条目使用）
	Pack *PackSpec `koanf:"pack" json:"pack,omitempty"`
}

// Validate 验证消息条目
func (m *MessageSpec) Validate() error {
	if !m.Kind.IsValid() {
		return errors.WrapError(errors.ErrInvalidDeclaration,
			fmt.Sprintf("unknown message kind %q", m.Kind))
	}
	if m.Kind == KindPack {
		if m.Pack == nil {
			return errors.WrapError(errors.ErrInvalidDeclaration, "pack entry missing pack config")
		}
		return m.Pack.Validate()
	}
	if m.Pack != nil {
		return errors.WrapError(errors.ErrInvalidDeclaration,
			fmt.Sprintf("%s entry must not carry pack config", m.Kind))
	}
	if m.Content == "" {
		return errors.WrapError(errors.ErrInvalidDeclaration,
			fmt.Sprintf("%s entry missing content", m.Kind))
	}
	return nil
}

// ContextDeclaration 声明式上下文计划。
// 加载后不可变，装配过程不会修改它。
type ContextDeclaration struct {
	// Name 计划名称（装配时的查找键）
	Name string `koanf:"name" json:"name"`
	// Messages 有序消息条目列表
	Messages []MessageSpec `koanf:"messages" json:"messages"`
	// Policy 预算与解析策略
	Policy ContextPolicy `koanf:"policy" json:"policy"`
}

// Validate 验证上下文计划。
// 验证失败的计划不会进入装配流程。
func (d *ContextDeclaration) Validate() error {
	if d.Name == "" {
		return errors.WrapError(errors.ErrInvalidDeclaration, "declaration missing name")
	}
	if len(d.Messages) == 0 {
		return errors.WrapError(errors.ErrInvalidDeclaration,
			fmt.Sprintf("declaration %q has no messages", d.Name))
	}
	for i := range d.Messages {
		if err := d.Messages[i].Validate(); err != nil {
			return errors.WrapError(err, fmt.Sprintf("declaration %q message %d", d.Name, i))
		}
	}
	return d.Policy.Validate()
}

// PackSpecs 返回计划中所有证据包条目（按声明顺序）
func (d *ContextDeclaration) PackSpecs() []*PackSpec {
	var packs []*PackSpec
	for i := range d.Messages {
		if d.Messages[i].Kind == KindPack && d.Messages[i].Pack != nil {
			packs = append(packs, d.Messages[i].Pack)
		}
	}
	return packs
}
