package engine

import (
	"fmt"

	"github.com/easyops/contextengine-go/pkg/core/errors"
)

// OverflowMode 超预算处理策略
type OverflowMode string

const (
	// OverflowCompact 超预算时压缩证据包（默认）
	OverflowCompact OverflowMode = "compact"
	// OverflowError 超预算时装配失败
	OverflowError OverflowMode = "error"
)

// IsValid 检查策略值是否有效
func (m OverflowMode) IsValid() bool {
	return m == OverflowCompact || m == OverflowError
}

// InputBudget 总预算配置
type InputBudget struct {
	// MaxTokens 装配输出的 Token 上限
	MaxTokens int `koanf:"max_tokens" json:"max_tokens"`
}

// PackBudget 证据包预算配置
type PackBudget struct {
	// DefaultRatio 扣除固定内容后，分配给所有证据包的剩余预算比例
	DefaultRatio float64 `koanf:"default_ratio" json:"default_ratio"`
}

// CompactorSpec 压缩器选择与配置
type CompactorSpec struct {
	// Name 压缩器注册名称
	Name string `koanf:"name" json:"name"`
	// Config 压缩器自定义配置
	Config map[string]interface{} `koanf:"config" json:"config,omitempty"`
}

// ExpansionConfig 分页扩展配置
type ExpansionConfig struct {
	// MaxPages 单个证据包的最大检索页数
	MaxPages int `koanf:"max_pages" json:"max_pages"`
	// MinFillRatio 证据包的最小填充率 [0, 1]。
	// 填充率低于该值且还有页可取时继续扩展。
	MinFillRatio float64 `koanf:"min_fill_ratio" json:"min_fill_ratio"`
}

// ContextPolicy 上下文计划的预算与解析策略
type ContextPolicy struct {
	// InputBudget 总预算
	InputBudget InputBudget `koanf:"input_budget" json:"input_budget"`
	// PackBudget 证据包预算
	PackBudget PackBudget `koanf:"pack_budget" json:"pack_budget"`
	// Overflow 超预算处理策略
	Overflow OverflowMode `koanf:"overflow" json:"overflow"`
	// Compactor 压缩器选择
	Compactor CompactorSpec `koanf:"compactor" json:"compactor"`
	// Expansion 分页扩展配置
	Expansion ExpansionConfig `koanf:"expansion" json:"expansion"`
}

// DefaultPolicy 返回默认策略。
// 默认不扩展（单页检索），超预算时截断压缩。
func DefaultPolicy() ContextPolicy {
	return ContextPolicy{
		InputBudget: InputBudget{MaxTokens: 4096},
		PackBudget:  PackBudget{DefaultRatio: 0.5},
		Overflow:    OverflowCompact,
		Compactor:   CompactorSpec{Name: CompactorTruncate},
		Expansion:   ExpansionConfig{MaxPages: 1, MinFillRatio: 0.5},
	}
}

// ApplyDefaults 补齐未设置的策略字段
func (p *ContextPolicy) ApplyDefaults() {
	def := DefaultPolicy()
	if p.InputBudget.MaxTokens == 0 {
		p.InputBudget.MaxTokens = def.InputBudget.MaxTokens
	}
	if p.PackBudget.DefaultRatio == 0 {
		p.PackBudget.DefaultRatio = def.PackBudget.DefaultRatio
	}
	if p.Overflow == "" {
		p.Overflow = def.Overflow
	}
	if p.Compactor.Name == "" {
		p.Compactor.Name = def.Compactor.Name
	}
	if p.Expansion.MaxPages == 0 {
		p.Expansion.MaxPages = def.Expansion.MaxPages
	}
	if p.Expansion.MinFillRatio == 0 {
		p.Expansion.MinFillRatio = def.Expansion.MinFillRatio
	}
}

// Validate 验证策略。
// 无效策略在任何检索发生之前报错。
func (p *ContextPolicy) Validate() error {
	if p.InputBudget.MaxTokens < 0 {
		return errors.WrapError(errors.ErrInvalidPolicy,
			fmt.Sprintf("input_budget.max_tokens must be non-negative, got %d", p.InputBudget.MaxTokens))
	}
	if p.PackBudget.DefaultRatio < 0 || p.PackBudget.DefaultRatio > 1 {
		return errors.WrapError(errors.ErrInvalidPolicy,
			fmt.Sprintf("pack_budget.default_ratio must be in [0, 1], got %g", p.PackBudget.DefaultRatio))
	}
	if p.Overflow != "" && !p.Overflow.IsValid() {
		return errors.WrapError(errors.ErrInvalidPolicy,
			fmt.Sprintf("unknown overflow mode %q", p.Overflow))
	}
	if p.Expansion.MaxPages < 0 {
		return errors.WrapError(errors.ErrInvalidPolicy,
			fmt.Sprintf("expansion.max_pages must be non-negative, got %d", p.Expansion.MaxPages))
	}
	if p.Expansion.MinFillRatio < 0 || p.Expansion.MinFillRatio > 1 {
		return errors.WrapError(errors.ErrInvalidPolicy,
			fmt.Sprintf("expansion.min_fill_ratio must be in [0, 1], got %g", p.Expansion.MinFillRatio))
	}
	return nil
}
