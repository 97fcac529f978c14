package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/easyops/contextengine-go/pkg/core/errors"
	"github.com/easyops/contextengine-go/pkg/core/message"
	"github.com/google/uuid"
)

// AssembleInput 一次装配调用的运行时输入
type AssembleInput struct {
	// ContextName 上下文计划名称
	ContextName string
	// BaseSystemPrompt 调用方提供的基础系统提示（固定内容）
	BaseSystemPrompt string
	// History 调用方提供的历史消息（固定内容）
	History []message.Message
	// UserMessage 调用方提供的用户消息（支持模板变量）
	UserMessage string
	// Template 模板变量（input.* 与 context.* 两个命名空间）
	Template *TemplateContext
	// RetrieverOverride 测试接缝：设置后代替注册表查找
	RetrieverOverride Retriever
}

// Assembler 上下文装配器。
//
// 装配器本身不持有调用间状态，每次 Assemble 构造独立的局部状态，
// 可以安全地被多个调用方并发使用。
type Assembler struct {
	declarations     *DeclarationRegistry
	retrievers       *RetrieverRegistry
	compactors       *CompactorRegistry
	estimator        TokenEstimator
	allocator        *Allocator
	resolver         *PackResolver
	defaultLimit     int
	maxRegenerations int
}

// AssemblerOption 装配器配置选项函数
type AssemblerOption func(*Assembler)

// WithEstimator 设置 Token 估算器
func WithEstimator(estimator TokenEstimator) AssemblerOption {
	return func(a *Assembler) {
		a.estimator = estimator
	}
}

// WithRetrieverRegistry 设置检索器注册表
func WithRetrieverRegistry(registry *RetrieverRegistry) AssemblerOption {
	return func(a *Assembler) {
		a.retrievers = registry
	}
}

// WithCompactorRegistry 设置压缩器注册表
func WithCompactorRegistry(registry *CompactorRegistry) AssemblerOption {
	return func(a *Assembler) {
		a.compactors = registry
	}
}

// WithDefaultLimit 设置证据包检索的默认单页条数
func WithDefaultLimit(limit int) AssemblerOption {
	return func(a *Assembler) {
		a.defaultLimit = limit
	}
}

// WithMaxRegenerations 设置超预算时的最大重生成次数
func WithMaxRegenerations(n int) AssemblerOption {
	return func(a *Assembler) {
		a.maxRegenerations = n
	}
}

// NewAssembler 创建上下文装配器
func NewAssembler(declarations *DeclarationRegistry, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		declarations:     declarations,
		defaultLimit:     5,
		maxRegenerations: 3,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.estimator == nil {
		a.estimator = DefaultTokenEstimator()
	}
	if a.retrievers == nil {
		a.retrievers = NewRetrieverRegistry()
	}
	if a.compactors == nil {
		a.compactors = NewCompactorRegistry(a.estimator)
	}
	a.allocator = NewAllocator()
	a.resolver = NewPackResolver(a.estimator, a.retrievers, a.compactors, a.defaultLimit)

	return a
}

// Assemble 装配上下文。
//
// 按计划声明顺序解析各消息条目，为证据包条目分配子预算并解析，
// 最终产出系统提示、历史消息和用户消息三部分输出。
func (a *Assembler) Assemble(ctx context.Context, input AssembleInput) (*AssemblyResult, error) {
	visited := make(map[string]struct{})
	return a.assemble(ctx, input, -1, visited)
}

// packState 单个证据包条目在装配过程中的局部状态
type packState struct {
	spec     *PackSpec
	query    string // 展开后的查询
	budget   int    // 分得的子预算
	resolved *ResolvedPack
}

// assemble 递归装配入口。
// budgetCap ≥ 0 时表示嵌套调用，计划自身的 max_tokens 被钳制到该上限。
func (a *Assembler) assemble(ctx context.Context, input AssembleInput, budgetCap int, visited map[string]struct{}) (*AssemblyResult, error) {
	// 查找计划
	decl, ok := a.declarations.Get(input.ContextName)
	if !ok {
		return nil, errors.WrapError(errors.ErrContextNotFound, fmt.Sprintf("context %q", input.ContextName))
	}

	// 循环引用检测：不依赖调用栈深度，用显式访问集合
	if _, seen := visited[decl.Name]; seen {
		return nil, errors.WrapError(errors.ErrCyclicContext,
			fmt.Sprintf("cycle detected: context %q is already being resolved", decl.Name))
	}
	visited[decl.Name] = struct{}{}
	defer delete(visited, decl.Name)

	// 配置错误在任何检索之前暴露
	if err := decl.Validate(); err != nil {
		return nil, err
	}

	policy := decl.Policy
	policy.ApplyDefaults()
	// 嵌套预算上限：子计划分得的预算不超过父证据包的子预算
	if budgetCap >= 0 && policy.InputBudget.MaxTokens > budgetCap {
		policy.InputBudget.MaxTokens = budgetCap
	}

	if policy.Overflow == OverflowCompact {
		if _, ok := a.compactors.Get(policy.Compactor.Name); !ok {
			return nil, errors.WrapError(errors.ErrCompactorNotFound,
				fmt.Sprintf("context %q compactor %q", decl.Name, policy.Compactor.Name))
		}
	}

	// 渲染所有模板：固定条目文本、用户消息、证据包查询
	rendered := make([]string, len(decl.Messages))
	packs := make([]*packState, 0, len(decl.Messages))
	for i := range decl.Messages {
		spec := &decl.Messages[i]
		if spec.Kind == KindPack {
			query, err := RenderTemplate(spec.Pack.Query, input.Template)
			if err != nil {
				return nil, errors.WrapError(err, fmt.Sprintf("context %q pack %q query", decl.Name, spec.Pack.Name()))
			}
			packs = append(packs, &packState{spec: spec.Pack, query: query})
			continue
		}
		text, err := RenderTemplate(spec.Content, input.Template)
		if err != nil {
			return nil, errors.WrapError(err, fmt.Sprintf("context %q message %d", decl.Name, i))
		}
		rendered[i] = text
	}

	userMessage, err := RenderTemplate(input.UserMessage, input.Template)
	if err != nil {
		return nil, errors.WrapError(err, "user message")
	}

	// 固定内容的 Token 成本
	fixedCost := a.estimator.Estimate(input.BaseSystemPrompt)
	for _, msg := range input.History {
		fixedCost += a.estimator.Estimate(msg.Content)
	}
	fixedCost += a.estimator.Estimate(userMessage)
	for i := range decl.Messages {
		if decl.Messages[i].Kind != KindPack {
			fixedCost += a.estimator.Estimate(rendered[i])
		}
	}

	// 剩余预算按比例分给所有证据包
	remaining := policy.InputBudget.MaxTokens - fixedCost
	if remaining < 0 {
		remaining = 0
	}
	packTotal := int(float64(remaining) * policy.PackBudget.DefaultRatio)

	if err := a.resolvePacks(ctx, packs, packTotal, &policy, input, visited); err != nil {
		return nil, err
	}

	// 重生成：总量仍超上限时对未固定 limit 的证据包逐步减半预算重试
	warnings, err := a.regenerate(ctx, packs, fixedCost, &policy, input, visited)
	if err != nil {
		return nil, err
	}

	return a.render(decl, rendered, packs, input, userMessage, fixedCost, warnings), nil
}

// resolvePacks 为证据包分配子预算并解析。
//
// 带优先级的证据包按优先级顺序贪心解析：每个依次获得全部剩余预算，
// 实际用量从剩余预算中扣除。其余证据包按权重比例分享残余预算，
// 按声明顺序解析。
func (a *Assembler) resolvePacks(ctx context.Context, packs []*packState, packTotal int, policy *ContextPolicy, input AssembleInput, visited map[string]struct{}) error {
	slots := make([]Slot, len(packs))
	for i, p := range packs {
		slots[i] = Slot{Name: p.spec.Name(), Weight: p.spec.Weight, Priority: p.spec.Priority}
	}

	prioritized, weighted := a.allocator.PartitionByPriority(slots)
	remaining := packTotal

	// 优先级组：顺序贪心
	for _, idx := range prioritized {
		p := packs[idx]
		p.budget = remaining

		resolved, err := a.resolvePack(ctx, p, policy, input, visited)
		if err != nil {
			return err
		}
		p.resolved = resolved

		remaining -= resolved.Tokens
		if remaining < 0 {
			remaining = 0
		}
	}

	// 权重组：比例分摊残余预算
	if len(weighted) > 0 {
		weightedSlots := make([]Slot, len(weighted))
		for i, idx := range weighted {
			weightedSlots[i] = slots[idx]
		}
		shares := a.allocator.SplitWeighted(remaining, weightedSlots)

		for i, idx := range weighted {
			p := packs[idx]
			p.budget = shares[i]

			resolved, err := a.resolvePack(ctx, p, policy, input, visited)
			if err != nil {
				return err
			}
			p.resolved = resolved
		}
	}

	return nil
}

// resolvePack 解析单个证据包：嵌套上下文走递归装配，否则走检索解析
func (a *Assembler) resolvePack(ctx context.Context, p *packState, policy *ContextPolicy, input AssembleInput, visited map[string]struct{}) (*ResolvedPack, error) {
	if p.spec.IsNested() {
		return a.resolveNested(ctx, p, input, visited)
	}

	return a.resolver.Resolve(ctx, ResolveRequest{
		Spec:     p.spec,
		Query:    p.query,
		Budget:   p.budget,
		Policy:   policy,
		Override: input.RetrieverOverride,
	})
}

// resolveNested 递归装配嵌套上下文。
// 父证据包的子预算成为子计划的有效 max_tokens 上限。
func (a *Assembler) resolveNested(ctx context.Context, p *packState, input AssembleInput, visited map[string]struct{}) (*ResolvedPack, error) {
	nested, err := a.assemble(ctx, AssembleInput{
		ContextName:       p.spec.Context,
		Template:          input.Template,
		RetrieverOverride: input.RetrieverOverride,
	}, p.budget, visited)
	if err != nil {
		if p.spec.Optional && !errors.IsConfig(err) {
			return &ResolvedPack{
				Name: p.spec.Context,
				Warnings: []string{
					fmt.Sprintf("optional nested context %q degraded to empty: %v", p.spec.Context, err),
				},
			}, nil
		}
		return nil, err
	}

	var parts []string
	if nested.SystemPrompt != "" {
		parts = append(parts, nested.SystemPrompt)
	}
	for _, msg := range nested.HistoryMessages {
		if msg.Content != "" {
			parts = append(parts, msg.Content)
		}
	}
	if nested.UserMessage != "" {
		parts = append(parts, nested.UserMessage)
	}

	text := strings.Join(parts, "\n\n")
	return &ResolvedPack{
		Name:     p.spec.Context,
		Text:     text,
		Tokens:   nested.TotalTokens,
		Warnings: nested.Warnings,
	}, nil
}

// regenerate 超预算重生成。
//
// 初次解析后总量仍超 max_tokens 时，对未固定 limit 的证据包
// 用减半预算（下限 1）重新执行完整的检索评估流程，直到
// 总量符合或重试次数耗尽。每次重试都是全新解析，不复用旧状态。
func (a *Assembler) regenerate(ctx context.Context, packs []*packState, fixedCost int, policy *ContextPolicy, input AssembleInput, visited map[string]struct{}) ([]string, error) {
	var warnings []string

	total := fixedCost
	for _, p := range packs {
		total += p.resolved.Tokens
	}

	for retry := 0; retry < a.maxRegenerations && total > policy.InputBudget.MaxTokens; retry++ {
		regenerated := false
		for _, p := range packs {
			// 固定 limit 的证据包不参与重生成
			if p.spec.Limit > 0 {
				continue
			}
			halved := p.budget / 2
			if halved < 1 {
				halved = 1
			}
			if halved >= p.budget {
				continue
			}
			p.budget = halved

			resolved, err := a.resolvePack(ctx, p, policy, input, visited)
			if err != nil {
				return nil, err
			}
			p.resolved = resolved
			regenerated = true
		}
		if !regenerated {
			break
		}

		total = fixedCost
		for _, p := range packs {
			total += p.resolved.Tokens
		}
		warnings = append(warnings,
			fmt.Sprintf("regeneration %d: reassembled packs with halved budgets, total estimate %d", retry+1, total))
	}

	if total > policy.InputBudget.MaxTokens {
		if policy.Overflow == OverflowError {
			return nil, &BudgetExceededError{
				PackName:  "assembly",
				Required:  total,
				Allocated: policy.InputBudget.MaxTokens,
			}
		}
		warnings = append(warnings,
			fmt.Sprintf("assembly exceeds max_tokens: estimated %d > %d", total, policy.InputBudget.MaxTokens))
	}

	return warnings, nil
}

// render 按声明顺序拼装最终输出。
// 相邻同角色片段合并：系统片段拼为一个系统提示，
// 计划内 user 条目前置到最终用户消息。
func (a *Assembler) render(decl *ContextDeclaration, rendered []string, packs []*packState, input AssembleInput, userMessage string, fixedCost int, warnings []string) *AssemblyResult {
	var systemParts []string
	var userParts []string
	var sections []SectionEstimate

	history := make([]message.Message, 0, len(input.History))
	if input.BaseSystemPrompt != "" {
		systemParts = append(systemParts, input.BaseSystemPrompt)
		sections = append(sections, SectionEstimate{
			Name:   "base_system_prompt",
			Kind:   string(KindSystem),
			Tokens: a.estimator.Estimate(input.BaseSystemPrompt),
		})
	}
	history = append(history, input.History...)

	packIdx := 0
	for i := range decl.Messages {
		spec := &decl.Messages[i]
		switch spec.Kind {
		case KindSystem:
			systemParts = append(systemParts, rendered[i])
			sections = append(sections, SectionEstimate{
				Name:   string(KindSystem),
				Kind:   string(KindSystem),
				Tokens: a.estimator.Estimate(rendered[i]),
			})
		case KindAssistant:
			history = append(history, message.NewAssistantMessage(rendered[i]))
			sections = append(sections, SectionEstimate{
				Name:   string(KindAssistant),
				Kind:   string(KindAssistant),
				Tokens: a.estimator.Estimate(rendered[i]),
			})
		case KindUser:
			userParts = append(userParts, rendered[i])
			sections = append(sections, SectionEstimate{
				Name:   string(KindUser),
				Kind:   string(KindUser),
				Tokens: a.estimator.Estimate(rendered[i]),
			})
		case KindPack:
			p := packs[packIdx]
			packIdx++
			if p.resolved.Text != "" {
				systemParts = append(systemParts, p.resolved.Text)
			}
			sections = append(sections, SectionEstimate{
				Name:   p.resolved.Name,
				Kind:   string(KindPack),
				Tokens: p.resolved.Tokens,
			})
			warnings = append(warnings, p.resolved.Warnings...)
		}
	}

	if userMessage != "" {
		userParts = append(userParts, userMessage)
		sections = append(sections, SectionEstimate{
			Name:   "user_message",
			Kind:   string(KindUser),
			Tokens: a.estimator.Estimate(userMessage),
		})
	}

	total := fixedCost
	for _, p := range packs {
		total += p.resolved.Tokens
	}

	return &AssemblyResult{
		RunID:           uuid.NewString(),
		SystemPrompt:    strings.Join(systemParts, "\n\n"),
		HistoryMessages: history,
		UserMessage:     strings.Join(userParts, "\n\n"),
		TotalTokens:     total,
		Sections:        sections,
		Warnings:        warnings,
	}
}
