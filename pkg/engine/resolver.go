package engine

import (
	"context"
	"fmt"

	"github.com/easyops/contextengine-go/pkg/core/errors"
)

// BudgetExceededError 预算超限错误。
// 携带证据包名称、所需与分得的预算，以及压缩前的部分文本，
// 便于调用方定位问题。
type BudgetExceededError struct {
	// PackName 证据包名称
	PackName string
	// Required 所需 Token 估算值
	Required int
	// Allocated 分得的 Token 子预算
	Allocated int
	// PartialText 超限时的部分文本
	PartialText string
}

// Error 实现 error 接口
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("pack %q exceeds budget: required %d tokens, allocated %d",
		e.PackName, e.Required, e.Allocated)
}

// Unwrap 支持 errors.Is 匹配 ErrBudgetExceeded
func (e *BudgetExceededError) Unwrap() error {
	return errors.ErrBudgetExceeded
}

// ResolveRequest 单个证据包的解析请求
type ResolveRequest struct {
	// Spec 证据包配置
	Spec *PackSpec
	// Query 展开模板变量后的检索查询
	Query string
	// Budget 分得的 Token 子预算
	Budget int
	// Policy 所属计划的策略
	Policy *ContextPolicy
	// Override 测试接缝：设置后代替注册表查找
	Override Retriever
}

// ResolvedPack 证据包的解析结果
type ResolvedPack struct {
	// Name 证据包名称
	Name string
	// Text 最终文本（可能为空）
	Text string
	// Tokens 最终文本的 Token 估算值
	Tokens int
	// Pages 实际检索页数
	Pages int
	// EvidenceCount 累计证据条目数量
	EvidenceCount int
	// Compacted 是否经过压缩
	Compacted bool
	// Warnings 解析过程中的诊断告警
	Warnings []string
}

// PackResolver 证据包解析器。
//
// 对单个证据包执行 检索 → 评估 → 扩展/压缩 状态机，
// 产出适配子预算的最终文本。
type PackResolver struct {
	estimator    TokenEstimator
	retrievers   *RetrieverRegistry
	compactors   *CompactorRegistry
	defaultLimit int
}

// NewPackResolver 创建证据包解析器
func NewPackResolver(estimator TokenEstimator, retrievers *RetrieverRegistry, compactors *CompactorRegistry, defaultLimit int) *PackResolver {
	if estimator == nil {
		estimator = DefaultTokenEstimator()
	}
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &PackResolver{
		estimator:    estimator,
		retrievers:   retrievers,
		compactors:   compactors,
		defaultLimit: defaultLimit,
	}
}

// Resolve 解析一个证据包。
//
// 分页扩展时 offset 按 limit 递增，新返回的块只追加不去重。
// 扩展循环由 max_pages 和检索器返回零个新块共同保证终止。
func (r *PackResolver) Resolve(ctx context.Context, req ResolveRequest) (*ResolvedPack, error) {
	spec := req.Spec
	resolved := &ResolvedPack{Name: spec.Name()}

	// 查找检索能力
	retriever := req.Override
	if retriever == nil {
		var ok bool
		retriever, ok = r.retrievers.Get(spec.Retriever)
		if !ok {
			return nil, errors.WrapError(errors.ErrRetrieverNotFound,
				fmt.Sprintf("pack %q", spec.Retriever))
		}
	}

	limit := spec.Limit
	if limit <= 0 {
		limit = r.defaultLimit
	}

	maxPages := req.Policy.Expansion.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	// 未声明分页支持的检索器不参与扩展
	morePages := false
	if ps, ok := retriever.(PaginationSupporter); ok {
		morePages = ps.SupportsPagination()
	}

	var blocks []PackBlock
	offset := 0

	for {
		// 检索
		pack, err := retriever.Retrieve(ctx, RetrieverRequest{
			Query:        req.Query,
			Offset:       offset,
			Limit:        limit,
			BudgetTokens: req.Budget,
		})
		if err != nil {
			if spec.Optional {
				resolved.Warnings = append(resolved.Warnings,
					fmt.Sprintf("optional pack %q degraded to empty: %v", resolved.Name, err))
				return resolved, nil
			}
			return nil, errors.WrapError(errors.ErrRetrieverFailed,
				fmt.Sprintf("pack %q: %v", resolved.Name, err))
		}
		resolved.Pages++

		newBlocks := packBlocks(pack)
		if len(newBlocks) == 0 {
			// 零个新块视为没有更多页
			morePages = false
		} else {
			blocks = append(blocks, newBlocks...)
		}

		text := BuildPack(blocks).Text
		est := r.estimator.Estimate(text)

		// 评估
		if est > req.Budget {
			return r.compact(ctx, resolved, blocks, text, est, req)
		}

		fullEnough := float64(est) >= req.Policy.Expansion.MinFillRatio*float64(req.Budget)
		if fullEnough || !morePages || resolved.Pages >= maxPages {
			resolved.Text = text
			resolved.Tokens = est
			resolved.EvidenceCount = len(blocks)
			return resolved, nil
		}

		// 扩展：取下一页
		offset += limit
	}
}

// compact 处理超预算的证据包。
// overflow=error 直接失败；overflow=compact 调用压缩器，
// 压缩后仍超预算时接受尽力结果并记录告警。
func (r *PackResolver) compact(ctx context.Context, resolved *ResolvedPack, blocks []PackBlock, text string, est int, req ResolveRequest) (*ResolvedPack, error) {
	if req.Policy.Overflow == OverflowError {
		return nil, &BudgetExceededError{
			PackName:    resolved.Name,
			Required:    est,
			Allocated:   req.Budget,
			PartialText: text,
		}
	}

	name := req.Policy.Compactor.Name
	if name == "" {
		name = CompactorTruncate
	}
	compactor, ok := r.compactors.Get(name)
	if !ok {
		return nil, errors.WrapError(errors.ErrCompactorNotFound, fmt.Sprintf("compactor %q", name))
	}

	compacted, err := compactor.Compact(ctx, text, req.Budget)
	if err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("compacting pack %q", resolved.Name))
	}

	finalEst := r.estimator.Estimate(compacted)
	if finalEst > req.Budget {
		// 压缩是尽力而为：接受结果但不得静默丢弃超限事实
		resolved.Warnings = append(resolved.Warnings,
			fmt.Sprintf("pack %q still exceeds budget after compaction: estimated %d > allocated %d",
				resolved.Name, finalEst, req.Budget))
	}

	resolved.Text = compacted
	resolved.Tokens = finalEst
	resolved.EvidenceCount = len(blocks)
	resolved.Compacted = true
	return resolved, nil
}

// packBlocks 归一化检索器返回的证据包。
// 只设置了 Text 的简单检索器结果包装为单块。
func packBlocks(pack *Pack) []PackBlock {
	if pack == nil {
		return nil
	}
	if len(pack.Blocks) == 0 && pack.Text != "" {
		return []PackBlock{{Text: pack.Text}}
	}
	return pack.Blocks
}
