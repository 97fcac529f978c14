package engine

import (
	"context"
	"sync"
)

// Retriever 定义检索能力接口（外部协作方）。
//
// 实现必须支持以递增 offset 多次调用（分页），
// 在某个 offset 没有更多结果时返回零个块而非报错。
type Retriever interface {
	// Retrieve 执行一次检索调用
	Retrieve(ctx context.Context, req RetrieverRequest) (*Pack, error)
}

// RetrieverFunc 函数式检索器适配器
type RetrieverFunc func(ctx context.Context, req RetrieverRequest) (*Pack, error)

// Retrieve 执行一次检索调用
func (f RetrieverFunc) Retrieve(ctx context.Context, req RetrieverRequest) (*Pack, error) {
	return f(ctx, req)
}

// PaginationSupporter 检索器的可选分页声明接口。
// 未实现该接口的检索器视为不支持分页（不参与扩展）。
type PaginationSupporter interface {
	// SupportsPagination 是否支持分页检索
	SupportsPagination() bool
}

// Compactor 定义文本压缩能力接口（按名称注册）。
//
// 压缩是有损的尽力而为操作：返回文本的估算值应不超过
// 目标预算，但不做硬性保证。
type Compactor interface {
	// Compact 将文本压缩到目标 Token 预算内
	Compact(ctx context.Context, text string, targetTokens int) (string, error)
}

// RetrieverRegistry 检索器注册表（名称 → 检索能力）。
// 装配过程只读，不会修改注册表。
type RetrieverRegistry struct {
	mu         sync.RWMutex
	retrievers map[string]Retriever
}

// NewRetrieverRegistry 创建检索器注册表
func NewRetrieverRegistry() *RetrieverRegistry {
	return &RetrieverRegistry{
		retrievers: make(map[string]Retriever),
	}
}

// Register 注册检索器
func (r *RetrieverRegistry) Register(name string, retriever Retriever) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retrievers[name] = retriever
}

// Get 按名称获取检索器
func (r *RetrieverRegistry) Get(name string) (Retriever, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	retriever, ok := r.retrievers[name]
	return retriever, ok
}

// Names 返回所有已注册的检索器名称
func (r *RetrieverRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.retrievers))
	for name := range r.retrievers {
		names = append(names, name)
	}
	return names
}

// CompactorRegistry 压缩器注册表（名称 → 压缩能力）
type CompactorRegistry struct {
	mu         sync.RWMutex
	compactors map[string]Compactor
}

// NewCompactorRegistry 创建压缩器注册表。
// 内置截断压缩器预先注册为 "truncate"。
func NewCompactorRegistry(estimator TokenEstimator) *CompactorRegistry {
	r := &CompactorRegistry{
		compactors: make(map[string]Compactor),
	}
	r.Register(CompactorTruncate, NewTruncateCompactor(estimator))
	return r
}

// Register 注册压缩器
func (r *CompactorRegistry) Register(name string, compactor Compactor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compactors[name] = compactor
}

// Get 按名称获取压缩器
func (r *CompactorRegistry) Get(name string) (Compactor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	compactor, ok := r.compactors[name]
	return compactor, ok
}

// Names 返回所有已注册的压缩器名称
func (r *CompactorRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.compactors))
	for name := range r.compactors {
		names = append(names, name)
	}
	return names
}
