package otel

import (
	"context"
	"time"

	"github.com/easyops/contextengine-go/pkg/engine"
)

// TracedRetriever 带追踪和指标的检索器包装。
//
// 包装任意 engine.Retriever，为每次检索调用创建 Span
// 并记录调用次数、耗时和返回块数。分页能力原样透传。
type TracedRetriever struct {
	inner   engine.Retriever
	name    string
	tracer  Tracer
	metrics Metrics
}

// NewTracedRetriever 包装检索器。
// tracer/metrics 为 nil 时使用全局实例。
func NewTracedRetriever(name string, inner engine.Retriever, tracer Tracer, metrics Metrics) *TracedRetriever {
	if tracer == nil {
		tracer = GetTracer()
	}
	if metrics == nil {
		metrics = GetMetrics()
	}
	return &TracedRetriever{
		inner:   inner,
		name:    name,
		tracer:  tracer,
		metrics: metrics,
	}
}

// Retrieve 执行一次带追踪的检索调用
func (r *TracedRetriever) Retrieve(ctx context.Context, req engine.RetrieverRequest) (*engine.Pack, error) {
	ctx, span := r.tracer.Start(ctx, "retriever.retrieve",
		WithSpanKind(SpanKindClient),
		WithAttributes(
			RetrieverName(r.name),
			BudgetAllocated(req.BudgetTokens),
		),
	)
	defer span.End()

	start := time.Now()
	r.metrics.Counter(MetricRetrieverCalls).Add(ctx, 1, NewAttr(AttrRetrieverName, r.name))

	pack, err := r.inner.Retrieve(ctx, req)

	elapsed := float64(time.Since(start).Milliseconds())
	r.metrics.Histogram(MetricRetrieverDuration).Record(ctx, elapsed, NewAttr(AttrRetrieverName, r.name))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(StatusError, err.Error())
		r.metrics.Counter(MetricRetrieverErrors).Add(ctx, 1, NewAttr(AttrRetrieverName, r.name))
		return nil, err
	}

	span.SetStatus(StatusOK, "")
	r.metrics.Histogram(MetricRetrieverBlocks).Record(ctx, float64(len(pack.Blocks)),
		NewAttr(AttrRetrieverName, r.name))

	return pack, nil
}

// SupportsPagination 透传内层检索器的分页能力
func (r *TracedRetriever) SupportsPagination() bool {
	if ps, ok := r.inner.(engine.PaginationSupporter); ok {
		return ps.SupportsPagination()
	}
	return false
}

// TracedAssembler 带追踪和指标的装配器包装
type TracedAssembler struct {
	inner   *engine.Assembler
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewTracedAssembler 包装装配器。
// tracer/metrics/logger 为 nil 时使用全局实例。
func NewTracedAssembler(inner *engine.Assembler, tracer Tracer, metrics Metrics, logger Logger) *TracedAssembler {
	if tracer == nil {
		tracer = GetTracer()
	}
	if metrics == nil {
		metrics = GetMetrics()
	}
	if logger == nil {
		logger = GetLogger()
	}
	return &TracedAssembler{
		inner:   inner,
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Assemble 执行一次带追踪的上下文装配
func (a *TracedAssembler) Assemble(ctx context.Context, input engine.AssembleInput) (*engine.AssemblyResult, error) {
	ctx, span := a.tracer.Start(ctx, "assembly.run",
		WithAttributes(ContextName(input.ContextName)),
	)
	defer span.End()

	start := time.Now()
	a.metrics.Counter(MetricAssemblyRuns).Add(ctx, 1, NewAttr(AttrContextName, input.ContextName))

	result, err := a.inner.Assemble(ctx, input)

	elapsed := float64(time.Since(start).Milliseconds())
	a.metrics.Histogram(MetricAssemblyDuration).Record(ctx, elapsed, NewAttr(AttrContextName, input.ContextName))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(StatusError, err.Error())
		a.metrics.Counter(MetricAssemblyErrors).Add(ctx, 1, NewAttr(AttrContextName, input.ContextName))
		a.logger.WithContext(ctx).Error("context assembly failed",
			"context", input.ContextName,
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(BudgetUsed(result.TotalTokens))
	span.SetStatus(StatusOK, "")
	a.metrics.Histogram(MetricAssemblyTokens).Record(ctx, float64(result.TotalTokens),
		NewAttr(AttrContextName, input.ContextName))
	for _, section := range result.Sections {
		if section.Kind != "pack" {
			continue
		}
		span.AddEvent("pack.resolved",
			PackName(section.Name),
			BudgetUsed(section.Tokens),
		)
		a.metrics.Counter(MetricPackResolutions).Add(ctx, 1, NewAttr(AttrPackName, section.Name))
		a.metrics.Histogram(MetricPackTokens).Record(ctx, float64(section.Tokens),
			NewAttr(AttrPackName, section.Name))
	}
	if len(result.Warnings) > 0 {
		a.metrics.Counter(MetricAssemblyWarnings).Add(ctx, int64(len(result.Warnings)),
			NewAttr(AttrContextName, input.ContextName))
	}

	a.logger.WithContext(ctx).Info("context assembled",
		"context", input.ContextName,
		"run_id", result.RunID,
		"total_tokens", result.TotalTokens,
		"warnings", len(result.Warnings),
	)

	return result, nil
}

// compile-time interface check
var _ engine.Retriever = (*TracedRetriever)(nil)
var _ engine.PaginationSupporter = (*TracedRetriever)(nil)
