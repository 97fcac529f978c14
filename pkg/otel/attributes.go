package otel

import "go.opentelemetry.io/otel/attribute"

// 预定义的语义属性键
// 遵循 OpenTelemetry 语义约定
const (
	// 上下文计划相关属性
	AttrContextName   = "context.name"
	AttrContextNested = "context.nested"

	// 证据包相关属性
	AttrPackName      = "pack.name"
	AttrPackOptional  = "pack.optional"
	AttrPackPages     = "pack.pages"
	AttrPackCompacted = "pack.compacted"
	AttrPackEvidence  = "pack.evidence_count"

	// 预算相关属性
	AttrBudgetAllocated = "budget.allocated_tokens"
	AttrBudgetUsed      = "budget.used_tokens"
	AttrBudgetMax       = "budget.max_tokens"

	// 检索相关属性
	AttrRetrieverName  = "retriever.name"
	AttrRetrieverQuery = "retriever.query"
	AttrRetrieverOffset = "retriever.offset"
	AttrRetrieverLimit = "retriever.limit"

	// 错误相关属性
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// ContextName 创建上下文计划名称属性
func ContextName(name string) attribute.KeyValue {
	return attribute.String(AttrContextName, name)
}

// PackName 创建证据包名称属性
func PackName(name string) attribute.KeyValue {
	return attribute.String(AttrPackName, name)
}

// PackPages 创建证据包页数属性
func PackPages(pages int) attribute.KeyValue {
	return attribute.Int(AttrPackPages, pages)
}

// PackCompacted 创建证据包压缩标记属性
func PackCompacted(compacted bool) attribute.KeyValue {
	return attribute.Bool(AttrPackCompacted, compacted)
}

// BudgetAllocated 创建已分配预算属性
func BudgetAllocated(tokens int) attribute.KeyValue {
	return attribute.Int(AttrBudgetAllocated, tokens)
}

// BudgetUsed 创建已用预算属性
func BudgetUsed(tokens int) attribute.KeyValue {
	return attribute.Int(AttrBudgetUsed, tokens)
}

// RetrieverName 创建检索器名称属性
func RetrieverName(name string) attribute.KeyValue {
	return attribute.String(AttrRetrieverName, name)
}

// ErrorAttrs 创建错误属性
func ErrorAttrs(errType, message string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, errType),
		attribute.String(AttrErrorMessage, message),
	}
}
