package otel

// 预定义的指标名称
// 遵循 OpenTelemetry 语义约定
const (
	// 装配指标
	MetricAssemblyRuns        = "assembly.runs"             // 计数器: 装配执行次数
	MetricAssemblyDuration    = "assembly.duration"         // 直方图: 装配耗时(ms)
	MetricAssemblyTokens      = "assembly.tokens"           // 直方图: 装配总 Token 估算
	MetricAssemblyErrors      = "assembly.errors"           // 计数器: 装配失败次数
	MetricAssemblyWarnings    = "assembly.warnings"         // 计数器: 装配诊断告警次数
	MetricAssemblyRegens      = "assembly.regenerations"    // 计数器: 超预算重生成次数

	// 证据包指标
	MetricPackResolutions     = "pack.resolutions"          // 计数器: 证据包解析次数
	MetricPackTokens          = "pack.tokens"               // 直方图: 证据包最终 Token 估算
	MetricPackPages           = "pack.pages"                // 直方图: 证据包扩展页数
	MetricPackCompactions     = "pack.compactions"          // 计数器: 证据包压缩次数
	MetricPackBudgetOverflows = "pack.budget.overflows"     // 计数器: 压缩后仍超预算次数

	// 检索指标
	MetricRetrieverCalls      = "retriever.calls"           // 计数器: 检索调用次数
	MetricRetrieverDuration   = "retriever.call.duration"   // 直方图: 检索调用耗时(ms)
	MetricRetrieverErrors     = "retriever.errors"          // 计数器: 检索失败次数
	MetricRetrieverBlocks     = "retriever.blocks"          // 直方图: 单次检索返回块数
)

// MetricUnit 指标单位
type MetricUnit string

const (
	UnitNone         MetricUnit = ""
	UnitMilliseconds MetricUnit = "ms"
	UnitCount        MetricUnit = "1"
)

// MetricDescription 指标描述
type MetricDescription struct {
	Name        string
	Description string
	Unit        MetricUnit
	Type        string // counter, histogram, gauge
}

// PredefinedMetrics 预定义指标列表
var PredefinedMetrics = []MetricDescription{
	{MetricAssemblyRuns, "Number of context assembly runs", UnitCount, "counter"},
	{MetricAssemblyDuration, "Duration of context assembly runs", UnitMilliseconds, "histogram"},
	{MetricAssemblyTokens, "Total estimated tokens per assembly", UnitCount, "histogram"},
	{MetricAssemblyErrors, "Number of failed assembly runs", UnitCount, "counter"},
	{MetricAssemblyWarnings, "Number of assembly diagnostic warnings", UnitCount, "counter"},
	{MetricAssemblyRegens, "Number of over-budget regenerations", UnitCount, "counter"},

	{MetricPackResolutions, "Number of pack resolutions", UnitCount, "counter"},
	{MetricPackTokens, "Estimated tokens per resolved pack", UnitCount, "histogram"},
	{MetricPackPages, "Expansion pages per resolved pack", UnitCount, "histogram"},
	{MetricPackCompactions, "Number of pack compactions", UnitCount, "counter"},
	{MetricPackBudgetOverflows, "Packs still over budget after compaction", UnitCount, "counter"},

	{MetricRetrieverCalls, "Number of retriever calls", UnitCount, "counter"},
	{MetricRetrieverDuration, "Duration of retriever calls", UnitMilliseconds, "histogram"},
	{MetricRetrieverErrors, "Number of retriever errors", UnitCount, "counter"},
	{MetricRetrieverBlocks, "Blocks returned per retriever call", UnitCount, "histogram"},
}
