package otel

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标实现。
// 仪器按名称懒创建并缓存，创建失败时降级为空实现。
type OTelMetrics struct {
	meter      metric.Meter
	counters   map[string]Counter
	histograms map[string]Histogram
	gauges     map[string]Gauge
	mu         sync.Mutex
}

// NewOTelMetrics 创建 OpenTelemetry 指标
func NewOTelMetrics(meter metric.Meter) *OTelMetrics {
	return &OTelMetrics{
		meter:      meter,
		counters:   make(map[string]Counter),
		histograms: make(map[string]Histogram),
		gauges:     make(map[string]Gauge),
	}
}

// Counter 返回或创建计数器
func (m *OTelMetrics) Counter(name string) Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c
	}

	counter, err := m.meter.Int64Counter(name)
	if err != nil {
		m.counters[name] = &NoopCounter{}
		return m.counters[name]
	}

	c := &otelCounter{counter: counter}
	m.counters[name] = c
	return c
}

// Histogram 返回或创建直方图
func (m *OTelMetrics) Histogram(name string) Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.histograms[name]; ok {
		return h
	}

	histogram, err := m.meter.Float64Histogram(name)
	if err != nil {
		m.histograms[name] = &NoopHistogram{}
		return m.histograms[name]
	}

	h := &otelHistogram{histogram: histogram}
	m.histograms[name] = h
	return h
}

// Gauge 返回或创建仪表
func (m *OTelMetrics) Gauge(name string) Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.gauges[name]; ok {
		return g
	}

	gauge, err := m.meter.Float64Gauge(name)
	if err != nil {
		m.gauges[name] = &NoopGauge{}
		return m.gauges[name]
	}

	g := &otelGauge{gauge: gauge}
	m.gauges[name] = g
	return g
}

// otelCounter OpenTelemetry 计数器
type otelCounter struct {
	counter metric.Int64Counter
}

// Add 增加计数
func (c *otelCounter) Add(ctx context.Context, value int64, attrs ...Attr) {
	c.counter.Add(ctx, value, metric.WithAttributes(convertAttrs(attrs)...))
}

// otelHistogram OpenTelemetry 直方图
type otelHistogram struct {
	histogram metric.Float64Histogram
}

// Record 记录值
func (h *otelHistogram) Record(ctx context.Context, value float64, attrs ...Attr) {
	h.histogram.Record(ctx, value, metric.WithAttributes(convertAttrs(attrs)...))
}

// otelGauge OpenTelemetry 仪表
type otelGauge struct {
	gauge metric.Float64Gauge
}

// Set 设置值
func (g *otelGauge) Set(ctx context.Context, value float64, attrs ...Attr) {
	g.gauge.Record(ctx, value, metric.WithAttributes(convertAttrs(attrs)...))
}

// convertAttrs 转换指标属性到 OpenTelemetry 属性
func convertAttrs(attrs []Attr) []attribute.KeyValue {
	result := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			result = append(result, attribute.String(a.Key, v))
		case bool:
			result = append(result, attribute.Bool(a.Key, v))
		case int:
			result = append(result, attribute.Int(a.Key, v))
		case int64:
			result = append(result, attribute.Int64(a.Key, v))
		case float64:
			result = append(result, attribute.Float64(a.Key, v))
		default:
			result = append(result, attribute.String(a.Key, fmt.Sprintf("%v", v)))
		}
	}
	return result
}

// compile-time interface check
var _ Metrics = (*OTelMetrics)(nil)
var _ Counter = (*otelCounter)(nil)
var _ Histogram = (*otelHistogram)(nil)
var _ Gauge = (*otelGauge)(nil)
