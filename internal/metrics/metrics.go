// Package metrics 暴露批处理运行期间的 Prometheus 指标。
//
// 指标：
//   - labelscan_items_total{status}: 已完成条目数（ok / not_found / failed）
//   - labelscan_item_errors_total{code}: 失败条目按错误码计数
//   - labelscan_item_duration_seconds: 单条目处理耗时
//   - labelscan_items_in_flight: 正在处理的条目数
//   - labelscan_batch_processed / labelscan_batch_total: 当前 batch 进度
//
// 每个 Collector 使用独立的 Registry，不污染 prometheus.DefaultRegisterer。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/John-Robertt/labelscan/internal/domain"
)

// Collector Prometheus 指标收集器。所有方法可并发调用。
type Collector struct {
	reg *prometheus.Registry

	items     *prometheus.CounterVec
	errors    *prometheus.CounterVec
	duration  prometheus.Histogram
	inFlight  prometheus.Gauge
	processed prometheus.Gauge
	total     prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelscan_items_total",
			Help: "Total number of finished work items by status",
		}, []string{"status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelscan_item_errors_total",
			Help: "Total number of failed work items by error code",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "labelscan_item_duration_seconds",
			Help:    "Work item processing latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "labelscan_items_in_flight",
			Help: "Current number of in-flight work items",
		}),
		processed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "labelscan_batch_processed",
			Help: "Number of processed items in the current batch",
		}),
		total: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "labelscan_batch_total",
			Help: "Number of items in the current batch",
		}),
	}
	c.reg.MustRegister(c.items, c.errors, c.duration, c.inFlight, c.processed, c.total)
	return c
}

// StartBatch 重置进度 gauge。
func (c *Collector) StartBatch(total int) {
	c.total.Set(float64(total))
	c.processed.Set(0)
}

// ItemStarted 在 worker 开始处理条目时调用。
func (c *Collector) ItemStarted() {
	c.inFlight.Inc()
}

// ItemFinished 在 worker 结束处理条目时调用（无论成功失败）。
func (c *Collector) ItemFinished(seconds float64) {
	c.inFlight.Dec()
	c.duration.Observe(seconds)
}

// RecordOutcome 记录条目终态并推进进度。
func (c *Collector) RecordOutcome(o domain.Outcome, processed int) {
	c.items.WithLabelValues(o.Status).Inc()
	if o.Status == domain.StatusFailed && o.ErrorCode != "" {
		c.errors.WithLabelValues(o.ErrorCode).Inc()
	}
	c.processed.Set(float64(processed))
}

// Handler 返回 /metrics 端点的 http.Handler。
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Registry 暴露底层 registry（测试与自定义端点使用）。
func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}
