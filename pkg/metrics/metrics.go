// Package metrics 声明进程级 Prometheus 指标。
//
// 指标随包初始化注册到默认 Registry，服务进程通过 Handler 暴露 /metrics。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PredictionsTotal 按来源与决策统计预测次数
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "churnkit", Subsystem: "scoring", Name: "predictions_total",
			Help: "Total predictions by source and churn decision."},
		[]string{"source", "churn"},
	)

	// PredictionErrors 按错误代码统计预测失败次数
	PredictionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "churnkit", Subsystem: "scoring", Name: "prediction_errors_total",
			Help: "Total failed predictions by domain error code."},
		[]string{"code"},
	)

	// PredictionDuration 单次预测耗时（编码 + 打分）
	PredictionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "churnkit", Subsystem: "scoring", Name: "prediction_duration_seconds",
			Help: "Prediction latency in seconds.", Buckets: prometheus.DefBuckets},
	)

	// HTTPRequests 按方法、路径、状态码统计 HTTP 请求
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "churnkit", Subsystem: "http", Name: "requests_total",
			Help: "Total HTTP requests by method, path and status."},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration HTTP 请求耗时
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "churnkit", Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)

	// BatchRuns 批次执行次数（按流水线与结果）
	BatchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "churnkit", Subsystem: "batch", Name: "runs_total",
			Help: "Total batch pipeline runs by pipeline and status."},
		[]string{"pipeline", "status"},
	)

	// BatchDuration 单轮批次耗时
	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "churnkit", Subsystem: "batch", Name: "run_duration_seconds",
			Help: "Batch pipeline run duration in seconds.",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300}},
		[]string{"pipeline"},
	)

	// BatchCustomersOut 最近一轮批次产出的客户数
	BatchCustomersOut = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "churnkit", Subsystem: "batch", Name: "customers_out",
			Help: "Customers produced by the last batch pipeline run."},
		[]string{"pipeline"},
	)

	// QueueSize 挽留队列当前长度
	QueueSize = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "churnkit", Subsystem: "queue", Name: "size",
			Help: "Current retention queue size."},
	)
)

func init() {
	_ = prometheus.Register(PredictionsTotal)
	_ = prometheus.Register(PredictionErrors)
	_ = prometheus.Register(PredictionDuration)
	_ = prometheus.Register(HTTPRequests)
	_ = prometheus.Register(HTTPDuration)
	_ = prometheus.Register(BatchRuns)
	_ = prometheus.Register(BatchDuration)
	_ = prometheus.Register(BatchCustomersOut)
	_ = prometheus.Register(QueueSize)
}

// Handler 返回 /metrics 端点的 HTTP handler。
func Handler() http.Handler {
	return promhttp.Handler()
}
