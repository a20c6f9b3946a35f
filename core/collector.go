package core

import (
	"context"
	"time"
)

// Collector 是预测事件收集的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（collector）实现
//   - 上报必须是非阻塞的：评分主链路不等待下游确认
//   - 失败只记日志不重试，事件属尽力而为的旁路数据
//
// 实现：
//   - collector.KafkaCollector 异步批量写 Kafka
//   - collector.MemoryCollector 进程内缓存（测试/开发）
//   - collector.NopCollector 丢弃所有事件（默认）
type Collector interface {
	// RecordPrediction 上报一批预测事件
	RecordPrediction(ctx context.Context, events ...*PredictionEvent) error

	// Close 刷出缓冲并释放资源
	Close() error
}

// PredictionEvent 是单次预测的旁路事件，供下游分析/监控消费。
type PredictionEvent struct {
	RequestID   string    `json:"request_id"`
	CustomerID  string    `json:"customer_id"`
	Source      string    `json:"source"` // http / batch / smoke
	Probability float64   `json:"churn_probability"`
	Churn       bool      `json:"churn"`
	Tier        string    `json:"tier,omitempty"`
	ModelID     string    `json:"model_id"`
	Timestamp   time.Time `json:"timestamp"`
}
