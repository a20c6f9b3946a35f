package core

import (
	"context"
	"time"
)

// PredictionLog 是预测审计日志的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 追加写，不更新：预测记录是审计事实
//   - Recent 仅用于运维排查，不是分析查询接口
//
// 实现：
//   - store.SQLiteLog 单文件持久化（默认）
type PredictionLog interface {
	// Append 追加一批预测记录
	Append(ctx context.Context, records ...*PredictionRecord) error

	// Recent 返回最近 n 条记录（按时间倒序）
	Recent(ctx context.Context, n int) ([]*PredictionRecord, error)

	// Close 关闭底层资源
	Close() error
}

// PredictionRecord 是审计日志中的一行。
type PredictionRecord struct {
	ID          int64
	RequestID   string
	CustomerID  string
	Probability float64
	Churn       bool
	Tier        string
	ModelID     string
	Source      string
	CreatedAt   time.Time
}
