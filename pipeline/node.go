package pipeline

import (
	"context"

	"github.com/rushteam/churnkit/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindSource Kind = "source" // 取数阶段：产出待评分客户集
	KindFilter Kind = "filter" // 过滤阶段：剔除不应触达的客户
	KindScore  Kind = "score"  // 评分阶段：计算流失概率并排序
	KindPolicy Kind = "policy" // 策略阶段：分层、截断等业务决策
	KindSink   Kind = "sink"   // 落地阶段：写挽留队列、上报事件等
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 customers -> 输出 customers”的形态，
// 方便 Source 生成、Filter 截断、Policy 重排等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		bctx *core.BatchContext,
		customers []*core.Customer,
	) ([]*core.Customer, error)
}
