package filter

import (
	"context"

	"github.com/rushteam/churnkit/core"
)

// Filter 是挽留批处理的过滤器抽象，用于判断一个客户是否应该被剔除。
// 返回 true 表示剔除（不进入后续评分与挽留），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 customer 是否应该被剔除
	ShouldFilter(ctx context.Context, bctx *core.BatchContext, customer *core.Customer) (bool, error)
}
