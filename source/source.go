// Package source 提供批量评分的客户候选来源与画像补全。
//
// Source 产出本轮要评估的客户集合（全量、增量、名单），
// FieldProvider 的各实现负责把画像字段补齐到可编码的程度。
package source

import (
	"context"

	"github.com/rushteam/churnkit/core"
)

// Source 表示一个可复用的客户候选来源（CSV 全量 / 存储名单 / 静态清单 / ...）。
// 可以把它理解为"可并发 fan-out 的取数单元"。
type Source interface {
	Name() string
	Customers(ctx context.Context, bctx *core.BatchContext) ([]*core.Customer, error)
}
