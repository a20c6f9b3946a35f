package source

import (
	"context"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
)

// Static 是静态清单来源：客户集合在装配期就已确定。
// 用于冒烟批次、灰度名单与测试。
// Static 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Static struct {
	// IDs 是客户 ID 清单
	IDs []string

	// Fields 是按 ID 预置的画像字段（可选，缺省由后续 Enrich 节点补全）
	Fields map[string]map[string]any
}

func (s *Static) Name() string        { return "source.static" }
func (s *Static) Kind() pipeline.Kind { return pipeline.KindSource }

// Process 实现 Node 接口，直接调用 Customers。
func (s *Static) Process(
	ctx context.Context,
	bctx *core.BatchContext,
	_ []*core.Customer,
) ([]*core.Customer, error) {
	return s.Customers(ctx, bctx)
}

// Customers 实现 Source 接口。
func (s *Static) Customers(
	_ context.Context,
	_ *core.BatchContext,
) ([]*core.Customer, error) {
	out := make([]*core.Customer, 0, len(s.IDs))
	for _, id := range s.IDs {
		c := core.NewCustomer(id)
		if fields, ok := s.Fields[id]; ok {
			for k, v := range fields {
				c.Fields[k] = v
			}
		}
		out = append(out, c)
	}
	return out, nil
}
