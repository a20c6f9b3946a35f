package source

import (
	"context"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/schema"
	"github.com/rushteam/churnkit/train"
)

// CSV 是数据集文件来源：按行产出客户，画像字段已按 schema 归一化。
// 全量回溯评分（backfill）与离线体检批次用它直接吃数仓导出的 CSV。
// CSV 同时实现了 Source 和 Node 接口。
type CSV struct {
	// Path 是数据集文件路径
	Path string

	// Limit 限制产出的客户数量，<= 0 表示不限制
	Limit int
}

func (s *CSV) Name() string        { return "source.csv" }
func (s *CSV) Kind() pipeline.Kind { return pipeline.KindSource }

// Process 实现 Node 接口，直接调用 Customers。
func (s *CSV) Process(
	ctx context.Context,
	bctx *core.BatchContext,
	_ []*core.Customer,
) ([]*core.Customer, error) {
	return s.Customers(ctx, bctx)
}

// Customers 实现 Source 接口。
func (s *CSV) Customers(
	_ context.Context,
	_ *core.BatchContext,
) ([]*core.Customer, error) {
	ds, err := train.LoadCSV(s.Path, schema.Customer())
	if err != nil {
		return nil, err
	}

	n := ds.Len()
	if s.Limit > 0 && s.Limit < n {
		n = s.Limit
	}

	out := make([]*core.Customer, 0, n)
	for i := 0; i < n; i++ {
		c := core.NewCustomer(ds.IDs[i])
		c.Fields = ds.Records[i]
		out = append(out, c)
	}
	return out, nil
}
