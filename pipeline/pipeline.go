package pipeline

import (
	"context"

	"github.com/rushteam/churnkit/core"
)

// Pipeline 是批量评分的核心抽象：把取数、过滤、评分、策略、落地
// 拆成可组合的 Node 链，逐个执行，任一 Node 出错即中止。
type Pipeline struct {
	Name  string
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	bctx *core.BatchContext,
	customers []*core.Customer,
) ([]*core.Customer, error) {
	cur := customers
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, bctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
