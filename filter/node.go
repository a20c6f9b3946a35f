package filter

import (
	"context"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/pkg/utils"
)

// FilterNode 是过滤 Node，可以组合多个过滤器。
// 任何一个过滤器返回 true，该客户就会被剔除出本次批处理。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	bctx *core.BatchContext,
	customers []*core.Customer,
) ([]*core.Customer, error) {
	if len(n.Filters) == 0 || len(customers) == 0 {
		return customers, nil
	}

	out := make([]*core.Customer, 0, len(customers))

	for _, c := range customers {
		if c == nil {
			continue
		}

		shouldFilter := false
		filterReason := ""

		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, bctx, c)
			if err != nil {
				// 过滤器出错时保留该客户，不中断整批
				continue
			}
			if ok {
				shouldFilter = true
				filterReason = f.Name()
				break
			}
		}

		if shouldFilter {
			// 记录剔除原因，便于排查某个客户为何未被触达
			c.PutLabel("filtered", utils.Label{
				Value:  "true",
				Source: filterReason,
			})
			continue
		}

		out = append(out, c)
	}

	return out, nil
}
