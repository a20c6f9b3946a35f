package policy

import (
	"context"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/pkg/conv"
)

// SegmentCapNode 限制单个客群在一轮触达中的占比。
// 不设上限时，高危名单容易被某一类客户挤满（如全是 fiber_optic 月付客户），
// 其他客群完全得不到挽留资源。
//
// 分组键优先取 label[SegmentKey].Value，其次取画像字段 Fields[SegmentKey]。
// 输入已按概率降序，超出上限的客户直接丢弃（保留的都是组内风险最高的）。
type SegmentCapNode struct {
	// SegmentKey 是分组键，默认 "contract"
	SegmentKey string

	// PerSegment 是每组保留的最大客户数，<= 0 表示不限制
	PerSegment int
}

func (n *SegmentCapNode) Name() string {
	return "policy.segment_cap"
}

func (n *SegmentCapNode) Kind() pipeline.Kind {
	return pipeline.KindPolicy
}

func (n *SegmentCapNode) Process(
	_ context.Context,
	_ *core.BatchContext,
	customers []*core.Customer,
) ([]*core.Customer, error) {
	if n.PerSegment <= 0 || len(customers) == 0 {
		return customers, nil
	}

	key := n.SegmentKey
	if key == "" {
		key = "contract"
	}

	counts := make(map[string]int, 8)
	out := make([]*core.Customer, 0, len(customers))

	for _, c := range customers {
		if c == nil {
			continue
		}

		segment := ""
		if c.Labels != nil {
			if lbl, ok := c.Labels[key]; ok {
				segment = lbl.Value
			}
		}
		if segment == "" && c.Fields != nil {
			if v, ok := c.Fields[key]; ok {
				segment, _ = conv.ToString(v)
			}
		}

		// 无法分组的客户不受限制
		if segment == "" {
			out = append(out, c)
			continue
		}
		if counts[segment] >= n.PerSegment {
			continue
		}
		counts[segment]++
		out = append(out, c)
	}

	return out, nil
}
