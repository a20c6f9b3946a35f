package policy

import (
	"context"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/pkg/utils"
)

// TierNode 是分层 Node，为已评分客户划定挽留层级。
// 通常紧跟评分节点，之后由 TopN / 入队等节点消费层级结果。
type TierNode struct {
	// Engine 可选，为 nil 时只走默认概率阶梯
	Engine *Engine

	// Ladder 可选，Engine 为 nil 时生效；nil 时使用 DefaultLadder
	Ladder Ladder
}

func (n *TierNode) Name() string {
	return "policy.tiers"
}

func (n *TierNode) Kind() pipeline.Kind {
	return pipeline.KindPolicy
}

func (n *TierNode) Process(
	_ context.Context,
	bctx *core.BatchContext,
	customers []*core.Customer,
) ([]*core.Customer, error) {
	ladder := n.Ladder
	if ladder == nil {
		ladder = DefaultLadder()
	}

	for _, c := range customers {
		if c == nil {
			continue
		}

		tier, rule := "", ""
		if n.Engine != nil {
			tier, rule = n.Engine.TierFor(c, bctx)
		} else {
			tier = ladder.TierFor(c.Probability)
		}

		c.Tier = tier
		c.PutLabel("tier", utils.Label{Value: tier, Source: "policy"})
		if rule != "" {
			// 规则命中时记录归因，便于运营复盘某客户为何进了该层
			c.PutLabel("tier_rule", utils.Label{Value: rule, Source: "policy"})
		}
	}

	return customers, nil
}
