package policy

import (
	"context"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
)

// TopNNode 是容量截断节点，保留流失概率最高的前 N 个客户。
// 挽留团队每轮能触达的客户数有限，截断发生在分层之后、入队之前。
//
// 评分节点已按概率降序排列，这里只做截断。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &scoring.Node{...},       // 评分
//	        &policy.TierNode{...},    // 分层
//	        &policy.TopNNode{N: 200}, // 每轮最多触达 200 人
//	    },
//	}
type TopNNode struct {
	// N 要保留的客户数量（Top N）
	// 如果 N <= 0，则返回所有客户（不截断）
	// 如果 N > len(customers)，则返回所有客户
	N int
}

func (n *TopNNode) Name() string {
	return "policy.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindPolicy
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.BatchContext,
	customers []*core.Customer,
) ([]*core.Customer, error) {
	if n.N <= 0 {
		return customers, nil
	}
	if len(customers) <= n.N {
		return customers, nil
	}
	return customers[:n.N], nil
}
