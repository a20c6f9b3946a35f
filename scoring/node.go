package scoring

import (
	"context"
	"sort"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/pkg/utils"
)

// Node 是批量评分 Node（不限定评分器来源，进程内流水线或远程服务均可）。
// - 写入 labels：scored_by；评分器为本地 Pipeline 时额外写入 model_id
// - 更新 Probability/Churn 并按流失风险降序排序
type Node struct {
	Scorer core.Scorer
}

func (n *Node) Name() string        { return "score.churn" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindScore }

func (n *Node) Process(
	ctx context.Context,
	_ *core.BatchContext,
	customers []*core.Customer,
) ([]*core.Customer, error) {
	if n.Scorer == nil || len(customers) == 0 {
		return customers, nil
	}

	var modelID string
	if p, ok := n.Scorer.(*Pipeline); ok {
		modelID = p.Metadata().ModelID
	}

	for _, c := range customers {
		if c == nil {
			continue
		}
		pred, err := n.Scorer.Predict(ctx, c.Fields)
		if err != nil {
			return nil, err
		}
		c.Probability = pred.Probability
		c.Churn = pred.Churn
		c.PutLabel("scored_by", utils.Label{Value: n.Scorer.Name(), Source: "score"})
		if modelID != "" {
			c.PutLabel("model_id", utils.Label{Value: modelID, Source: "score"})
		}
	}

	sort.SliceStable(customers, func(i, j int) bool {
		if customers[i] == nil {
			return false
		}
		if customers[j] == nil {
			return true
		}
		return customers[i].Probability > customers[j].Probability
	})
	return customers, nil
}
