package collector

import (
	"context"
	"time"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
)

// CollectNode 是旁路上报 Sink：把批次中已评分客户的预测结果
// 转成 PredictionEvent 交给 Collector。上报失败不影响批次结果。
type CollectNode struct {
	Collector core.Collector

	// Source 事件来源标识（默认 "batch"）
	Source string
}

func (n *CollectNode) Name() string        { return "sink.collect" }
func (n *CollectNode) Kind() pipeline.Kind { return pipeline.KindSink }

func (n *CollectNode) Process(
	ctx context.Context,
	bctx *core.BatchContext,
	customers []*core.Customer,
) ([]*core.Customer, error) {
	if n.Collector == nil || len(customers) == 0 {
		return customers, nil
	}

	source := n.Source
	if source == "" {
		source = "batch"
	}
	var requestID string
	if bctx != nil {
		requestID = bctx.JobID
	}

	now := time.Now()
	events := make([]*core.PredictionEvent, 0, len(customers))
	for _, c := range customers {
		if c == nil {
			continue
		}
		// 只上报实际评分过的客户
		if _, scored := c.GetLabel("scored_by"); !scored {
			continue
		}
		e := &core.PredictionEvent{
			RequestID:   requestID,
			CustomerID:  c.ID,
			Source:      source,
			Probability: c.Probability,
			Churn:       c.Churn,
			Tier:        c.Tier,
			Timestamp:   now,
		}
		if lbl, ok := c.GetLabel("model_id"); ok {
			e.ModelID = lbl.Value
		}
		events = append(events, e)
	}
	if len(events) == 0 {
		return customers, nil
	}

	// 上报是旁路行为，失败不阻塞批次
	_ = n.Collector.RecordPrediction(ctx, events...)
	return customers, nil
}
