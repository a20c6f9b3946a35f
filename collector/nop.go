package collector

import (
	"context"

	"github.com/rushteam/churnkit/core"
)

// NopCollector 丢弃所有事件，是未配置采集时的默认实现。
type NopCollector struct{}

var _ core.Collector = NopCollector{}

func (NopCollector) RecordPrediction(context.Context, ...*core.PredictionEvent) error { return nil }

func (NopCollector) Close() error { return nil }
