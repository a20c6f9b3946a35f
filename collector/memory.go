package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/churnkit/core"
)

// MemoryCollector 把事件保存在进程内存里，用于测试与本地开发。
type MemoryCollector struct {
	mu     sync.Mutex
	events []*core.PredictionEvent
	closed bool
}

var _ core.Collector = (*MemoryCollector)(nil)

// NewMemoryCollector 创建内存采集器。
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// RecordPrediction 追加事件；采集器已关闭时静默丢弃。
func (c *MemoryCollector) RecordPrediction(_ context.Context, events ...*core.PredictionEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	now := time.Now()
	for _, e := range events {
		if e == nil {
			continue
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		c.events = append(c.events, e)
	}
	return nil
}

// Events 返回已采集事件的快照副本。
func (c *MemoryCollector) Events() []*core.PredictionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*core.PredictionEvent, len(c.events))
	copy(out, c.events)
	return out
}

// Reset 清空已采集的事件。
func (c *MemoryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// Close 关闭采集器，之后的事件被丢弃。
func (c *MemoryCollector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
