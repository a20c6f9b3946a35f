// Package collector 实现预测事件的旁路上报。
//
// 评分主链路只负责把事件交给 core.Collector，上报本身异步批量完成：
// 事件先进入内存缓冲，由后台协程按批量大小或时间间隔刷出。
// 上报失败只丢弃不重试，预测事件属尽力而为的旁路数据。
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/rushteam/churnkit/core"
)

// KafkaConfig Kafka 采集器配置。
type KafkaConfig struct {
	Brokers []string // Broker 地址列表
	Topic   string   // 目标 Topic（默认 churn.predictions）

	BatchSize     int           // 缓冲批量大小（默认 100）
	FlushInterval time.Duration // 定时刷新间隔（默认 1s）

	ClientID    string // 客户端 ID（默认 churnkit-collector）
	Acks        string // none / leader / all（默认 leader）
	Compression string // gzip / snappy / lz4 / zstd（默认不压缩）
	Idempotent  bool   // 幂等写，启用时 acks 固定为 all
	MaxRetries  int    // 单条记录最大重试次数（默认 3）
}

// KafkaCollector 异步批量写 Kafka 的采集器（生产环境推荐）。
type KafkaCollector struct {
	client        *kgo.Client
	topic         string
	batchSize     int
	flushInterval time.Duration

	mu        sync.Mutex
	buffer    []*core.PredictionEvent
	lastFlush time.Time
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup
	stopCh    chan struct{}
}

var _ core.Collector = (*KafkaCollector)(nil)

// NewKafkaCollector 创建 Kafka 采集器并启动后台刷新协程。
func NewKafkaCollector(cfg KafkaConfig) (*KafkaCollector, error) {
	if len(cfg.Brokers) == 0 {
		return nil, core.NewDomainError(core.ModuleCollector, core.ErrorCodeInvalidInput,
			"collector: no kafka brokers configured")
	}
	if cfg.Topic == "" {
		cfg.Topic = "churn.predictions"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "churnkit-collector"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.RecordRetries(cfg.MaxRetries),
	}

	if cfg.Idempotent {
		// 幂等写要求 all ISR acks
		opts = append(opts, kgo.RequiredAcks(kgo.AllISRAcks()))
	} else {
		opts = append(opts, kgo.DisableIdempotentWrite())
		switch cfg.Acks {
		case "none":
			opts = append(opts, kgo.RequiredAcks(kgo.NoAck()))
		case "all":
			opts = append(opts, kgo.RequiredAcks(kgo.AllISRAcks()))
		default:
			opts = append(opts, kgo.RequiredAcks(kgo.LeaderAck()))
		}
	}

	switch cfg.Compression {
	case "gzip":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.GzipCompression()))
	case "snappy":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case "lz4":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case "zstd":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	c := &KafkaCollector{
		client:        client,
		topic:         cfg.Topic,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		buffer:        make([]*core.PredictionEvent, 0, cfg.BatchSize),
		lastFlush:     time.Now(),
		stopCh:        make(chan struct{}),
	}

	c.wg.Add(1)
	go c.flushLoop()

	return c, nil
}

// RecordPrediction 把事件写入缓冲，不等待发送结果。
func (c *KafkaCollector) RecordPrediction(_ context.Context, events ...*core.PredictionEvent) error {
	if len(events) == 0 || c.isClosed() {
		return nil
	}

	now := time.Now()
	batch := make([]*core.PredictionEvent, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		batch = append(batch, e)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.buffer = append(c.buffer, batch...)

	// 达到批量大小时异步触发发送，不阻塞调用方
	if len(c.buffer) >= c.batchSize {
		go c.flush()
	}
	return nil
}

// flushLoop 定时刷新循环。
func (c *KafkaCollector) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			shouldFlush := len(c.buffer) > 0 && time.Since(c.lastFlush) >= c.flushInterval
			c.mu.Unlock()

			if shouldFlush {
				c.flush()
			}
		case <-c.stopCh:
			return
		}
	}
}

// flush 把缓冲里的事件序列化后异步发往 Kafka。
func (c *KafkaCollector) flush() {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	events := make([]*core.PredictionEvent, len(c.buffer))
	copy(events, c.buffer)
	c.buffer = c.buffer[:0]
	c.lastFlush = time.Now()
	c.mu.Unlock()

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}

		record := &kgo.Record{
			Topic: c.topic,
			// CustomerID 作为 Key，保证同一客户的事件落同一分区、保序
			Key:   []byte(event.CustomerID),
			Value: data,
		}
		c.client.Produce(context.Background(), record, func(_ *kgo.Record, err error) {
			// 发送失败直接丢弃，旁路数据不做重试与落盘
			_ = err
		})
	}
}

func (c *KafkaCollector) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close 停止刷新循环，刷出剩余缓冲并关闭 Kafka 客户端。
func (c *KafkaCollector) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.stopCh)
		c.flush()
		c.wg.Wait()
		c.client.Close()
	})
	return nil
}
