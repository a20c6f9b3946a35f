package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/pkg/metrics"
	"github.com/rushteam/churnkit/pkg/utils"
)

// RetentionQueue 是挽留工单队列：
//   - 有序集合按流失概率排列客户 ID，挽留团队从头部领取
//   - 每个客户另存一份评分快照，领取时直接展示画像与层级
//   - 客户被触达后出队，并记录触达时间供冷却过滤使用
type RetentionQueue struct {
	store           core.KeyValueStore
	queueKey        string
	snapshotPrefix  string
	contactedPrefix string
	snapshotTTL     int
}

// QueueEntry 是队列里的一条挽留工单。
type QueueEntry struct {
	CustomerID  string         `json:"customer_id"`
	Probability float64        `json:"churn_probability"`
	Churn       bool           `json:"churn"`
	Tier        string         `json:"tier,omitempty"`
	ModelID     string         `json:"model_id,omitempty"`
	JobID       string         `json:"job_id,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	EnqueuedAt  time.Time      `json:"enqueued_at"`
}

// QueueOption 配置 RetentionQueue。
type QueueOption func(*RetentionQueue)

// WithQueueKey 设置队列 key（默认 "churn:queue"）。
func WithQueueKey(key string) QueueOption {
	return func(q *RetentionQueue) { q.queueKey = key }
}

// WithSnapshotPrefix 设置评分快照 key 前缀（默认 "churn:snapshot:"）。
func WithSnapshotPrefix(prefix string) QueueOption {
	return func(q *RetentionQueue) { q.snapshotPrefix = prefix }
}

// WithContactedPrefix 设置触达时间 key 前缀（默认 "churn:contacted:"），
// 与 filter.RecentlyContactedFilter 的 KeyPrefix 保持一致。
func WithContactedPrefix(prefix string) QueueOption {
	return func(q *RetentionQueue) { q.contactedPrefix = prefix }
}

// WithSnapshotTTL 设置快照生存时间（秒），默认 7 天。
// 队列成员不设 TTL，快照过期后 Top 仅返回 ID 与概率。
func WithSnapshotTTL(seconds int) QueueOption {
	return func(q *RetentionQueue) { q.snapshotTTL = seconds }
}

// NewRetentionQueue 创建挽留队列。
func NewRetentionQueue(s core.KeyValueStore, opts ...QueueOption) *RetentionQueue {
	q := &RetentionQueue{
		store:           s,
		queueKey:        "churn:queue",
		snapshotPrefix:  "churn:snapshot:",
		contactedPrefix: "churn:contacted:",
		snapshotTTL:     7 * 24 * 3600,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push 按流失概率入队，并写入评分快照。
func (q *RetentionQueue) Push(ctx context.Context, bctx *core.BatchContext, customers ...*core.Customer) error {
	for _, c := range customers {
		if c == nil || c.ID == "" {
			continue
		}
		if err := q.store.ZAdd(ctx, q.queueKey, c.Probability, c.ID); err != nil {
			return fmt.Errorf("enqueue %s: %w", c.ID, err)
		}

		entry := &QueueEntry{
			CustomerID:  c.ID,
			Probability: c.Probability,
			Churn:       c.Churn,
			Tier:        c.Tier,
			Fields:      c.Fields,
			EnqueuedAt:  time.Now().UTC(),
		}
		if bctx != nil {
			entry.JobID = bctx.JobID
		}
		if lbl, ok := c.GetLabel("model_id"); ok {
			entry.ModelID = lbl.Value
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal snapshot %s: %w", c.ID, err)
		}
		if err := q.store.Set(ctx, q.snapshotPrefix+c.ID, data, q.snapshotTTL); err != nil {
			return fmt.Errorf("save snapshot %s: %w", c.ID, err)
		}
	}
	return nil
}

// Top 返回队列头部（流失概率最高）的 n 条工单。
// 快照缺失的成员退化为只含 ID 与概率的工单。
func (q *RetentionQueue) Top(ctx context.Context, n int) ([]*QueueEntry, error) {
	if n <= 0 {
		n = 10
	}
	ids, err := q.store.ZRange(ctx, q.queueKey, 0, int64(n-1))
	if err != nil {
		return nil, fmt.Errorf("range queue: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = q.snapshotPrefix + id
	}
	snapshots, err := q.store.BatchGet(ctx, keys)
	if err != nil {
		snapshots = nil
	}

	out := make([]*QueueEntry, 0, len(ids))
	for i, id := range ids {
		if data, ok := snapshots[keys[i]]; ok {
			var entry QueueEntry
			if json.Unmarshal(data, &entry) == nil {
				out = append(out, &entry)
				continue
			}
		}
		entry := &QueueEntry{CustomerID: id}
		if score, err := q.store.ZScore(ctx, q.queueKey, id); err == nil {
			entry.Probability = score
		}
		out = append(out, entry)
	}
	return out, nil
}

// Size 返回队列长度的近似值（取前 10000 个成员计数）。
func (q *RetentionQueue) Size(ctx context.Context) (int, error) {
	ids, err := q.store.ZRange(ctx, q.queueKey, 0, 9999)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// MarkContacted 记录客户已被触达：出队、清快照、写触达时间。
// 触达时间供 filter.RecentlyContactedFilter 做冷却判断。
func (q *RetentionQueue) MarkContacted(ctx context.Context, customerID string) error {
	if err := q.store.ZRem(ctx, q.queueKey, customerID); err != nil {
		return fmt.Errorf("dequeue %s: %w", customerID, err)
	}
	if err := q.store.Delete(ctx, q.snapshotPrefix+customerID); err != nil {
		return fmt.Errorf("drop snapshot %s: %w", customerID, err)
	}
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := q.store.Set(ctx, q.contactedPrefix+customerID, []byte(now)); err != nil {
		return fmt.Errorf("mark contacted %s: %w", customerID, err)
	}
	return nil
}

// QueueSinkNode 是入队 Sink：把走完评分与分层的客户推进挽留队列。
type QueueSinkNode struct {
	Queue *RetentionQueue
}

func (n *QueueSinkNode) Name() string {
	return "sink.queue"
}

func (n *QueueSinkNode) Kind() pipeline.Kind {
	return pipeline.KindSink
}

func (n *QueueSinkNode) Process(
	ctx context.Context,
	bctx *core.BatchContext,
	customers []*core.Customer,
) ([]*core.Customer, error) {
	if n.Queue == nil || len(customers) == 0 {
		return customers, nil
	}
	if err := n.Queue.Push(ctx, bctx, customers...); err != nil {
		return nil, err
	}
	if size, err := n.Queue.Size(ctx); err == nil {
		metrics.QueueSize.Set(float64(size))
	}
	for _, c := range customers {
		if c == nil {
			continue
		}
		c.PutLabel("queued", utils.Label{Value: "true", Source: "sink"})
	}
	return customers, nil
}
