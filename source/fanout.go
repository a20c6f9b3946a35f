package source

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/pkg/utils"
)

// 合并策略常量。
const (
	// MergeFirst 按 ID 去重，保留第一个出现的（默认策略）
	MergeFirst = "first"
	// MergeUnion 合并所有结果，不去重
	MergeUnion = "union"
	// MergePriority 相同 ID 时保留优先级更高的来源（Sources 中索引更小）
	MergePriority = "priority"
)

// Fanout 是一个 Source Node：并发执行多个客户来源，并合并结果。
// 支持超时、并发上限、优先级合并策略。
//
// 典型用法是把存量名单与增量名单并成一轮批次：
//
//	&source.Fanout{
//	    Sources: []source.Source{
//	        &source.Store{Key: "churn:watchlist", ...}, // 高优名单
//	        &source.CSV{Path: "candidates.csv"},        // 全量候选
//	    },
//	    Dedup:         true,
//	    MergeStrategy: source.MergePriority,
//	}
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个来源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy string        // 合并策略：first / union / priority
}

func (n *Fanout) Name() string        { return "source.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindSource }

func (n *Fanout) Process(
	ctx context.Context,
	bctx *core.BatchContext,
	_ []*core.Customer,
) ([]*core.Customer, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	var (
		mu    sync.Mutex
		all   []*core.Customer
		eg, _ = errgroup.WithContext(ctx)
	)

	// 限流：使用 semaphore 控制并发数
	var sem chan struct{}
	if n.MaxConcurrent > 0 {
		sem = make(chan struct{}, n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		s := src
		priority := i // 索引越小优先级越高

		eg.Go(func() error {
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			fetchCtx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}

			customers, err := s.Customers(fetchCtx, bctx)
			if err != nil {
				// 单个来源超时或出错时返回空结果，不中断其他来源
				return nil
			}

			// 记录来源 label，方便归因与观测
			for _, c := range customers {
				c.PutLabel("source", utils.Label{Value: s.Name(), Source: "source"})
				c.PutLabel("source_priority", utils.Label{Value: strconv.Itoa(priority), Source: "source"})
			}

			mu.Lock()
			all = append(all, customers...)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	switch n.MergeStrategy {
	case MergePriority:
		return n.mergeByPriority(all), nil
	case MergeUnion:
		return all, nil
	default: // MergeFirst 或默认
		return n.mergeFirst(all), nil
	}
}

// mergeFirst 按 ID 去重，保留第一个出现的（默认策略）。
func (n *Fanout) mergeFirst(all []*core.Customer) []*core.Customer {
	if !n.Dedup {
		return all
	}
	seen := make(map[string]*core.Customer, len(all))
	out := make([]*core.Customer, 0, len(all))
	for _, c := range all {
		if c == nil {
			continue
		}
		if old, ok := seen[c.ID]; ok {
			for k, v := range c.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[c.ID] = c
		out = append(out, c)
	}
	return out
}

// mergeByPriority 按优先级合并：相同 ID 时保留优先级更高的（索引更小）。
func (n *Fanout) mergeByPriority(all []*core.Customer) []*core.Customer {
	if !n.Dedup {
		return all
	}
	seen := make(map[string]*core.Customer, len(all))
	order := make([]string, 0, len(all))
	for _, c := range all {
		if c == nil {
			continue
		}
		old, exists := seen[c.ID]
		if !exists {
			seen[c.ID] = c
			order = append(order, c.ID)
			continue
		}
		if sourcePriority(c) < sourcePriority(old) {
			// 高优来源替换，但保留已合并的标签
			for k, v := range old.Labels {
				c.PutLabel(k, v)
			}
			seen[c.ID] = c
		} else {
			for k, v := range c.Labels {
				old.PutLabel(k, v)
			}
		}
	}
	out := make([]*core.Customer, 0, len(seen))
	for _, id := range order {
		out = append(out, seen[id])
	}
	return out
}

func sourcePriority(c *core.Customer) int {
	lbl, ok := c.GetLabel("source_priority")
	if !ok {
		return 999
	}
	// 合并过的标签形如 "0|1"，取第一段（最早写入的来源）
	value := lbl.Value
	for i := 0; i < len(value); i++ {
		if value[i] == '|' {
			value = value[:i]
			break
		}
	}
	p, err := strconv.Atoi(value)
	if err != nil {
		return 999
	}
	return p
}
