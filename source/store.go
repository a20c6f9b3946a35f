package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/pkg/conv"
	"github.com/rushteam/churnkit/schema"
)

// StoreProvider 是基于 core.Store 的画像提供者实现，采用适配器模式。
// 画像有两种存储形态：
//   - JSON 模式（默认）：整份画像是 {prefix}{id} 下的一个 JSON 对象
//   - Hash 模式：画像是 {prefix}{id} 下的 Hash，要求 Store 实现 KeyValueStore，
//     字段类型按 schema 还原（数值字段解析为 float64）
type StoreProvider struct {
	store     core.Store
	keyPrefix string
	useHash   bool
	schema    *schema.Schema
}

// StoreProviderOption 配置 StoreProvider。
type StoreProviderOption func(*StoreProvider)

// WithKeyPrefix 设置画像 key 前缀（默认 "churn:customer:"）。
func WithKeyPrefix(prefix string) StoreProviderOption {
	return func(p *StoreProvider) { p.keyPrefix = prefix }
}

// WithHashLayout 启用 Hash 存储形态（Redis 画像服务常用布局）。
func WithHashLayout() StoreProviderOption {
	return func(p *StoreProvider) { p.useHash = true }
}

// NewStoreProvider 创建基于 Store 的画像提供者。
func NewStoreProvider(s core.Store, opts ...StoreProviderOption) *StoreProvider {
	p := &StoreProvider{
		store:     s,
		keyPrefix: "churn:customer:",
		schema:    schema.Customer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ core.FieldProvider = (*StoreProvider)(nil)

func (p *StoreProvider) Name() string {
	return fmt.Sprintf("store.%s", p.store.Name())
}

// GetCustomerFields 获取单个客户的画像字段。
// key 不存在时透传 ErrStoreNotFound，由调用方决定跳过还是报错。
func (p *StoreProvider) GetCustomerFields(ctx context.Context, customerID string) (map[string]any, error) {
	key := p.keyPrefix + customerID

	if p.useHash {
		kv, ok := p.store.(core.KeyValueStore)
		if !ok {
			return nil, core.ErrStoreNotSupported
		}
		raw, err := kv.HGetAll(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, core.ErrStoreNotFound
		}
		return p.decodeHash(raw), nil
	}

	data, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return decodeProfile(data)
}

// BatchGetCustomerFields 批量获取客户画像。
// 缺画像或画像损坏的客户直接跳过，不出现在结果里。
func (p *StoreProvider) BatchGetCustomerFields(ctx context.Context, customerIDs []string) (map[string]map[string]any, error) {
	result := make(map[string]map[string]any, len(customerIDs))
	if len(customerIDs) == 0 {
		return result, nil
	}

	if p.useHash {
		// Hash 模式没有批量原语，逐个拉取
		for _, id := range customerIDs {
			fields, err := p.GetCustomerFields(ctx, id)
			if err != nil {
				continue
			}
			result[id] = fields
		}
		return result, nil
	}

	keys := make([]string, len(customerIDs))
	keyToID := make(map[string]string, len(customerIDs))
	for i, id := range customerIDs {
		key := p.keyPrefix + id
		keys[i] = key
		keyToID[key] = id
	}

	dataMap, err := p.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	for key, data := range dataMap {
		fields, err := decodeProfile(data)
		if err != nil {
			continue
		}
		result[keyToID[key]] = fields
	}
	return result, nil
}

// Close 实现 core.FieldProvider；Store 的生命周期由创建方管理，这里不关闭。
func (p *StoreProvider) Close(_ context.Context) error { return nil }

// decodeHash 按 schema 还原 Hash 字段类型：数值字段解析为 float64，
// 分类字段归一化为小写下划线形态。
func (p *StoreProvider) decodeHash(raw map[string][]byte) map[string]any {
	fields := make(map[string]any, len(raw))
	for name, value := range raw {
		name = schema.Normalize(name)
		field, ok := p.schema.Lookup(name)
		if ok && field.Kind != schema.KindCategorical {
			if f, parsed := conv.ParseFloat(string(value)); parsed {
				fields[name] = f
			}
			continue
		}
		fields[name] = schema.Normalize(string(value))
	}
	return fields
}

// decodeProfile 解析 JSON 画像。JSON 数字天然解码为 float64，无需再转。
func decodeProfile(data []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return schema.NormalizeRecord(fields), nil
}

// Store 是存储名单来源：从有序集合或 JSON 数组取客户 ID，
// 再经由 FieldProvider 补全画像。增量批次（昨日活跃、催缴名单）常用。
// Store 同时实现了 Source 和 Node 接口。
type Store struct {
	// Backend 用于读取候选名单
	Backend core.Store

	// Key 是名单 key。Backend 实现 KeyValueStore 时按有序集合 ZRange 读取
	// （高分在前），否则按 JSON 字符串数组读取。
	Key string

	// IDs 是内存候选清单（Backend 读不到时的兜底）
	IDs []string

	// Provider 补全画像字段（可选；为 nil 时产出只带 ID 的客户，
	// 交给后续 Enrich 节点处理）
	Provider core.FieldProvider

	// Limit 限制候选数量，<= 0 时默认 1000
	Limit int
}

func (s *Store) Name() string        { return "source.store" }
func (s *Store) Kind() pipeline.Kind { return pipeline.KindSource }

// Process 实现 Node 接口，直接调用 Customers。
func (s *Store) Process(
	ctx context.Context,
	bctx *core.BatchContext,
	_ []*core.Customer,
) ([]*core.Customer, error) {
	return s.Customers(ctx, bctx)
}

// Customers 实现 Source 接口。
func (s *Store) Customers(
	ctx context.Context,
	_ *core.BatchContext,
) ([]*core.Customer, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = 1000
	}

	var ids []string
	if s.Backend != nil && s.Key != "" {
		if kv, ok := s.Backend.(core.KeyValueStore); ok {
			members, err := kv.ZRange(ctx, s.Key, 0, int64(limit-1))
			if err == nil {
				ids = members
			}
		} else {
			data, err := s.Backend.Get(ctx, s.Key)
			if err == nil {
				var parsed []string
				if json.Unmarshal(data, &parsed) == nil {
					ids = parsed
				}
			}
		}
	}
	if len(ids) == 0 {
		ids = s.IDs
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	var profiles map[string]map[string]any
	if s.Provider != nil {
		got, err := s.Provider.BatchGetCustomerFields(ctx, ids)
		if err == nil {
			profiles = got
		}
	}

	out := make([]*core.Customer, 0, len(ids))
	for _, id := range ids {
		c := core.NewCustomer(id)
		if fields, ok := profiles[id]; ok {
			c.Fields = fields
		}
		out = append(out, c)
	}
	return out, nil
}
