// Package builders 注册内置批处理 Node 的配置构建器。
//
// 纯配置可表达的 Node（CSV 来源、过滤、分层、截断）直接构建；
// 依赖外部服务的 Node（Redis 名单、Feast 画像、Kafka 上报）在构建期
// 完成连接，连不上让装配失败，而不是运行期静默跳过。
package builders

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/churnkit/client"
	"github.com/rushteam/churnkit/collector"
	"github.com/rushteam/churnkit/config"
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feast"
	"github.com/rushteam/churnkit/filter"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/pkg/conv"
	"github.com/rushteam/churnkit/policy"
	"github.com/rushteam/churnkit/scoring"
	"github.com/rushteam/churnkit/source"
	"github.com/rushteam/churnkit/store"
)

func init() {
	config.Register("source.static", BuildStaticSource)
	config.Register("source.csv", BuildCSVSource)
	config.Register("source.store", BuildStoreSource)
	config.Register("source.fanout", BuildFanoutSource)
	config.Register("source.enrich", BuildEnrichNode)
	config.Register("filter.node", BuildFilterNode)
	config.Register("score.churn", BuildScoreNode)
	config.Register("policy.tiers", BuildTierNode)
	config.Register("policy.topn", BuildTopNNode)
	config.Register("policy.segment_cap", BuildSegmentCapNode)
	config.Register("sink.queue", BuildQueueSinkNode)
	config.Register("sink.collect", BuildCollectNode)
}

func BuildStaticSource(cfg map[string]any) (pipeline.Node, error) {
	ids := conv.SliceAnyToString(cfg["ids"])
	if ids == nil {
		ids = []string{}
	}
	return &source.Static{IDs: ids}, nil
}

func BuildCSVSource(cfg map[string]any) (pipeline.Node, error) {
	path := conv.ConfigGet(cfg, "path", "")
	if path == "" {
		return nil, fmt.Errorf("path not found")
	}
	return &source.CSV{
		Path:  path,
		Limit: int(conv.ConfigGetInt64(cfg, "limit", 0)),
	}, nil
}

func BuildStoreSource(cfg map[string]any) (pipeline.Node, error) {
	src := &source.Store{
		Key:   conv.ConfigGet(cfg, "key", ""),
		IDs:   conv.SliceAnyToString(cfg["ids"]),
		Limit: int(conv.ConfigGetInt64(cfg, "limit", 0)),
	}

	// addr 缺省时退化为内存名单，Backend/Provider 由代码注入
	if addr := conv.ConfigGet(cfg, "addr", ""); addr != "" {
		backend, err := store.NewRedisStore(addr, int(conv.ConfigGetInt64(cfg, "db", 0)))
		if err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", addr, err)
		}
		src.Backend = backend

		var opts []source.StoreProviderOption
		if prefix := conv.ConfigGet(cfg, "profile_prefix", ""); prefix != "" {
			opts = append(opts, source.WithKeyPrefix(prefix))
		}
		if conv.ConfigGet(cfg, "hash_layout", false) {
			opts = append(opts, source.WithHashLayout())
		}
		src.Provider = source.NewStoreProvider(backend, opts...)
	}
	return src, nil
}

func BuildFanoutSource(cfg map[string]any) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]any)
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	sources := make([]source.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]any)
		if !ok {
			continue
		}
		sourceType := conv.ConfigGet(sourceMap, "type", "")
		node, err := buildSubSource(sourceType, sourceMap)
		if err != nil {
			return nil, err
		}
		sources = append(sources, node)
	}

	fanout := &source.Fanout{
		Sources: sources,
		Dedup:   conv.ConfigGet(cfg, "dedup", true),
	}
	if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
		fanout.Timeout = time.Duration(sec) * time.Second
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	switch strategy := conv.ConfigGet(cfg, "merge_strategy", ""); strategy {
	case "", source.MergeFirst:
		fanout.MergeStrategy = source.MergeFirst
	case source.MergeUnion, source.MergePriority:
		fanout.MergeStrategy = strategy
	default:
		return nil, fmt.Errorf("unknown merge strategy: %s", strategy)
	}
	return fanout, nil
}

// buildSubSource 构建 fanout 的子来源，子来源必须同时实现 Source 接口。
func buildSubSource(sourceType string, cfg map[string]any) (source.Source, error) {
	switch sourceType {
	case "static":
		node, err := BuildStaticSource(cfg)
		if err != nil {
			return nil, err
		}
		return node.(*source.Static), nil
	case "csv":
		node, err := BuildCSVSource(cfg)
		if err != nil {
			return nil, err
		}
		return node.(*source.CSV), nil
	case "store":
		node, err := BuildStoreSource(cfg)
		if err != nil {
			return nil, err
		}
		return node.(*source.Store), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", sourceType)
	}
}

func BuildEnrichNode(cfg map[string]any) (pipeline.Node, error) {
	providerCfg, ok := cfg["provider"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("provider not found or invalid")
	}
	provider, err := buildFieldProvider(providerCfg)
	if err != nil {
		return nil, err
	}
	return &source.EnrichNode{
		Provider:  provider,
		Overwrite: conv.ConfigGet(cfg, "overwrite", false),
	}, nil
}

// buildFieldProvider 构建画像提供方：store（Redis 画像）或 feast。
func buildFieldProvider(cfg map[string]any) (core.FieldProvider, error) {
	switch providerType := conv.ConfigGet(cfg, "type", ""); providerType {
	case "store":
		addr := conv.ConfigGet(cfg, "addr", "")
		if addr == "" {
			return nil, fmt.Errorf("store provider: addr not found")
		}
		backend, err := store.NewRedisStore(addr, int(conv.ConfigGetInt64(cfg, "db", 0)))
		if err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", addr, err)
		}
		var opts []source.StoreProviderOption
		if prefix := conv.ConfigGet(cfg, "prefix", ""); prefix != "" {
			opts = append(opts, source.WithKeyPrefix(prefix))
		}
		if conv.ConfigGet(cfg, "hash_layout", false) {
			opts = append(opts, source.WithHashLayout())
		}
		return source.NewStoreProvider(backend, opts...), nil
	case "feast":
		endpoint := conv.ConfigGet(cfg, "endpoint", "")
		if endpoint == "" {
			return nil, fmt.Errorf("feast provider: endpoint not found")
		}
		var clientOpts []feast.ClientOption
		if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
			clientOpts = append(clientOpts, feast.WithTimeout(time.Duration(sec)*time.Second))
		}
		if token := conv.ConfigGet(cfg, "token", ""); token != "" {
			clientOpts = append(clientOpts, feast.WithStaticToken(token))
		}
		fc, err := feast.NewGrpcClient(endpoint, conv.ConfigGet(cfg, "project", ""), clientOpts...)
		if err != nil {
			return nil, err
		}
		var opts []feast.ProviderOption
		if view := conv.ConfigGet(cfg, "feature_view", ""); view != "" {
			opts = append(opts, feast.WithFeatureView(view))
		}
		if key := conv.ConfigGet(cfg, "entity_key", ""); key != "" {
			opts = append(opts, feast.WithEntityKey(key))
		}
		return feast.NewProvider(fc, opts...), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", providerType)
	}
}

func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		adapter, err := filterStoreAdapter(filterMap)
		if err != nil {
			return nil, err
		}
		switch filterType := conv.ConfigGet(filterMap, "type", ""); filterType {
		case "min_tenure":
			filters = append(filters,
				filter.NewMinTenureFilter(conv.ConfigGetFloat64(filterMap, "min_tenure", 0)))
		case "do_not_contact":
			ids := conv.SliceAnyToString(filterMap["ids"])
			if ids == nil {
				ids = []string{}
			}
			key := conv.ConfigGet(filterMap, "key", "")
			filters = append(filters, filter.NewDoNotContactFilter(ids, adapter, key))
		case "recently_contacted":
			keyPrefix := conv.ConfigGet(filterMap, "key_prefix", "")
			cooldown := conv.ConfigGetInt64(filterMap, "cooldown_seconds", 0)
			filters = append(filters, filter.NewRecentlyContactedFilter(adapter, keyPrefix, cooldown))
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}

// filterStoreAdapter 按需连接过滤器的存储后端，未配置 addr 时返回 nil（纯内存模式）。
func filterStoreAdapter(cfg map[string]any) (*filter.StoreAdapter, error) {
	addr := conv.ConfigGet(cfg, "addr", "")
	if addr == "" {
		return nil, nil
	}
	backend, err := store.NewRedisStore(addr, int(conv.ConfigGetInt64(cfg, "db", 0)))
	if err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return filter.NewStoreAdapter(backend), nil
}

func BuildScoreNode(cfg map[string]any) (pipeline.Node, error) {
	timeout := 10 * time.Second
	if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}

	// endpoint 指向远程评分服务，model_ref 指向本地/HTTP 模型工件，二选一
	if endpoint := conv.ConfigGet(cfg, "endpoint", ""); endpoint != "" {
		return &scoring.Node{Scorer: client.NewClient(endpoint, client.WithTimeout(timeout))}, nil
	}
	if ref := conv.ConfigGet(cfg, "model_ref", ""); ref != "" {
		pipe, err := scoring.LoadRef(context.Background(), ref, timeout)
		if err != nil {
			return nil, err
		}
		return &scoring.Node{Scorer: pipe}, nil
	}
	return nil, fmt.Errorf("model_ref or endpoint is required")
}

func BuildTierNode(cfg map[string]any) (pipeline.Node, error) {
	var rules []policy.Rule
	if rulesConfig, ok := cfg["rules"].([]any); ok {
		for _, rc := range rulesConfig {
			ruleMap, ok := rc.(map[string]any)
			if !ok {
				continue
			}
			rules = append(rules, policy.Rule{
				Name: conv.ConfigGet(ruleMap, "name", ""),
				Expr: conv.ConfigGet(ruleMap, "expr", ""),
				Tier: conv.ConfigGet(ruleMap, "tier", ""),
			})
		}
	}

	var ladder policy.Ladder
	if ladderConfig, ok := cfg["ladder"].([]any); ok {
		for _, lc := range ladderConfig {
			stepMap, ok := lc.(map[string]any)
			if !ok {
				continue
			}
			ladder = append(ladder, policy.Step{
				Threshold: conv.ConfigGetFloat64(stepMap, "threshold", 0),
				Tier:      conv.ConfigGet(stepMap, "tier", ""),
			})
		}
	}

	if len(rules) == 0 {
		return &policy.TierNode{Ladder: ladder}, nil
	}
	engine, err := policy.NewEngine(rules, ladder)
	if err != nil {
		return nil, err
	}
	return &policy.TierNode{Engine: engine}, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &policy.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

func BuildSegmentCapNode(cfg map[string]any) (pipeline.Node, error) {
	return &policy.SegmentCapNode{
		SegmentKey: conv.ConfigGet(cfg, "segment_key", ""),
		PerSegment: int(conv.ConfigGetInt64(cfg, "per_segment", 0)),
	}, nil
}

func BuildQueueSinkNode(cfg map[string]any) (pipeline.Node, error) {
	addr := conv.ConfigGet(cfg, "addr", "")
	if addr == "" {
		return nil, fmt.Errorf("addr not found")
	}
	backend, err := store.NewRedisStore(addr, int(conv.ConfigGetInt64(cfg, "db", 0)))
	if err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}

	var opts []store.QueueOption
	if key := conv.ConfigGet(cfg, "key", ""); key != "" {
		opts = append(opts, store.WithQueueKey(key))
	}
	if prefix := conv.ConfigGet(cfg, "snapshot_prefix", ""); prefix != "" {
		opts = append(opts, store.WithSnapshotPrefix(prefix))
	}
	if prefix := conv.ConfigGet(cfg, "contacted_prefix", ""); prefix != "" {
		opts = append(opts, store.WithContactedPrefix(prefix))
	}
	if ttl := conv.ConfigGetInt64(cfg, "snapshot_ttl", 0); ttl > 0 {
		opts = append(opts, store.WithSnapshotTTL(int(ttl)))
	}
	return &store.QueueSinkNode{Queue: store.NewRetentionQueue(backend, opts...)}, nil
}

func BuildCollectNode(cfg map[string]any) (pipeline.Node, error) {
	brokers := conv.SliceAnyToString(cfg["brokers"])
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers not found")
	}
	kafkaCfg := collector.KafkaConfig{
		Brokers:     brokers,
		Topic:       conv.ConfigGet(cfg, "topic", ""),
		BatchSize:   int(conv.ConfigGetInt64(cfg, "batch_size", 0)),
		Acks:        conv.ConfigGet(cfg, "acks", ""),
		Compression: conv.ConfigGet(cfg, "compression", ""),
		Idempotent:  conv.ConfigGet(cfg, "idempotent", false),
	}
	if sec := conv.ConfigGetInt64(cfg, "flush_interval", 0); sec > 0 {
		kafkaCfg.FlushInterval = time.Duration(sec) * time.Second
	}
	kc, err := collector.NewKafkaCollector(kafkaCfg)
	if err != nil {
		return nil, err
	}
	return &collector.CollectNode{
		Collector: kc,
		Source:    conv.ConfigGet(cfg, "source", ""),
	}, nil
}
