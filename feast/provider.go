package feast

import (
	"context"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/schema"
)

// Provider 把 Feast 在线特征映射为画像字段，实现 core.FieldProvider，
// 可直接交给 EnrichNode 或与其他提供者组成 FallbackProvider。
//
// 特征按 "{view}:{字段名}" 引用，实体键默认 customer_id。
// 返回的字段已按 schema 归一化，可直接参与编码。
type Provider struct {
	client Client
	view   string
	entity string
	fields []string
}

// ProviderOption 配置 Provider。
type ProviderOption func(*Provider)

// WithFeatureView 设置特征视图名（默认 "customer_profile"）。
func WithFeatureView(view string) ProviderOption {
	return func(p *Provider) { p.view = view }
}

// WithEntityKey 设置实体键名（默认 "customer_id"）。
func WithEntityKey(entity string) ProviderOption {
	return func(p *Provider) { p.entity = entity }
}

// WithFields 限定拉取的字段集合（默认 schema 全部字段）。
func WithFields(fields ...string) ProviderOption {
	return func(p *Provider) { p.fields = fields }
}

// NewProvider 创建 Feast 画像提供者。
func NewProvider(client Client, opts ...ProviderOption) *Provider {
	p := &Provider{
		client: client,
		view:   "customer_profile",
		entity: "customer_id",
		fields: schema.Customer().FieldNames(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ core.FieldProvider = (*Provider)(nil)

func (p *Provider) Name() string { return "feast" }

// GetCustomerFields 拉取单个客户的画像。Feast 无该实体时返回 ErrStoreNotFound。
func (p *Provider) GetCustomerFields(ctx context.Context, customerID string) (map[string]any, error) {
	profiles, err := p.BatchGetCustomerFields(ctx, []string{customerID})
	if err != nil {
		return nil, err
	}
	fields, ok := profiles[customerID]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return fields, nil
}

// BatchGetCustomerFields 批量拉取画像；Feast 中无记录的客户不出现在结果里。
func (p *Provider) BatchGetCustomerFields(ctx context.Context, customerIDs []string) (map[string]map[string]any, error) {
	result := make(map[string]map[string]any, len(customerIDs))
	if len(customerIDs) == 0 {
		return result, nil
	}

	refs := make([]string, len(p.fields))
	for i, f := range p.fields {
		refs[i] = p.view + ":" + f
	}
	rows := make([]map[string]any, len(customerIDs))
	for i, id := range customerIDs {
		rows[i] = map[string]any{p.entity: id}
	}

	featureRows, err := p.client.GetOnlineFeatures(ctx, &OnlineFeaturesRequest{
		Features:   refs,
		EntityRows: rows,
	})
	if err != nil {
		return nil, err
	}

	for i, row := range featureRows {
		if i >= len(customerIDs) {
			break
		}
		fields := make(map[string]any, len(row))
		for j, ref := range refs {
			v, ok := row[ref]
			if !ok {
				// 部分 Feast 版本的响应键不带视图前缀
				v, ok = row[p.fields[j]]
			}
			if !ok || v == nil {
				continue
			}
			fields[p.fields[j]] = v
		}
		// 整行为空说明 Feast 里没有这个实体
		if len(fields) == 0 {
			continue
		}
		result[customerIDs[i]] = schema.NormalizeRecord(fields)
	}
	return result, nil
}

// Close 关闭底层客户端连接。
func (p *Provider) Close(_ context.Context) error {
	return p.client.Close()
}
