package source

import (
	"context"

	"github.com/rushteam/churnkit/core"
)

// FallbackProvider 按声明顺序尝试多个画像提供方，首个成功者生效。
// 主画像服务（如 Feast）抖动时退到本地 Store 兜底，批处理不至于整轮空转。
type FallbackProvider struct {
	providers []core.FieldProvider
}

// NewFallbackProvider 创建画像降级链。providers 按优先级从高到低排列。
func NewFallbackProvider(providers ...core.FieldProvider) *FallbackProvider {
	return &FallbackProvider{providers: providers}
}

var _ core.FieldProvider = (*FallbackProvider)(nil)

func (p *FallbackProvider) Name() string { return "fallback" }

// GetCustomerFields 依次尝试各提供方，返回第一个成功结果。
// 全部失败时返回最后一个错误。
func (p *FallbackProvider) GetCustomerFields(ctx context.Context, customerID string) (map[string]any, error) {
	var lastErr error = core.ErrStoreNotFound
	for _, provider := range p.providers {
		fields, err := provider.GetCustomerFields(ctx, customerID)
		if err == nil {
			return fields, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// BatchGetCustomerFields 批量拉取：上一级没拉到的 ID 继续交给下一级，
// 结果按 ID 合并。
func (p *FallbackProvider) BatchGetCustomerFields(ctx context.Context, customerIDs []string) (map[string]map[string]any, error) {
	result := make(map[string]map[string]any, len(customerIDs))
	remaining := customerIDs

	for _, provider := range p.providers {
		if len(remaining) == 0 {
			break
		}
		got, err := provider.BatchGetCustomerFields(ctx, remaining)
		if err != nil {
			continue
		}
		next := make([]string, 0, len(remaining))
		for _, id := range remaining {
			if fields, ok := got[id]; ok {
				result[id] = fields
			} else {
				next = append(next, id)
			}
		}
		remaining = next
	}
	return result, nil
}

// Close 关闭链上所有提供方，返回第一个错误。
func (p *FallbackProvider) Close(ctx context.Context) error {
	var firstErr error
	for _, provider := range p.providers {
		if err := provider.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
