package filter

import (
	"context"

	"github.com/rushteam/churnkit/core"
)

// DoNotContactFilter 剔除免打扰名单中的客户。
// 名单来源于客户主动退订挽留触达，属于合规约束，必须在评分之前生效。
type DoNotContactFilter struct {
	// CustomerIDs 是内存中的免打扰客户 ID 列表
	CustomerIDs []string

	// Store 用于从存储中读取免打扰名单（可选）
	Store DoNotContactStore

	// Key 是 Store 中的名单 key（可选）
	Key string
}

// DoNotContactStore 是免打扰名单存储接口。
type DoNotContactStore interface {
	// GetDoNotContact 获取免打扰客户 ID 列表
	GetDoNotContact(ctx context.Context, key string) ([]string, error)
}

// NewDoNotContactFilter 创建一个免打扰过滤器。
func NewDoNotContactFilter(customerIDs []string, storeAdapter *StoreAdapter, key string) *DoNotContactFilter {
	var store DoNotContactStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &DoNotContactFilter{
		CustomerIDs: customerIDs,
		Store:       store,
		Key:         key,
	}
}

func (f *DoNotContactFilter) Name() string {
	return "filter.do_not_contact"
}

func (f *DoNotContactFilter) ShouldFilter(
	ctx context.Context,
	_ *core.BatchContext,
	customer *core.Customer,
) (bool, error) {
	if customer == nil {
		return true, nil
	}

	// 从内存名单检查
	for _, id := range f.CustomerIDs {
		if customer.ID == id {
			return true, nil
		}
	}

	// 从 Store 检查
	if f.Store != nil && f.Key != "" {
		dnc, err := f.Store.GetDoNotContact(ctx, f.Key)
		if err == nil {
			for _, id := range dnc {
				if customer.ID == id {
					return true, nil
				}
			}
		}
	}

	return false, nil
}
