package filter

import (
	"context"
	"time"

	"github.com/rushteam/churnkit/core"
)

// RecentlyContactedFilter 剔除冷却期内已被挽留触达过的客户。
// 短时间内反复触达同一客户会显著降低挽留成功率，甚至加速流失，
// 因此每轮触达后写入触达时间，冷却期内不再进入批处理。
type RecentlyContactedFilter struct {
	// Store 用于从存储中读取客户最近一次触达时间
	Store ContactedStore

	// KeyPrefix 是 Store 中的 key 前缀，实际 key 为 {KeyPrefix}:{CustomerID}
	KeyPrefix string

	// CooldownWindow 是触达冷却窗口（秒）。0 表示不启用冷却检查。
	CooldownWindow int64
}

// ContactedStore 是触达历史存储接口。
type ContactedStore interface {
	// LastContactedAt 获取客户最近一次触达的 Unix 时间戳（秒）。
	// 从未触达过返回 0。
	LastContactedAt(ctx context.Context, keyPrefix, customerID string) (int64, error)
}

// NewRecentlyContactedFilter 创建一个触达冷却过滤器。
// cooldownWindow 是冷却窗口（秒），常见取值为 30 天（2592000）。
func NewRecentlyContactedFilter(storeAdapter *StoreAdapter, keyPrefix string, cooldownWindow int64) *RecentlyContactedFilter {
	var store ContactedStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &RecentlyContactedFilter{
		Store:          store,
		KeyPrefix:      keyPrefix,
		CooldownWindow: cooldownWindow,
	}
}

func (f *RecentlyContactedFilter) Name() string {
	return "filter.recently_contacted"
}

func (f *RecentlyContactedFilter) ShouldFilter(
	ctx context.Context,
	_ *core.BatchContext,
	customer *core.Customer,
) (bool, error) {
	if customer == nil || customer.ID == "" {
		return false, nil
	}
	if f.Store == nil || f.CooldownWindow <= 0 {
		return false, nil
	}

	keyPrefix := f.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "churn:contacted"
	}

	last, err := f.Store.LastContactedAt(ctx, keyPrefix, customer.ID)
	if err != nil || last <= 0 {
		// 读不到触达记录时按未触达处理，保留客户
		return false, nil
	}

	cutoff := time.Now().Unix() - f.CooldownWindow
	return last >= cutoff, nil
}
