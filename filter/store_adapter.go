package filter

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rushteam/churnkit/core"
)

// StoreAdapter 将 core.Store 适配为过滤器所需的存储接口。
// 免打扰名单与触达时间都由挽留执行侧写入，这里只读。
type StoreAdapter struct {
	store core.Store
}

// NewStoreAdapter 创建一个 core.Store 适配器。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetDoNotContact 从 Store 读取免打扰名单（JSON 字符串数组）。
// key 不存在按空名单处理。
func (a *StoreAdapter) GetDoNotContact(ctx context.Context, key string) ([]string, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// LastContactedAt 从 Store 读取客户最近一次触达时间。
// 值支持两种形态：Unix 秒的十进制整数，或 RFC3339 时间串。
// key 不存在返回 0（从未触达）。
func (a *StoreAdapter) LastContactedAt(ctx context.Context, keyPrefix, customerID string) (int64, error) {
	key := keyPrefix + ":" + customerID
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return 0, nil
		}
		return 0, err
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return 0, nil
	}
	if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ts, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Unix(), nil
	}
	return 0, nil
}
