// Package store 提供存储后端实现与挽留队列。
//
// 注意：此包只包含实现，接口定义在 core 包。
// 使用 core.Store 和 core.KeyValueStore 接口。
//
// 示例：
//
//	var s core.Store = store.NewMemoryStore()
//	var kv core.KeyValueStore = store.NewMemoryStore()
//	queue := store.NewRetentionQueue(kv)
package store
