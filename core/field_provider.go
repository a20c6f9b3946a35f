package core

import "context"

// FieldProvider 是客户画像读取的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（feast、source）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//   - 避免循环依赖：领域层不依赖基础设施层
//
// 使用场景：
//   - 批量评分：按客户 ID 拉取画像字段再进入 Pipeline
//   - 在线补全：请求只携带 ID 时补全其余字段
//
// 返回的字段应已是 schema 归一化形态（小写字段名，分类值为 string，
// 数值为 float64），调用方可直接交给编码器。
//
// 实现：
//   - feast.Provider 实现此接口（Feast 在线特征存储）
//   - source.StoreProvider 实现此接口（基于 core.Store）
//   - source.CachedProvider / source.FallbackProvider 提供缓存与降级组合
type FieldProvider interface {
	// Name 返回提供方名称（用于日志/监控）
	Name() string

	// GetCustomerFields 获取单个客户的画像字段
	GetCustomerFields(ctx context.Context, customerID string) (map[string]any, error)

	// BatchGetCustomerFields 批量获取客户画像（推荐使用，减少网络往返）
	BatchGetCustomerFields(ctx context.Context, customerIDs []string) (map[string]map[string]any, error)

	// Close 关闭底层连接，释放资源
	Close(ctx context.Context) error
}
