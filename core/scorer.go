package core

import "context"

// Scorer 是流失评分的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由评分层（scoring、client）实现
//   - 遵循依赖倒置原则：领域层定义接口，实现层实现接口
//   - 实现必须可安全并发调用：加载后的模型是不可变对象
//
// 使用场景：
//   - 进程内评分：scoring.Pipeline（词表 + 系数一次加载，只读复用）
//   - 远程评分：client.Client（调用运行中的 churnd 服务）
//
// fields 是 schema 归一化后的客户画像（小写字段名，分类值为 string，
// 数值为 float64）。实现不得修改 fields。
type Scorer interface {
	// Name 返回评分器名称（用于日志/监控/标签）
	Name() string

	// Predict 对单个客户画像打分
	Predict(ctx context.Context, fields map[string]any) (*Prediction, error)
}
