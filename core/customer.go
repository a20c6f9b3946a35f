package core

import "github.com/rushteam/churnkit/pkg/utils"

// Customer 是评分链路中的统一承载结构：原始字段、预测结果、元信息、标签。
// Fields 保存 schema 归一化后的客户画像；Probability/Churn 由打分节点写入；
// Labels 用于解释与策略驱动（命中的过滤原因、分层结果、模型版本等）。
type Customer struct {
	ID          string
	Fields      map[string]any
	Probability float64
	Churn       bool
	Tier        string
	Meta        map[string]any
	Labels      map[string]utils.Label
}

func NewCustomer(id string) *Customer {
	return &Customer{
		ID:     id,
		Fields: make(map[string]any),
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (c *Customer) PutLabel(key string, lbl utils.Label) {
	if c.Labels == nil {
		c.Labels = make(map[string]utils.Label)
	}
	if old, ok := c.Labels[key]; ok {
		c.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	c.Labels[key] = lbl
}

// GetLabel 获取 Label。
func (c *Customer) GetLabel(key string) (utils.Label, bool) {
	if c.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := c.Labels[key]
	return lbl, ok
}

// Prediction 是一次评分的结果，JSON 形态即 HTTP /predict 的响应体。
// Churn 为决策位：Probability >= 0.5（含边界）时为 true。
type Prediction struct {
	Probability float64 `json:"churn_probability"`
	Churn       bool    `json:"churn"`
}
