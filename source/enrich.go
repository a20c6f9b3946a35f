package source

import (
	"context"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/pkg/utils"
	"github.com/rushteam/churnkit/schema"
)

// EnrichNode 是画像补全节点：对画像不完整的客户，
// 经由 FieldProvider 批量拉取字段并合并。
//
// 名单类来源（source.Store、source.Static）往往只有客户 ID，
// 评分前必须补齐 schema 要求的全部字段。
type EnrichNode struct {
	// Provider 画像提供方（Feast、StoreProvider、FallbackProvider...）
	Provider core.FieldProvider

	// Overwrite 为 true 时提供方字段覆盖已有字段，默认只补缺
	Overwrite bool
}

func (n *EnrichNode) Name() string {
	return "source.enrich"
}

func (n *EnrichNode) Kind() pipeline.Kind {
	return pipeline.KindSource
}

func (n *EnrichNode) Process(
	ctx context.Context,
	_ *core.BatchContext,
	customers []*core.Customer,
) ([]*core.Customer, error) {
	if n.Provider == nil || len(customers) == 0 {
		return customers, nil
	}

	required := schema.Customer().FieldNames()

	// 只为画像不完整的客户发起拉取
	need := make([]string, 0, len(customers))
	for _, c := range customers {
		if c == nil || c.ID == "" {
			continue
		}
		if n.Overwrite || missingAny(c.Fields, required) {
			need = append(need, c.ID)
		}
	}
	if len(need) == 0 {
		return customers, nil
	}

	profiles, err := n.Provider.BatchGetCustomerFields(ctx, need)
	if err != nil {
		// 画像服务不可用时保持原样，缺字段的客户由编码环节报错跳过
		return customers, nil
	}

	for _, c := range customers {
		if c == nil {
			continue
		}
		fields, ok := profiles[c.ID]
		if !ok {
			continue
		}
		if c.Fields == nil {
			c.Fields = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			if _, exists := c.Fields[k]; exists && !n.Overwrite {
				continue
			}
			c.Fields[k] = v
		}
		c.PutLabel("enriched", utils.Label{Value: n.Provider.Name(), Source: "source"})
	}

	return customers, nil
}

func missingAny(fields map[string]any, required []string) bool {
	if len(fields) == 0 {
		return true
	}
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return true
		}
	}
	return false
}
