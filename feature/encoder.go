package feature

import (
	"fmt"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
)

// Encoder 按词表把一条客户记录编码为稠密特征向量。
//
// 编码是 (词表, 记录) 的纯函数：相同输入产生逐位相同的输出。
//
// 取值规则：
//   - string 取值：命中 "field=value" 列则置 1.0；词表外的新取值
//     全列保持 0.0，静默降级，不报错
//   - 数值取值：原样写入字段对应的数值列，不做缩放
//   - 记录中词表之外的 key 直接忽略
//   - 词表覆盖的字段在记录中完全缺失时返回 ENCODING 错误，
//     缺字段属于调用方缺陷，不能按全零静默评分
type Encoder struct {
	vocab *Vocabulary
}

// NewEncoder 创建编码器。词表不可为空。
func NewEncoder(vocab *Vocabulary) *Encoder {
	return &Encoder{vocab: vocab}
}

// Vocabulary 返回编码器绑定的词表。
func (e *Encoder) Vocabulary() *Vocabulary {
	return e.vocab
}

// Encode 编码一条记录，返回长度为 vocab.Size() 的向量。
// record 应是 schema 归一化后的形态；Encode 不修改 record。
func (e *Encoder) Encode(record map[string]any) ([]float64, error) {
	var missing []core.FieldError
	for _, field := range e.vocab.Fields() {
		if _, ok := record[field]; !ok {
			missing = append(missing, core.FieldError{Field: field, Message: "field required"})
		}
	}
	if len(missing) > 0 {
		return nil, &core.DomainError{
			Module:  core.ModuleFeature,
			Code:    core.ErrorCodeEncoding,
			Message: fmt.Sprintf("record is missing %d required field(s)", len(missing)),
			Fields:  missing,
		}
	}

	vec := make([]float64, e.vocab.Size())
	for key, value := range record {
		switch val := value.(type) {
		case string:
			if idx, ok := e.vocab.Index(key + Separator + val); ok {
				vec[idx] = 1.0
			}
		default:
			f, ok := conv.ToFloat64(value)
			if !ok {
				continue
			}
			if idx, ok := e.vocab.Index(key); ok {
				vec[idx] = f
			}
		}
	}
	return vec, nil
}
