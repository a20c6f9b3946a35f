package schema

import (
	"fmt"
	"math"
	"strings"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
)

// Validate 校验并归一化一条客户记录。
//
// 行为约定：
//   - 先做归一化（key 与 string value 小写化、空格转下划线），再逐字段校验
//   - 按 schema 声明顺序收集全部字段错误，一次性返回
//   - schema 之外的多余 key 直接忽略，不视为错误
//   - 校验通过时返回只含 schema 字段的归一化副本：
//     分类字段为 string，数值字段统一为 float64
//
// 返回的 error 恒为 *core.DomainError（VALIDATION），携带字段级明细。
func (s *Schema) Validate(record map[string]any) (map[string]any, error) {
	if len(record) == 0 {
		return nil, core.NewValidationError(core.ModuleSchema,
			fmt.Sprintf("%s record is empty", s.name), nil)
	}

	normalized := NormalizeRecord(record)
	out := make(map[string]any, len(s.fields))
	var fieldErrs []core.FieldError

	for _, f := range s.fields {
		v, ok := normalized[f.Name]
		if !ok || v == nil {
			fieldErrs = append(fieldErrs, core.FieldError{Field: f.Name, Message: "field required"})
			continue
		}

		switch f.Kind {
		case KindCategorical:
			sv, ok := v.(string)
			if !ok {
				fieldErrs = append(fieldErrs, core.FieldError{Field: f.Name, Message: "must be a string"})
				continue
			}
			if !containsValue(f.Values, sv) {
				fieldErrs = append(fieldErrs, core.FieldError{
					Field:   f.Name,
					Message: fmt.Sprintf("must be one of %s", strings.Join(f.Values, ", ")),
				})
				continue
			}
			out[f.Name] = sv

		case KindFlag:
			fv, ok := coerceNumber(v)
			if !ok || (fv != 0 && fv != 1) {
				fieldErrs = append(fieldErrs, core.FieldError{Field: f.Name, Message: "must be 0 or 1"})
				continue
			}
			out[f.Name] = fv

		case KindNumeric:
			fv, ok := coerceNumber(v)
			if !ok {
				fieldErrs = append(fieldErrs, core.FieldError{Field: f.Name, Message: "must be a number"})
				continue
			}
			if f.Integer && fv != math.Trunc(fv) {
				fieldErrs = append(fieldErrs, core.FieldError{Field: f.Name, Message: "must be an integer"})
				continue
			}
			if fv < 0 {
				fieldErrs = append(fieldErrs, core.FieldError{Field: f.Name, Message: "must be greater than or equal to 0"})
				continue
			}
			out[f.Name] = fv
		}
	}

	if len(fieldErrs) > 0 {
		return nil, core.NewValidationError(core.ModuleSchema,
			fmt.Sprintf("%s record validation failed", s.name), fieldErrs)
	}
	return out, nil
}

// coerceNumber 把 any 转为有限 float64。
// JSON 解码的数值是 float64；数值型字符串（"12"、"29.85"）也接受，
// 与原始数据集中数值列以文本形态出现的情况保持一致。
func coerceNumber(v any) (float64, bool) {
	if f, ok := conv.ToFloat64(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	if s, ok := v.(string); ok {
		f, ok := conv.ParseFloat(s)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func containsValue(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}
