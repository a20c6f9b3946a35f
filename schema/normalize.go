package schema

import "strings"

// Normalize 将字段名或分类取值归一化：小写化，空格替换为下划线。
// 训练与在线评分共用同一归一化策略，保证 "Month-to-month" 与
// "month-to-month" 编码到同一列。
func Normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}

// NormalizeRecord 返回归一化后的记录副本：所有 key 归一化，
// string 类型的 value 一并归一化，其余类型原样保留。
// 同一 key 归一化后冲突时，后写入者覆盖先写入者。
func NormalizeRecord(record map[string]any) map[string]any {
	if record == nil {
		return nil
	}
	out := make(map[string]any, len(record))
	for k, v := range record {
		if s, ok := v.(string); ok {
			v = Normalize(s)
		}
		out[Normalize(k)] = v
	}
	return out
}
