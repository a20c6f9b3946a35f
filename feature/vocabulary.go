// Package feature 实现词表（Vocabulary）与特征编码器（Encoder）。
//
// 词表把 (字段, 取值) 映射到稠密向量的列下标：
//   - 分类字段的每个观测取值占一列，列名 "field=value"
//   - 数值字段整体占一列，列名即字段名
//
// 词表在训练期一次性扫描全量数据构建，之后不可变；
// 分类器系数与列顺序位置耦合，列序一旦确定不得调整。
package feature

import (
	"fmt"
	"strings"
)

// Separator 是列名中字段与取值的分隔符，训练与在线评分共用。
const Separator = "="

// Vocabulary 是列名到下标的不可变映射，构建后可并发读取。
type Vocabulary struct {
	columns []string
	index   map[string]int
	fields  []string
	fieldOf map[string]bool
}

// NewVocabulary 从有序列名列表构建词表（加载模型工件时使用）。
// 列名重复说明工件损坏，返回错误。
func NewVocabulary(columns []string) (*Vocabulary, error) {
	v := &Vocabulary{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
		fieldOf: make(map[string]bool),
	}
	copy(v.columns, columns)
	for i, col := range columns {
		if _, ok := v.index[col]; ok {
			return nil, fmt.Errorf("duplicate feature column %q", col)
		}
		v.index[col] = i
		v.addField(fieldOfColumn(col))
	}
	return v, nil
}

// BuildVocabulary 扫描训练记录构建词表。
//
// 扫描顺序是确定性的：记录按数据集顺序，记录内字段按 fields 声明顺序，
// 新的 (字段, 取值) 对在首次出现时分配下一个下标。
//   - string 取值：产生 "field=value" 列
//   - 数值取值：产生 "field" 列（首次出现时）
//   - 其他类型取值与缺失字段直接跳过
func BuildVocabulary(fields []string, records []map[string]any) *Vocabulary {
	v := &Vocabulary{
		index:   make(map[string]int),
		fieldOf: make(map[string]bool),
	}
	for _, record := range records {
		for _, field := range fields {
			value, ok := record[field]
			if !ok {
				continue
			}
			switch val := value.(type) {
			case string:
				v.addColumn(field+Separator+val, field)
			case float64:
				v.addColumn(field, field)
			case float32, int, int64, int32:
				v.addColumn(field, field)
			}
		}
	}
	return v
}

func (v *Vocabulary) addColumn(column, field string) {
	if _, ok := v.index[column]; ok {
		return
	}
	v.index[column] = len(v.columns)
	v.columns = append(v.columns, column)
	v.addField(field)
}

func (v *Vocabulary) addField(field string) {
	if v.fieldOf[field] {
		return
	}
	v.fieldOf[field] = true
	v.fields = append(v.fields, field)
}

// fieldOfColumn 从列名解析字段名："contract=two_year" -> "contract"，
// 数值列（无分隔符）的列名即字段名。
func fieldOfColumn(column string) string {
	if i := strings.Index(column, Separator); i >= 0 {
		return column[:i]
	}
	return column
}

// Columns 返回下标顺序的列名列表。调用方不得修改返回值。
func (v *Vocabulary) Columns() []string {
	return v.columns
}

// Size 返回列数，即特征向量维度。
func (v *Vocabulary) Size() int {
	return len(v.columns)
}

// Index 返回列名对应的下标。
func (v *Vocabulary) Index(column string) (int, bool) {
	i, ok := v.index[column]
	return i, ok
}

// Fields 返回词表覆盖的字段名（首次出现顺序）。
// 编码器用它判定记录是否缺少必需字段。
func (v *Vocabulary) Fields() []string {
	return v.fields
}

// HasField 判断字段是否在词表覆盖范围内。
func (v *Vocabulary) HasField(field string) bool {
	return v.fieldOf[field]
}
