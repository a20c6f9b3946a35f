// Package train 实现流失模型的离线训练：数据集加载、词表构建、
// L2 正则逻辑回归求解，产出可直接部署的评分流水线。
package train

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rushteam/churnkit/pkg/conv"
	"github.com/rushteam/churnkit/schema"
)

// Dataset 是一份按 schema 归一化后的数据集。
// Records 中分类字段为 string、数值字段为 float64，可直接参与词表构建与编码。
type Dataset struct {
	// IDs 每行的客户 ID（ID 列缺失时为空串）
	IDs []string
	// Fields 按 schema 声明顺序的字段名，决定词表扫描顺序
	Fields []string
	// Records 归一化后的记录
	Records []map[string]any
	// Labels 0/1 标签，与 Records 对齐；仅 Labeled 为 true 时有效
	Labels []int
	// Labeled 数据集是否带标签列
	Labeled bool
	// LabelColumn 标签列名（Labeled 为 true 时有效）
	LabelColumn string
}

// Len 返回记录数。
func (d *Dataset) Len() int {
	return len(d.Records)
}

type loadOptions struct {
	labelColumn string
	idColumn    string
	coerceZero  map[string]bool
}

// LoadOption 配置数据集加载行为。
type LoadOption func(*loadOptions)

// WithLabelColumn 指定标签列名（默认 "churn"）。
// 取值归一化后等于 "yes" 记为 1，其余记为 0。
func WithLabelColumn(name string) LoadOption {
	return func(o *loadOptions) { o.labelColumn = schema.Normalize(name) }
}

// WithIDColumn 指定 ID 列名（默认 "customerid"）。ID 列永远不会成为特征。
func WithIDColumn(name string) LoadOption {
	return func(o *loadOptions) { o.idColumn = schema.Normalize(name) }
}

// WithCoerceZero 指定解析失败时按 0.0 处理的数值字段（默认 totalcharges）。
// 新客户的累计消费在原始数据里是空白文本，按 0 处理而不是丢行。
func WithCoerceZero(fields ...string) LoadOption {
	return func(o *loadOptions) {
		o.coerceZero = make(map[string]bool, len(fields))
		for _, f := range fields {
			o.coerceZero[schema.Normalize(f)] = true
		}
	}
}

// LoadCSV 从 CSV 文件加载数据集。
func LoadCSV(path string, s *schema.Schema, opts ...LoadOption) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, s, opts...)
}

// ReadCSV 从 reader 加载数据集。
//
// 处理流程：
//  1. 表头归一化（小写、空格转下划线），定位 schema 字段、ID 列、标签列
//  2. 分类字段取值归一化；数值字段解析为 float64，
//     coerceZero 字段解析失败按 0.0 处理，其余字段解析失败直接报错
//  3. 标签列取值归一化后 == "yes" 记为 1，其余记为 0
//
// schema 字段在表头中缺失时报错并列出全部缺失列。
func ReadCSV(r io.Reader, s *schema.Schema, opts ...LoadOption) (*Dataset, error) {
	o := &loadOptions{
		labelColumn: "churn",
		idColumn:    "customerid",
		coerceZero:  map[string]bool{"totalcharges": true},
	}
	for _, opt := range opts {
		opt(o)
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[schema.Normalize(name)] = i
	}

	var missing []string
	for _, field := range s.FieldNames() {
		if _, ok := colIndex[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset is missing required columns: %s", strings.Join(missing, ", "))
	}

	idIdx, hasID := colIndex[o.idColumn]
	labelIdx, hasLabel := colIndex[o.labelColumn]

	ds := &Dataset{
		Fields:  s.FieldNames(),
		Labeled: hasLabel,
	}
	if hasLabel {
		ds.LabelColumn = o.labelColumn
	}

	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset row: %w", err)
		}
		line++

		record := make(map[string]any, len(ds.Fields))
		for _, field := range s.Fields() {
			raw := row[colIndex[field.Name]]
			if field.Kind == schema.KindCategorical {
				record[field.Name] = schema.Normalize(raw)
				continue
			}
			f, ok := conv.ParseFloat(raw)
			if !ok {
				if o.coerceZero[field.Name] {
					f = 0
				} else {
					return nil, fmt.Errorf("line %d: field %s: cannot parse %q as number", line, field.Name, raw)
				}
			}
			record[field.Name] = f
		}
		ds.Records = append(ds.Records, record)

		if hasID {
			ds.IDs = append(ds.IDs, schema.Normalize(row[idIdx]))
		} else {
			ds.IDs = append(ds.IDs, "")
		}
		if hasLabel {
			if schema.Normalize(row[labelIdx]) == "yes" {
				ds.Labels = append(ds.Labels, 1)
			} else {
				ds.Labels = append(ds.Labels, 0)
			}
		}
	}
	return ds, nil
}
