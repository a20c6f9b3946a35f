// Package scoring 把词表、编码器与分类器装配为评分流水线（Pipeline），
// 并以单个带版本的 JSON 工件完成持久化与加载。
//
// Pipeline 在训练期构建或在启动期加载，之后不可变：
// 服务进程加载一次即可被任意多个请求并发复用，不需要任何锁。
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/model"
)

// DecisionThreshold 是流失决策阈值：概率大于等于该值判为流失（含边界）。
const DecisionThreshold = 0.5

// Metadata 是流水线的身份信息，随工件一同持久化。
type Metadata struct {
	ModelID     string
	CreatedAt   time.Time
	LabelColumn string
}

// Pipeline 持有一份词表与按该词表列序训练出的系数。
// 二者位置耦合，必须作为整体构建、持久化与加载。
type Pipeline struct {
	vocab *feature.Vocabulary
	enc   *feature.Encoder
	model *model.LinearModel
	meta  Metadata
}

var _ core.Scorer = (*Pipeline)(nil)

// NewPipeline 装配流水线并校验系数维度与词表列数一致。
func NewPipeline(vocab *feature.Vocabulary, m *model.LinearModel, meta Metadata) (*Pipeline, error) {
	if vocab == nil || vocab.Size() == 0 {
		return nil, core.NewDomainError(core.ModuleScoring, core.ErrorCodeInvalidInput,
			"scoring: vocabulary is empty")
	}
	if m == nil {
		return nil, core.NewDomainError(core.ModuleScoring, core.ErrorCodeInvalidInput,
			"scoring: model is nil")
	}
	if len(m.Coef) != vocab.Size() {
		return nil, core.NewDomainError(core.ModuleScoring, core.ErrorCodeInvalidInput,
			fmt.Sprintf("scoring: %d coefficients do not match %d feature columns", len(m.Coef), vocab.Size()))
	}
	return &Pipeline{
		vocab: vocab,
		enc:   feature.NewEncoder(vocab),
		model: m,
		meta:  meta,
	}, nil
}

func (p *Pipeline) Name() string { return "churn-lr" }

// Metadata 返回流水线身份信息。
func (p *Pipeline) Metadata() Metadata { return p.meta }

// Vocabulary 返回流水线绑定的词表。
func (p *Pipeline) Vocabulary() *feature.Vocabulary { return p.vocab }

// Predict 对一个客户画像打分：编码为特征向量，计算流失概率，
// 按 DecisionThreshold 给出决策位。
//
// fields 应为 schema 归一化后的形态；缺少词表必需字段时返回
// ENCODING 错误，词表外的新取值按零贡献静默处理。
func (p *Pipeline) Predict(ctx context.Context, fields map[string]any) (*core.Prediction, error) {
	vec, err := p.enc.Encode(fields)
	if err != nil {
		return nil, err
	}
	prob, err := p.model.Score(vec)
	if err != nil {
		return nil, err
	}
	return &core.Prediction{
		Probability: prob,
		Churn:       prob >= DecisionThreshold,
	}, nil
}
