package train

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/model"
	"github.com/rushteam/churnkit/scoring"
)

// Trainer 在带标签数据集上拟合逻辑回归，产出评分流水线。
// 截距通过追加常数 1.0 特征列实现，与普通系数一同正则化。
type Trainer struct {
	c       float64
	eps     float64
	maxIter int
	seed    int64
}

// Option 配置训练器。
type Option func(*Trainer)

// WithC 设置正则化强度参数 C（默认 1.0），越大正则越弱。
func WithC(c float64) Option {
	return func(t *Trainer) { t.c = c }
}

// WithTolerance 设置收敛阈值（默认 1e-4）。
func WithTolerance(eps float64) Option {
	return func(t *Trainer) { t.eps = eps }
}

// WithMaxIter 设置外层最大迭代数（默认 100）。
func WithMaxIter(n int) Option {
	return func(t *Trainer) { t.maxIter = n }
}

// WithSeed 设置置换种子（默认 1）。
// 种子固定后重复训练产出逐位相同的权重。
func WithSeed(seed int64) Option {
	return func(t *Trainer) { t.seed = seed }
}

// NewTrainer 创建训练器，默认参数与线上模型的训练配置一致。
func NewTrainer(opts ...Option) *Trainer {
	t := &Trainer{
		c:       1.0,
		eps:     1e-4,
		maxIter: 100,
		seed:    1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Report 汇总一次训练的结果指标。
type Report struct {
	ModelID       string
	Samples       int
	FeatureCount  int
	Iterations    int
	Converged     bool
	TrainAccuracy float64
}

// Fit 训练并返回评分流水线。
//
// 步骤：
//  1. 确定性扫描构建词表（字段按 schema 顺序，记录按数据集顺序）
//  2. 全量编码为稠密矩阵，每行末尾追加常数 1.0 截距列
//  3. 对偶坐标下降求解，固定种子保证可复现
//  4. 词表 + 系数 + 截距封装为不可变流水线，分配新 ModelID
func (t *Trainer) Fit(ds *Dataset) (*scoring.Pipeline, *Report, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput, "train: dataset is empty")
	}
	if !ds.Labeled || len(ds.Labels) != ds.Len() {
		return nil, nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput, "train: dataset has no labels")
	}

	vocab := feature.BuildVocabulary(ds.Fields, ds.Records)
	if vocab.Size() == 0 {
		return nil, nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput, "train: vocabulary is empty")
	}
	enc := feature.NewEncoder(vocab)

	n := vocab.Size()
	x := make([][]float64, ds.Len())
	y := make([]int8, ds.Len())
	for i, record := range ds.Records {
		vec, err := enc.Encode(record)
		if err != nil {
			return nil, nil, fmt.Errorf("encode row %d: %w", i, err)
		}
		row := make([]float64, n+1)
		copy(row, vec)
		row[n] = 1.0
		x[i] = row

		if ds.Labels[i] == 1 {
			y[i] = 1
		} else {
			y[i] = -1
		}
	}

	rng := rand.New(rand.NewSource(t.seed))
	w, iters, converged := solveL2RLRDual(x, y, t.c, t.eps, t.maxIter, rng)

	coef := make([]float64, n)
	copy(coef, w[:n])
	intercept := w[n]

	labelColumn := ds.LabelColumn
	if labelColumn == "" {
		labelColumn = "churn"
	}
	pipeline, err := scoring.NewPipeline(vocab, model.NewLinearModel(coef, intercept), scoring.Metadata{
		ModelID:     uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		LabelColumn: labelColumn,
	})
	if err != nil {
		return nil, nil, err
	}

	correct := 0
	for i := range x {
		z := intercept
		for j := 0; j < n; j++ {
			z += coef[j] * x[i][j]
		}
		churn := model.Sigmoid(z) >= scoring.DecisionThreshold
		if churn == (ds.Labels[i] == 1) {
			correct++
		}
	}

	report := &Report{
		ModelID:       pipeline.Metadata().ModelID,
		Samples:       ds.Len(),
		FeatureCount:  n,
		Iterations:    iters,
		Converged:     converged,
		TrainAccuracy: float64(correct) / float64(ds.Len()),
	}
	return pipeline, report, nil
}
