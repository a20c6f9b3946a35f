package scoring

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/model"
)

// 参考概率由 testdata/model.json 离线复算得到，
// 在线评分必须在 1e-6 内复现。
const (
	goldenProbability  = 0.599935172303386
	loyalProbability   = 0.000247884433301222
	probabilityEpsilon = 1e-6
)

// goldenFields 是一个高流失风险客户画像（schema 归一化后的形态）。
func goldenFields() map[string]any {
	return map[string]any{
		"gender":           "female",
		"seniorcitizen":    0.0,
		"partner":          "yes",
		"dependents":       "no",
		"tenure":           1.0,
		"phoneservice":     "no",
		"multiplelines":    "no_phone_service",
		"internetservice":  "dsl",
		"onlinesecurity":   "no",
		"onlinebackup":     "yes",
		"deviceprotection": "no",
		"techsupport":      "no",
		"streamingtv":      "no",
		"streamingmovies":  "no",
		"contract":         "month-to-month",
		"paperlessbilling": "yes",
		"paymentmethod":    "electronic_check",
		"monthlycharges":   29.85,
		"totalcharges":     29.85,
	}
}

// loyalFields 是一个长约低风险客户画像，覆盖 no_internet_service 取值族。
func loyalFields() map[string]any {
	return map[string]any{
		"gender":           "male",
		"seniorcitizen":    0.0,
		"partner":          "yes",
		"dependents":       "yes",
		"tenure":           72.0,
		"phoneservice":     "yes",
		"multiplelines":    "no",
		"internetservice":  "no",
		"onlinesecurity":   "no_internet_service",
		"onlinebackup":     "no_internet_service",
		"deviceprotection": "no_internet_service",
		"techsupport":      "no_internet_service",
		"streamingtv":      "no_internet_service",
		"streamingmovies":  "no_internet_service",
		"contract":         "two_year",
		"paperlessbilling": "no",
		"paymentmethod":    "mailed_check",
		"monthlycharges":   19.7,
		"totalcharges":     1419.4,
	}
}

func loadTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := Load("testdata/model.json")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return p
}

func TestPipeline_GoldenCustomer(t *testing.T) {
	p := loadTestPipeline(t)

	pred, err := p.Predict(context.Background(), goldenFields())
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if diff := math.Abs(pred.Probability - goldenProbability); diff > probabilityEpsilon {
		t.Errorf("Probability = %v, want %v (diff %v)", pred.Probability, goldenProbability, diff)
	}
	if !pred.Churn {
		t.Errorf("Churn = false, want true")
	}
}

func TestPipeline_LoyalCustomer(t *testing.T) {
	p := loadTestPipeline(t)

	pred, err := p.Predict(context.Background(), loyalFields())
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if diff := math.Abs(pred.Probability - loyalProbability); diff > probabilityEpsilon {
		t.Errorf("Probability = %v, want %v (diff %v)", pred.Probability, loyalProbability, diff)
	}
	if pred.Churn {
		t.Errorf("Churn = true, want false")
	}
}

func TestPipeline_UnseenValueContributesZero(t *testing.T) {
	p := loadTestPipeline(t)

	fields := goldenFields()
	fields["gender"] = "nonbinary" // 词表外取值，贡献应为零

	pred, err := p.Predict(context.Background(), fields)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	want := 0.5964018547881106
	if diff := math.Abs(pred.Probability - want); diff > probabilityEpsilon {
		t.Errorf("Probability = %v, want %v (diff %v)", pred.Probability, want, diff)
	}
}

func TestPipeline_MissingFieldFails(t *testing.T) {
	p := loadTestPipeline(t)

	fields := goldenFields()
	delete(fields, "tenure")

	pred, err := p.Predict(context.Background(), fields)
	if err == nil {
		t.Fatalf("Predict() error = nil, want encoding error")
	}
	if !core.IsEncoding(err) {
		t.Errorf("IsEncoding(err) = false, err = %v", err)
	}
	if pred != nil {
		t.Errorf("prediction = %v, want nil", pred)
	}
}

func TestPipeline_ThresholdInclusive(t *testing.T) {
	// 零系数、零截距的流水线对任何输入都输出恰好 0.5，
	// 阈值为闭区间下界，必须判为流失。
	vocab, err := feature.NewVocabulary([]string{"tenure"})
	if err != nil {
		t.Fatalf("NewVocabulary() error = %v", err)
	}
	p, err := NewPipeline(vocab, model.NewLinearModel([]float64{0}, 0), Metadata{ModelID: "test"})
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	pred, err := p.Predict(context.Background(), map[string]any{"tenure": 7.0})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if pred.Probability != 0.5 {
		t.Fatalf("Probability = %v, want exactly 0.5", pred.Probability)
	}
	if !pred.Churn {
		t.Errorf("Churn = false at probability 0.5, want true")
	}
}

func TestPipeline_PredictDeterministic(t *testing.T) {
	p := loadTestPipeline(t)

	first, err := p.Predict(context.Background(), goldenFields())
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		pred, err := p.Predict(context.Background(), goldenFields())
		if err != nil {
			t.Fatalf("Predict() run %d error = %v", i, err)
		}
		if pred.Probability != first.Probability || pred.Churn != first.Churn {
			t.Fatalf("run %d = %+v, want %+v", i, pred, first)
		}
	}
}

func TestNewPipeline_Validation(t *testing.T) {
	vocab, err := feature.NewVocabulary([]string{"tenure", "contract=two_year"})
	if err != nil {
		t.Fatalf("NewVocabulary() error = %v", err)
	}
	tests := []struct {
		name  string
		vocab *feature.Vocabulary
		model *model.LinearModel
	}{
		{"nil vocabulary", nil, model.NewLinearModel([]float64{0, 0}, 0)},
		{"nil model", vocab, nil},
		{"coef count mismatch", vocab, model.NewLinearModel([]float64{0.5}, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.vocab, tt.model, Metadata{ModelID: "test"})
			if err == nil {
				t.Fatalf("NewPipeline() error = nil, want error")
			}
			if !core.IsInvalidInput(err) {
				t.Errorf("IsInvalidInput(err) = false, err = %v", err)
			}
		})
	}
}

func TestPipeline_Metadata(t *testing.T) {
	p := loadTestPipeline(t)

	meta := p.Metadata()
	if meta.ModelID != "9a4f2c66-5b1e-4c1b-9c5d-3f8a12e7b604" {
		t.Errorf("ModelID = %q, want %q", meta.ModelID, "9a4f2c66-5b1e-4c1b-9c5d-3f8a12e7b604")
	}
	if meta.LabelColumn != "churn" {
		t.Errorf("LabelColumn = %q, want %q", meta.LabelColumn, "churn")
	}
	if p.Vocabulary().Size() != 45 {
		t.Errorf("Vocabulary().Size() = %d, want 45", p.Vocabulary().Size())
	}
}
