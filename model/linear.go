package model

import "fmt"

// LinearModel 实现了逻辑回归 (Logistic Regression) 分类器。
// 它是流失预测最基础也最经典的算法，输出可直接作为概率参与业务决策。
//
// 预测原理：
//  1. 线性加权求和: z = Intercept + sum(Coef_i * Vector_i)
//  2. Sigmoid 变换: P = 1 / (1 + exp(-z))
//
// Coef 与特征向量按位置一一对应，顺序由训练期词表固定。
// 模型加载后不可变，可并发调用。
type LinearModel struct {
	Coef      []float64 // 特征系数，下标与词表列对齐
	Intercept float64   // 截距项
}

// NewLinearModel 创建分类器。coef 由调用方持有，此后不得修改。
func NewLinearModel(coef []float64, intercept float64) *LinearModel {
	return &LinearModel{Coef: coef, Intercept: intercept}
}

func (m *LinearModel) Name() string { return "logreg" }

// Score 计算一条特征向量的流失概率。
// 向量维度与系数不一致说明编码器与模型不配套，直接报错。
func (m *LinearModel) Score(vector []float64) (float64, error) {
	if len(vector) != len(m.Coef) {
		return 0, fmt.Errorf("feature vector has %d dims, model expects %d", len(vector), len(m.Coef))
	}
	z := m.Intercept
	for i, w := range m.Coef {
		z += w * vector[i]
	}
	return Sigmoid(z), nil
}
