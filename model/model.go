package model

import "math"

// ChurnModel 是分类器的最小抽象：输入特征向量，输出流失概率。
// 向量的列序由词表决定，实现与词表位置耦合。
type ChurnModel interface {
	Name() string
	Score(vector []float64) (float64, error)
}

// Sigmoid 把线性得分映射到概率：P = 1 / (1 + exp(-z))。
// 数学上值域为开区间 (0, 1)；z = 0 时恰为 0.5。
func Sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
