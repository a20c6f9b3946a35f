package train

import (
	"math"
	"math/rand"
)

// solveL2RLRDual 用对偶坐标下降求解 L2 正则逻辑回归：
//
//	min_w  0.5 * w'w + C * sum_i log(1 + exp(-y_i * w'x_i))
//
// 对偶形式对每个样本维护一对变量 (alpha_i, C - alpha_i)，逐样本做
// 单变量子问题的 Newton 迭代。目标函数严格凸，最优解唯一，
// 求解顺序只影响收敛路径不影响结果；置换由调用方传入的 rng 驱动，
// 固定种子即可获得完全可复现的训练。
//
// y 取值 ±1；x 的每行都已追加常数 1.0 截距列，截距与普通系数一样
// 参与正则化。返回权重向量、外层迭代数与是否在 maxIter 内收敛。
func solveL2RLRDual(x [][]float64, y []int8, c, eps float64, maxIter int, rng *rand.Rand) ([]float64, int, bool) {
	l := len(x)
	if l == 0 {
		return nil, 0, true
	}
	n := len(x[0])
	w := make([]float64, n)

	const maxInnerIter = 100
	const eta = 0.1
	innerEps := 1e-2
	innerEpsMin := math.Min(1e-8, eps)

	alpha := make([]float64, 2*l)
	xTx := make([]float64, l)
	index := make([]int, l)

	for i := 0; i < l; i++ {
		alpha[2*i] = math.Min(0.001*c, 1e-8)
		alpha[2*i+1] = c - alpha[2*i]

		var sq float64
		yi := float64(y[i])
		a0 := alpha[2*i]
		for j, v := range x[i] {
			sq += v * v
			w[j] += yi * a0 * v
		}
		xTx[i] = sq
		index[i] = i
	}

	iter := 0
	converged := false
	for iter < maxIter {
		for i := 0; i < l; i++ {
			j := i + rng.Intn(l-i)
			index[i], index[j] = index[j], index[i]
		}

		newtonIter := 0
		gmax := 0.0
		for s := 0; s < l; s++ {
			i := index[s]
			yi := float64(y[i])

			var dot float64
			for j, v := range x[i] {
				dot += w[j] * v
			}
			a := xTx[i]
			b := yi * dot

			// 选择待优化的一侧：alpha_i 或其补 C - alpha_i
			ind1, ind2, sign := 2*i, 2*i+1, 1.0
			if 0.5*a*(alpha[ind2]-alpha[ind1])+b < 0 {
				ind1, ind2, sign = 2*i+1, 2*i, -1.0
			}

			alphaOld := alpha[ind1]
			z := alphaOld
			if c-z < 0.5*c {
				z = 0.1 * z
			}
			gp := a*(z-alphaOld) + sign*b + math.Log(z/(c-z))
			if math.Abs(gp) > gmax {
				gmax = math.Abs(gp)
			}

			// 子问题 Newton 迭代，步长越界时按 eta 回退
			innerIter := 0
			for innerIter <= maxInnerIter {
				if math.Abs(gp) < innerEps {
					break
				}
				gpp := a + c/(c-z)/z
				tmpz := z - gp/gpp
				if tmpz <= 0 {
					z *= eta
				} else {
					z = tmpz
				}
				gp = a*(z-alphaOld) + sign*b + math.Log(z/(c-z))
				newtonIter++
				innerIter++
			}

			if innerIter > 0 {
				alpha[ind1] = z
				alpha[ind2] = c - z
				step := sign * (z - alphaOld) * yi
				for j, v := range x[i] {
					w[j] += step * v
				}
			}
		}

		iter++
		if gmax < eps {
			converged = true
			break
		}
		// 外层接近收敛后收紧内层精度
		if newtonIter <= l/10 {
			innerEps = math.Max(innerEpsMin, 0.1*innerEps)
		}
	}
	return w, iter, converged
}
