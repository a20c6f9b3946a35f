// Package policy 把流失概率转化为挽留动作层级（Tier）。
//
// 分层有两条路径：
//   - 概率阶梯（Ladder）：按阈值从高到低逐级匹配，所有阈值均为闭区间下界
//   - 规则引擎（Engine）：CEL 表达式规则优先，首条命中生效，未命中回退阶梯
//
// 运营侧按层级挂接动作：高危人工外呼、中危定向优惠、低危邮件关怀。
package policy

// 挽留层级常量，从高到低。
const (
	TierHigh    = "high"
	TierMedium  = "medium"
	TierLow     = "low"
	TierMinimal = "minimal"
)

// Step 是阶梯中的一级：概率大于等于 Threshold 即落入 Tier。
type Step struct {
	Threshold float64
	Tier      string
}

// Ladder 是按阈值从高到低排列的分层阶梯。
type Ladder []Step

// DefaultLadder 返回默认分层阶梯：
// >=0.7 high，>=0.5 medium，>=0.3 low，其余 minimal。
func DefaultLadder() Ladder {
	return Ladder{
		{Threshold: 0.7, Tier: TierHigh},
		{Threshold: 0.5, Tier: TierMedium},
		{Threshold: 0.3, Tier: TierLow},
	}
}

// TierFor 返回概率所属层级。概率恰好等于阈值时落入该级。
func (l Ladder) TierFor(probability float64) string {
	for _, s := range l {
		if probability >= s.Threshold {
			return s.Tier
		}
	}
	return TierMinimal
}
