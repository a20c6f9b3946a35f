package filter

import (
	"context"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
)

// MinTenureFilter 剔除在网时长不足的新客户。
// 新客户处于入网引导期，由 onboarding 团队负责，不走流失挽留流程。
type MinTenureFilter struct {
	// MinTenure 是最小在网月数，tenure 小于该值的客户被剔除。
	MinTenure float64
}

// NewMinTenureFilter 创建一个新客户过滤器。
func NewMinTenureFilter(minTenure float64) *MinTenureFilter {
	return &MinTenureFilter{MinTenure: minTenure}
}

func (f *MinTenureFilter) Name() string {
	return "filter.min_tenure"
}

func (f *MinTenureFilter) ShouldFilter(
	_ context.Context,
	_ *core.BatchContext,
	customer *core.Customer,
) (bool, error) {
	if customer == nil {
		return true, nil
	}
	if f.MinTenure <= 0 {
		return false, nil
	}

	value, ok := customer.Fields["tenure"]
	if !ok {
		// 画像缺 tenure 时不做判断，交给后续编码环节报错
		return false, nil
	}
	tenure, ok := conv.ToFloat64(value)
	if !ok {
		return false, nil
	}
	return tenure < f.MinTenure, nil
}
