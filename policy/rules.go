package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/dsl"
)

// Rule 是一条挽留动线规则：表达式命中即把客户划入 Tier。
//
// 示例：
//   - probability >= 0.6 && fields.contract == "month-to-month" → high
//   - fields.tenure >= 60.0 && churn → medium
type Rule struct {
	// Name 是规则名，写入客户标签用于归因
	Name string `yaml:"name" json:"name"`

	// Expr 是 CEL 布尔表达式，可用变量见 dsl.Input
	Expr string `yaml:"expr" json:"expr"`

	// Tier 是命中后划入的层级
	Tier string `yaml:"tier" json:"tier"`
}

type compiledRule struct {
	name string
	tier string
	prg  cel.Program
}

// Engine 按声明顺序执行规则，首条命中生效；
// 全部未命中时回退到概率阶梯。
//
// 规则在装配期编译，坏表达式让任务启动失败，而不是运行期静默跳过。
type Engine struct {
	rules  []compiledRule
	ladder Ladder
}

// NewEngine 编译规则并装配引擎。ladder 为 nil 时使用 DefaultLadder。
func NewEngine(rules []Rule, ladder Ladder) (*Engine, error) {
	if ladder == nil {
		ladder = DefaultLadder()
	}
	e := &Engine{ladder: ladder}
	for i, r := range rules {
		if r.Expr == "" {
			return nil, fmt.Errorf("rule %d (%s): empty expression", i, r.Name)
		}
		if r.Tier == "" {
			return nil, fmt.Errorf("rule %d (%s): empty tier", i, r.Name)
		}
		prg, err := dsl.Compile(r.Expr)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Name, err)
		}
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("rule_%d", i)
		}
		e.rules = append(e.rules, compiledRule{name: name, tier: r.Tier, prg: prg})
	}
	return e, nil
}

// TierFor 返回客户的挽留层级与命中的规则名。
// 走阶梯回退时规则名为空串。单条规则求值出错按未命中处理。
func (e *Engine) TierFor(c *core.Customer, bctx *core.BatchContext) (tier, rule string) {
	for _, r := range e.rules {
		ok, err := dsl.EvalBool(r.prg, c, bctx)
		if err != nil {
			continue
		}
		if ok {
			return r.tier, r.name
		}
	}
	return e.ladder.TierFor(c.Probability), ""
}
