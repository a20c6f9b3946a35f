package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/churnkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

// initCELEnv 初始化 CEL 环境，声明可用变量。
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		// 顶层快捷变量：规则大多只看这两个
		cel.Variable("probability", cel.DoubleType),
		cel.Variable("churn", cel.BoolType),
		// 完整视图
		cel.Variable("customer", cel.DynType),
		cel.Variable("fields", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("bctx", cel.DynType),
	)
}

// Env 获取全局 CEL 环境。
func Env() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Compile 把表达式编译为可复用的 CEL 程序。
// 程序线程安全，调用方应在装配期编译一次、运行期反复求值。
func Compile(expr string) (cel.Program, error) {
	env, err := Env()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return prg, nil
}

// Input 把客户与批处理上下文展开为 CEL 求值输入。
//
// 可用变量：
//   - probability / churn：评分结果的顶层快捷访问
//   - fields.tenure / fields.contract：客户画像字段
//   - label.scored_by：节点写入的标签值（取 Label.Value）
//   - customer.id / customer.tier / customer.meta：完整客户视图
//   - bctx.job_id / bctx.scene / bctx.params：任务上下文
//
// CEL 访问不存在的 key 会报错，存在性判断请用 `"tenure" in fields` 写法。
func Input(c *core.Customer, bctx *core.BatchContext) map[string]any {
	labels := make(map[string]any, len(c.Labels))
	labelValues := make(map[string]any, len(c.Labels))
	for k, v := range c.Labels {
		labels[k] = map[string]any{"value": v.Value, "source": v.Source}
		labelValues[k] = v.Value
	}

	customer := map[string]any{
		"id":          c.ID,
		"probability": c.Probability,
		"churn":       c.Churn,
		"tier":        c.Tier,
		"fields":      c.Fields,
		"meta":        c.Meta,
		"labels":      labels,
	}

	input := map[string]any{
		"probability": c.Probability,
		"churn":       c.Churn,
		"customer":    customer,
		"fields":      c.Fields,
		"label":       labelValues,
	}

	if bctx != nil {
		input["bctx"] = map[string]any{
			"job_id": bctx.JobID,
			"scene":  bctx.Scene,
			"params": bctx.Params,
		}
	} else {
		input["bctx"] = map[string]any{}
	}
	return input
}

// EvalBool 对单个客户执行已编译的程序，要求表达式结果为布尔值。
func EvalBool(prg cel.Program, c *core.Customer, bctx *core.BatchContext) (bool, error) {
	out, _, err := prg.Eval(Input(c, bctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// Eval 是一次性表达式解释器，绑定单个客户与上下文。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：probability >= 0.7 / fields.tenure < 6.0
//   - 字符串：fields.contract == "month-to-month"
//   - 逻辑：churn && fields.paymentmethod == "electronic_check"
//   - 存在性："tenure" in fields
//   - 标签：label.scored_by == "churn-lr"
//
// 反复对多个客户求值请改用 Compile + EvalBool，避免重复编译。
type Eval struct {
	customer *core.Customer
	bctx     *core.BatchContext
}

// NewEval 创建一个新的 DSL 解释器。
func NewEval(c *core.Customer, bctx *core.BatchContext) *Eval {
	return &Eval{customer: c, bctx: bctx}
}

// Evaluate 编译并执行表达式，返回布尔结果。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	prg, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return EvalBool(prg, e.customer, e.bctx)
}
