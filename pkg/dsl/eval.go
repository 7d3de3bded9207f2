package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/shoprec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量和函数
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是规则过滤用的表达式解释器，基于 CEL (Common Expression Language)。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：item.brand == "Dell" / label.recall_source != "coldstart"
//   - 数值：item.score > 0.7 / item.content_score >= 0.5
//   - 逻辑：rctx.scene == "home" && item.price > 50000000.0
//   - 包含：label.recall_source.contains("ann")
//
// 示例：
//   - `item.brand == "Apple" && rctx.scene == "budget"` → 预算场景排除 Apple
//   - `label.recall_source.contains("coldstart")` → 命中冷启动兜底的候选
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
	env  *cel.Env
}

// NewEval 创建一个新的表达式解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		item: item,
		rctx: rctx,
		env:  env,
	}
}

// Evaluate 解析并执行表达式，返回布尔结果。
// 空表达式视为恒真。访问不存在的 key 会报错，存在性检查请用 label.key != null。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("cel env not initialized")
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]any {
	item := map[string]any{
		"id":            e.item.ID,
		"score":         e.item.Score,
		"content_score": e.item.ContentScore,
		"collab_score":  e.item.CollabScore,
		"brand":         e.item.Brand(),
		"meta":          e.item.Meta,
	}
	if price, ok := e.item.Meta["price"]; ok {
		item["price"] = price
	}

	// label.recall_source 直接取 value，存在性检查用 != null
	labelAccessor := make(map[string]any, len(e.item.Labels))
	for k, v := range e.item.Labels {
		labelAccessor[k] = v.Value
	}

	rctx := map[string]any{}
	if e.rctx != nil {
		rctx["user_id"] = e.rctx.UserID
		rctx["scene"] = e.rctx.Scene
		rctx["params"] = e.rctx.Params
	}

	return map[string]any{
		"item":  item,
		"label": labelAccessor,
		"rctx":  rctx,
	}
}
