package condition

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type compiled struct {
	program *vm.Program
	err     error
}

// programs caches compiled expressions by source. Conditions come from a
// fixed content pack, so the cache is bounded by its size.
var programs sync.Map

func compile(src string) (*vm.Program, error) {
	if c, ok := programs.Load(src); ok {
		c := c.(compiled)
		return c.program, c.err
	}
	program, err := expr.Compile(src, expr.AsBool())
	programs.Store(src, compiled{program: program, err: err})
	return program, err
}

func evalExpr(src string, ctx Context) bool {
	program, err := compile(src)
	if err != nil {
		return false
	}

	env := map[string]any{
		"counters":   counts(ctx.Counters),
		"categories": counts(ctx.CategoryCounts),
	}
	for k, v := range ctx.Env {
		env[k] = v
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	ok, isBool := out.(bool)
	return isBool && ok
}

func counts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
