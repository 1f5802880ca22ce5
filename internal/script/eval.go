package script

import (
	"fmt"
	"strings"
	"sync"

	"tracktagger/internal/metadata"
)

type env struct {
	m *metadata.Metadata
}

type function struct {
	minArgs, maxArgs int
	// lazy functions receive unevaluated arguments.
	lazy bool
	fn   func(ctx *env, args []expr) (string, error)
}

var functions map[string]function

func init() {
	functions = map[string]function{
		"set":     {minArgs: 2, maxArgs: 2, fn: funcSet},
		"unset":   {minArgs: 1, maxArgs: 1, fn: funcUnset},
		"delete":  {minArgs: 1, maxArgs: 1, fn: funcUnset},
		"get":     {minArgs: 1, maxArgs: 1, fn: funcGet},
		"if":      {minArgs: 2, maxArgs: 3, lazy: true, fn: funcIf},
		"noop":    {minArgs: 0, maxArgs: -1, lazy: true, fn: func(*env, []expr) (string, error) { return "", nil }},
		"lower":   {minArgs: 1, maxArgs: 1, fn: mapArg(strings.ToLower)},
		"upper":   {minArgs: 1, maxArgs: 1, fn: mapArg(strings.ToUpper)},
		"trim":    {minArgs: 1, maxArgs: 1, fn: mapArg(strings.TrimSpace)},
		"eq":      {minArgs: 2, maxArgs: 2, fn: funcEq},
		"not":     {minArgs: 1, maxArgs: 1, fn: funcNot},
		"replace": {minArgs: 3, maxArgs: 3, fn: funcReplace},
	}
}

func (e expr) eval(ctx *env) (string, error) {
	var b strings.Builder
	for _, n := range e {
		s, err := n.eval(ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func (t text) eval(*env) (string, error) { return string(t), nil }

func (v variable) eval(ctx *env) (string, error) {
	return ctx.m.Get(string(v)), nil
}

func (c call) eval(ctx *env) (string, error) {
	f, ok := functions[c.name]
	if !ok {
		return "", fmt.Errorf("unknown function $%s at position %d", c.name, c.pos)
	}
	if len(c.args) < f.minArgs || (f.maxArgs >= 0 && len(c.args) > f.maxArgs) {
		return "", fmt.Errorf("$%s at position %d: wrong number of arguments (%d)", c.name, c.pos, len(c.args))
	}
	if f.lazy {
		return f.fn(ctx, c.args)
	}
	evaluated := make([]expr, len(c.args))
	for i, arg := range c.args {
		s, err := arg.eval(ctx)
		if err != nil {
			return "", err
		}
		evaluated[i] = expr{text(s)}
	}
	return f.fn(ctx, evaluated)
}

// value returns the text of an already evaluated argument.
func value(arg expr) string {
	if len(arg) == 0 {
		return ""
	}
	return string(arg[0].(text))
}

func mapArg(fn func(string) string) func(*env, []expr) (string, error) {
	return func(_ *env, args []expr) (string, error) {
		return fn(value(args[0])), nil
	}
}

func funcSet(ctx *env, args []expr) (string, error) {
	name := strings.TrimSpace(value(args[0]))
	if name == "" {
		return "", fmt.Errorf("$set: empty tag name")
	}
	ctx.m.Set(name, value(args[1]))
	return "", nil
}

func funcUnset(ctx *env, args []expr) (string, error) {
	ctx.m.Delete(strings.TrimSpace(value(args[0])))
	return "", nil
}

func funcGet(ctx *env, args []expr) (string, error) {
	return ctx.m.Get(strings.TrimSpace(value(args[0]))), nil
}

func funcIf(ctx *env, args []expr) (string, error) {
	cond, err := args[0].eval(ctx)
	if err != nil {
		return "", err
	}
	if cond != "" {
		return args[1].eval(ctx)
	}
	if len(args) == 3 {
		return args[2].eval(ctx)
	}
	return "", nil
}

func funcEq(_ *env, args []expr) (string, error) {
	if value(args[0]) == value(args[1]) {
		return "1", nil
	}
	return "", nil
}

func funcNot(_ *env, args []expr) (string, error) {
	if value(args[0]) == "" {
		return "1", nil
	}
	return "", nil
}

func funcReplace(_ *env, args []expr) (string, error) {
	return strings.ReplaceAll(value(args[0]), value(args[1]), value(args[2])), nil
}

// Parser evaluates tagger scripts, caching each distinct script once parsed.
type Parser struct {
	mu    sync.Mutex
	cache map[string]expr
}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{cache: make(map[string]expr)}
}

// Eval runs script against m. On error m may be partially modified.
func (p *Parser) Eval(script string, m *metadata.Metadata) error {
	e, err := p.compile(script)
	if err != nil {
		return err
	}
	_, err = e.eval(&env{m: m})
	return err
}

func (p *Parser) compile(script string) (expr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.cache[script]; ok {
		return e, nil
	}
	e, err := parse(script)
	if err != nil {
		return nil, err
	}
	p.cache[script] = e
	return e, nil
}
