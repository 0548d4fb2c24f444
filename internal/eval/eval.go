// Package eval evaluates assembler integer expressions for the preprocessor.
// Expressions are rewritten into Starlark and run against the symbols
// assigned so far with .set, .equ or "name = expr".
package eval

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Starlark floors / and %, assemblers truncate toward zero. Both operators
// are routed through these builtins.
var arith = starlark.StringDict{
	"_div": starlark.NewBuiltin("_div", divide),
	"_mod": starlark.NewBuiltin("_mod", divide),
}

// Evaluator holds the symbol values visible to expressions. It is safe for
// concurrent use.
type Evaluator struct {
	mu      sync.RWMutex
	symbols map[string]int64
	logger  *slog.Logger
}

// New creates an evaluator with no symbols.
func New(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{symbols: make(map[string]int64), logger: logger}
}

// Set assigns a symbol.
func (e *Evaluator) Set(name string, v int64) {
	e.mu.Lock()
	e.symbols[name] = v
	e.mu.Unlock()
}

// Lookup returns a symbol's value.
func (e *Evaluator) Lookup(name string) (int64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.symbols[name]
	return v, ok
}

// Symbols returns the assigned symbol names, sorted.
func (e *Evaluator) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.symbols))
	for n := range e.symbols {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Assign evaluates expr and stores the result under name.
func (e *Evaluator) Assign(name, expr string) (int64, error) {
	v, err := e.Eval(expr)
	if err != nil {
		return 0, err
	}
	e.Set(name, v)
	e.logger.Debug("symbol assigned", "name", name, "value", v)
	return v, nil
}

// Eval evaluates an integer expression. Booleans yield 1 or 0.
func (e *Evaluator) Eval(expr string) (int64, error) {
	src, err := e.translate(expr)
	if err != nil {
		return 0, &Error{Expr: expr, Message: err.Error()}
	}
	src, err = rewrite(src)
	if err != nil {
		return 0, &Error{Expr: expr, Message: err.Error()}
	}
	thread := &starlark.Thread{
		Name:  "expr",
		Print: func(_ *starlark.Thread, _ string) {},
	}
	result, err := starlark.Eval(thread, "expr", src, arith) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	if err != nil {
		return 0, &Error{Expr: expr, Message: err.Error()}
	}

	switch v := result.(type) {
	case starlark.Int:
		n, ok := v.Int64()
		if !ok {
			return 0, &Error{Expr: expr, Message: "value out of range"}
		}
		return n, nil
	case starlark.Bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, &Error{Expr: expr, Message: fmt.Sprintf("expected an integer, got %s", result.Type())}
	}
}

// translate rewrites assembler operators into Starlark and substitutes symbol
// values. Unknown symbols are an error.
func (e *Evaluator) translate(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", fmt.Errorf("empty expression")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var b strings.Builder
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case isDigit(c):
			j := i
			for j < len(expr) && (isDigit(expr[j]) || isLetter(expr[j])) {
				j++
			}
			n, err := strconv.ParseInt(expr[i:j], 0, 64)
			if err != nil {
				return "", fmt.Errorf("bad number %q", expr[i:j])
			}
			b.WriteString(strconv.FormatInt(n, 10))
			i = j
		case isLetter(c) || c == '_' || c == '.' || c == '$':
			j := i + 1
			for j < len(expr) && (isLetter(expr[j]) || isDigit(expr[j]) || expr[j] == '_' || expr[j] == '.' || expr[j] == '$') {
				j++
			}
			name := expr[i:j]
			v, ok := e.symbols[name]
			if !ok {
				return "", fmt.Errorf("undefined symbol %q", name)
			}
			fmt.Fprintf(&b, "(%d)", v)
			i = j
		case c == '\'' && i+2 < len(expr) && expr[i+2] == '\'':
			b.WriteString(strconv.Itoa(int(expr[i+1])))
			i += 3
		case strings.HasPrefix(expr[i:], "&&"):
			b.WriteString(" and ")
			i += 2
		case strings.HasPrefix(expr[i:], "||"):
			b.WriteString(" or ")
			i += 2
		case c == '!' && !strings.HasPrefix(expr[i:], "!="):
			b.WriteString(" not ")
			i++
		case c == '<' && strings.HasPrefix(expr[i:], "<>"):
			b.WriteString("!=")
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// rewrite parses translated source and prints it back fully parenthesized,
// with division and remainder turned into calls to the truncating builtins.
// Anything but integer arithmetic, comparison and logic is rejected.
func rewrite(src string) (string, error) {
	// leading blanks would scan as an indent
	x, err := syntax.ParseExpr("expr", strings.TrimSpace(src), 0)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := render(&b, x); err != nil {
		return "", err
	}
	return b.String(), nil
}

func render(b *strings.Builder, x syntax.Expr) error {
	switch x := x.(type) {
	case *syntax.Literal:
		if x.Token != syntax.INT {
			return fmt.Errorf("unsupported operand %s", x.Raw)
		}
		b.WriteString(x.Raw)
	case *syntax.ParenExpr:
		return render(b, x.X)
	case *syntax.UnaryExpr:
		switch x.Op {
		case syntax.MINUS, syntax.PLUS, syntax.TILDE, syntax.NOT:
		default:
			return fmt.Errorf("unsupported operator %s", x.Op)
		}
		fmt.Fprintf(b, "(%s ", x.Op)
		if err := render(b, x.X); err != nil {
			return err
		}
		b.WriteByte(')')
	case *syntax.BinaryExpr:
		op := x.Op.String()
		switch x.Op {
		case syntax.SLASH, syntax.SLASHSLASH:
			return call(b, "_div", x.X, x.Y)
		case syntax.PERCENT:
			return call(b, "_mod", x.X, x.Y)
		case syntax.PLUS, syntax.MINUS, syntax.STAR,
			syntax.PIPE, syntax.AMP, syntax.CIRCUMFLEX, syntax.LTLT, syntax.GTGT,
			syntax.EQL, syntax.NEQ, syntax.LT, syntax.GT, syntax.LE, syntax.GE,
			syntax.AND, syntax.OR:
		default:
			return fmt.Errorf("unsupported operator %s", op)
		}
		b.WriteByte('(')
		if err := render(b, x.X); err != nil {
			return err
		}
		fmt.Fprintf(b, " %s ", op)
		if err := render(b, x.Y); err != nil {
			return err
		}
		b.WriteByte(')')
	default:
		return errors.New("unsupported expression")
	}
	return nil
}

func call(b *strings.Builder, fn string, x, y syntax.Expr) error {
	b.WriteString(fn)
	b.WriteByte('(')
	if err := render(b, x); err != nil {
		return err
	}
	b.WriteString(", ")
	if err := render(b, y); err != nil {
		return err
	}
	b.WriteByte(')')
	return nil
}

// divide implements both _div and _mod with Go's truncating semantics.
func divide(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x, y starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &x, &y); err != nil {
		return nil, err
	}
	n, err := toInt64(x)
	if err != nil {
		return nil, err
	}
	d, err := toInt64(y)
	if err != nil {
		return nil, err
	}
	if d == 0 {
		return nil, errors.New("division by zero")
	}
	if fn.Name() == "_mod" {
		return starlark.MakeInt64(n % d), nil
	}
	return starlark.MakeInt64(n / d), nil
}

func toInt64(v starlark.Value) (int64, error) {
	switch v := v.(type) {
	case starlark.Int:
		n, ok := v.Int64()
		if !ok {
			return 0, errors.New("value out of range")
		}
		return n, nil
	case starlark.Bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("expected an integer, got %s", v.Type())
	}
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// Error is returned when an expression cannot be evaluated.
type Error struct {
	Expr    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("error evaluating %q: %s", e.Expr, e.Message)
}
