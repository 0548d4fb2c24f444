package macro

import (
	"strconv"
	"strings"
)

// actual is one comma-separated item of an invocation's argument text.
type actual struct {
	keyword string // set for name=value items
	value   string
}

// splitActuals breaks s at top-level commas. String literals and parentheses
// protect commas; in alternate mode so do <...> groups and ! escapes.
func (e *Engine) splitActuals(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var (
		items []string
		depth int
		start int
	)
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			i = scanQuoted(s, i)
			continue
		case e.alternate && c == '<':
			i = scanAngle(s, i)
			continue
		case e.alternate && c == '!':
			i += 2
			continue
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			items = append(items, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
		i++
	}
	if start > len(s) {
		start = len(s)
	}
	return append(items, strings.TrimSpace(s[start:]))
}

// parseActuals splits and decodes the argument text of one invocation.
func (e *Engine) parseActuals(macro, s string, pos Position) ([]actual, error) {
	items := e.splitActuals(s)
	out := make([]actual, 0, len(items))
	for _, item := range items {
		var a actual
		if j := scanName(item, 0); j > 0 {
			k := skipSpace(item, j)
			if k < len(item) && item[k] == '=' && (k+1 == len(item) || item[k+1] != '=') {
				a.keyword = item[:j]
				item = strings.TrimSpace(item[k+1:])
			}
		}
		v, err := e.decodeActual(macro, item, pos)
		if err != nil {
			return nil, err
		}
		a.value = v
		out = append(out, a)
	}
	return out, nil
}

// decodeActual applies alternate-mode quoting rules to one actual. Outside
// alternate mode the text is returned unchanged.
func (e *Engine) decodeActual(macro, s string, pos Position) (string, error) {
	if !e.alternate {
		return s, nil
	}
	if strings.HasPrefix(s, "%") {
		n, err := e.evaluate(s[1:])
		if err != nil {
			return "", newError(pos, macro, ErrEvaluate, "cannot evaluate %q: %v", s[1:], err)
		}
		return strconv.FormatInt(n, 10), nil
	}
	if !strings.ContainsAny(s, "<!") {
		return s, nil
	}
	var b Buffer
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"' || c == '\'':
			j := scanQuoted(s, i)
			b.Append(s[i:j])
			i = j - 1
		case c == '!' && i+1 < len(s):
			b.AppendByte(s[i+1])
			i++
		case c == '<':
			j := scanAngle(s, i)
			b.Append(unescapeBang(strings.TrimSuffix(s[i+1:j], ">")))
			i = j - 1
		default:
			b.AppendByte(c)
		}
	}
	return b.String(), nil
}

func unescapeBang(s string) string {
	if !strings.Contains(s, "!") {
		return s
	}
	var b Buffer
	for i := 0; i < len(s); i++ {
		if s[i] == '!' && i+1 < len(s) {
			i++
		}
		b.AppendByte(s[i])
	}
	return b.String()
}

// evaluate runs the configured evaluator, falling back to integer literals.
func (e *Engine) evaluate(expr string) (int64, error) {
	expr = strings.TrimSpace(expr)
	if e.cfg.Evaluate != nil {
		return e.cfg.Evaluate(expr)
	}
	return strconv.ParseInt(expr, 0, 64)
}

// bindActuals fills a fresh frame for one invocation of m.
func (e *Engine) bindActuals(m *Macro, actuals []actual, pos Position) (*frame, error) {
	fr := newFrame()
	fr.count = len(actuals)

	positionals := m.Positionals()
	var (
		next int
		rest []string
	)
	for _, a := range actuals {
		if a.keyword != "" {
			f, ok := m.Formal(a.keyword)
			if !ok || f.Role != RolePositional {
				return nil, newError(pos, m.Name, ErrUnknownParam, "macro has no parameter named %q", a.keyword)
			}
			if fr.bound[f] {
				return nil, newError(pos, m.Name, ErrDuplicateArg, "parameter %q given more than once", f.Name)
			}
			fr.bind(f, a.value)
			continue
		}

		fr.positional = append(fr.positional, a.value)
		if next < len(positionals) && positionals[next].Kind == KindVararg {
			rest = append(rest, a.value)
			continue
		}
		if next >= len(positionals) {
			return nil, newError(pos, m.Name, ErrTooManyArgs, "too many positional arguments, unexpected %q", a.value)
		}
		f := positionals[next]
		next++
		if a.value == "" {
			continue
		}
		if fr.bound[f] {
			return nil, newError(pos, m.Name, ErrDuplicateArg, "parameter %q given more than once", f.Name)
		}
		fr.bind(f, a.value)
	}

	if len(rest) > 0 {
		f := positionals[next]
		if fr.bound[f] {
			return nil, newError(pos, m.Name, ErrDuplicateArg, "parameter %q given more than once", f.Name)
		}
		if joined := strings.Join(rest, e.cfg.VarargSeparator); joined != "" {
			fr.bind(f, joined)
		}
	}

	for _, f := range positionals {
		if fr.bound[f] {
			continue
		}
		if f.Kind == KindRequired {
			return nil, newError(pos, m.Name, ErrMissingArg, "missing value for required parameter %q", f.Name)
		}
		fr.values[f] = f.Default
	}
	return fr, nil
}
