package macro

import (
	"errors"
	"strconv"
	"strings"
)

// RepeatKind selects the repeat directive being expanded.
type RepeatKind int

// Repeat kinds.
const (
	RepeatIRP   RepeatKind = iota // .irp var, values...
	RepeatIRPC                    // .irpc var, chars
	RepeatCount                   // .rept count
)

func (k RepeatKind) String() string {
	switch k {
	case RepeatIRP:
		return "irp"
	case RepeatIRPC:
		return "irpc"
	case RepeatCount:
		return "rept"
	default:
		return "unknown"
	}
}

// ExpandRepeat captures a repeat body from src and returns the concatenated
// copies. header is the text after the directive word. The body is consumed
// even when the header is rejected.
func (e *Engine) ExpandRepeat(kind RepeatKind, header string, src LineSource, pos Position) (string, error) {
	block, cerr := e.Capture(src, RepeatFamily)
	if cerr != nil {
		if errors.Is(cerr, ErrUnterminated) {
			return "", newError(pos, "", ErrUnterminated, ".%s: %v", kind, cerr)
		}
		return "", &Error{Pos: pos, Kind: ErrRead, Msg: cerr.Error(), Err: cerr}
	}

	header = strings.TrimSpace(header)
	if kind == RepeatCount {
		n, err := e.repeatCount(header, pos)
		if err != nil {
			return "", err
		}
		return e.repeatBody(block.Text, "", n, nil), nil
	}

	j := scanName(header, 0)
	if j == 0 {
		return "", newError(pos, "", ErrMalformedHeader, ".%s: missing parameter name", kind)
	}
	name := header[:j]
	rest := strings.TrimLeft(header[j:], " \t")
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ","))

	var values []string
	switch kind {
	case RepeatIRP:
		for _, item := range e.splitActuals(rest) {
			v, err := e.decodeActual("", item, pos)
			if err != nil {
				return "", err
			}
			values = append(values, v)
		}
	case RepeatIRPC:
		chars, err := e.decodeActual("", unquote(rest), pos)
		if err != nil {
			return "", err
		}
		for i := 0; i < len(chars); i++ {
			values = append(values, chars[i:i+1])
		}
	default:
		return "", newError(pos, "", ErrMalformedHeader, "unknown repeat kind %d", int(kind))
	}

	e.logger.Debug("expanding repeat", "kind", kind.String(), "parameter", name, "count", len(values))
	return e.repeatBody(block.Text, name, len(values), values), nil
}

func (e *Engine) repeatCount(expr string, pos Position) (int, error) {
	if expr == "" {
		return 0, newError(pos, "", ErrBadCount, ".rept: missing count")
	}
	n, err := e.evaluate(expr)
	if err != nil {
		return 0, newError(pos, "", ErrBadCount, ".rept: cannot evaluate count %q: %v", expr, err)
	}
	if n < 0 {
		return 0, newError(pos, "", ErrBadCount, ".rept: negative count %d", n)
	}
	return int(n), nil
}

// repeatBody emits count copies of body. In each copy \name (and bare name in
// alternate mode) becomes values[idx] and \+ the iteration index. values is
// only read when name is set.
func (e *Engine) repeatBody(body, name string, count int, values []string) string {
	var (
		out Buffer
		key string
	)
	if name != "" {
		key = e.table.fold(name)
	}
	for idx := 0; idx < count; idx++ {
		var value string
		if key != "" {
			value = values[idx]
		}
		iter := strconv.Itoa(idx)
		for i := 0; i < len(body); {
			c := body[i]
			switch {
			case c == '\\' && i+1 < len(body):
				n := body[i+1]
				switch {
				case n == '+':
					out.Append(iter)
					i += 2
				case n == '(' && i+2 < len(body) && body[i+2] == ')':
					i += 3
				case key != "" && isNameStart(n):
					j := scanName(body, i+1)
					if e.table.fold(body[i+1:j]) == key {
						out.Append(value)
					} else {
						out.Append(body[i:j])
					}
					i = j
				default:
					out.Append(body[i : i+2])
					i += 2
				}
				continue
			case key != "" && e.alternate && isNameStart(c) && (i == 0 || !isNamePart(body[i-1])):
				j := scanName(body, i)
				if e.table.fold(body[i:j]) == key {
					out.Append(value)
				} else {
					out.Append(body[i:j])
				}
				i = j
				continue
			}
			out.AppendByte(c)
			i++
		}
	}
	return out.String()
}

// unquote strips one pair of matching outer quotes.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
