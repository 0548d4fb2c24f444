package preprocess

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/asmacro/internal/macro"
)

type cond struct {
	parent  bool // enclosing block was active
	active  bool
	taken   bool // some branch has already been active
	sawElse bool
}

type condStack struct {
	conds []cond
}

func (s *condStack) skipping() bool {
	return len(s.conds) > 0 && !s.conds[len(s.conds)-1].active
}

func (s *condStack) depth() int { return len(s.conds) }

func (s *condStack) reset() { s.conds = nil }

// truncate drops conditionals opened above depth n.
func (s *condStack) truncate(n int) {
	if n < len(s.conds) {
		s.conds = s.conds[:n]
	}
}

func (s *condStack) push(parent, value bool) {
	s.conds = append(s.conds, cond{parent: parent, active: parent && value, taken: value})
}

// handleConditional tracks .if/.else/.endif. It runs even while skipping so
// nesting stays balanced, and reports whether d was a conditional directive.
func (p *Processor) handleConditional(d macro.Directive) bool {
	switch d.Word {
	case "if", "ifeq", "ifne", "ifb", "ifnb", "ifc", "ifnc", "ifdef", "ifndef":
		parent := !p.conds.skipping()
		value := false
		if parent {
			value = p.evalCondition(d.Word, d.Rest)
		}
		p.conds.push(parent, value)

	case "else":
		if p.conds.depth() == 0 {
			p.diagnose(SeverityError, ".else without .if", nil)
			return true
		}
		top := &p.conds.conds[len(p.conds.conds)-1]
		if top.sawElse {
			p.diagnose(SeverityError, "duplicate .else", nil)
		}
		top.sawElse = true
		top.active = top.parent && !top.taken
		top.taken = true

	case "endif":
		if p.conds.depth() == 0 {
			p.diagnose(SeverityError, ".endif without .if", nil)
			return true
		}
		p.conds.conds = p.conds.conds[:len(p.conds.conds)-1]

	default:
		return false
	}
	return true
}

func (p *Processor) evalCondition(word, arg string) bool {
	arg = strings.TrimSpace(arg)
	switch word {
	case "ifb":
		return arg == ""
	case "ifnb":
		return arg != ""
	case "ifc", "ifnc":
		a, b := splitPair(arg)
		return (unquote(a) == unquote(b)) == (word == "ifc")
	case "ifdef", "ifndef":
		_, sym := p.eval.Lookup(arg)
		_, mac := p.engine.Lookup(arg)
		return (sym || mac) == (word == "ifdef")
	}

	v, err := p.eval.Eval(arg)
	if err != nil {
		p.diagnose(SeverityError, fmt.Sprintf(".%s: %v", word, err), err)
		return false
	}
	if word == "ifeq" {
		return v == 0
	}
	return v != 0
}

// splitPair splits "a, b" at the first comma outside quotes.
func splitPair(s string) (string, string) {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ',':
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
		}
	}
	return strings.TrimSpace(s), ""
}
