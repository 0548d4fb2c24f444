package preprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/asmacro/internal/macro"
)

var repeatKinds = map[string]macro.RepeatKind{
	"rept":  macro.RepeatCount,
	"irp":   macro.RepeatIRP,
	"irep":  macro.RepeatIRP,
	"irpc":  macro.RepeatIRPC,
	"irepc": macro.RepeatIRPC,
}

// handleDirective runs the directives the preprocessor owns. It reports
// false for directives that belong to the assembler.
func (p *Processor) handleDirective(d macro.Directive) (bool, error) {
	pos := p.position()

	if kind, ok := repeatKinds[d.Word]; ok {
		text, err := p.engine.ExpandRepeat(kind, d.Rest, p.stack, pos)
		if err != nil {
			p.diagnose(SeverityError, diagnosticMessage(err), err)
			return true, nil
		}
		if err := p.labelOf(d); err != nil {
			return true, err
		}
		p.stack.PushRepeat(d.Word, text)
		p.result.Repeats++
		return true, nil
	}

	switch d.Word {
	case "macro":
		label := ""
		if p.engine.MRI() {
			label = d.Label
		} else if err := p.labelOf(d); err != nil {
			return true, err
		}
		name, err := p.engine.DefineMacro(label, d.Rest, p.stack, pos)
		if err != nil {
			p.diagnose(SeverityError, diagnosticMessage(err), err)
			return true, nil
		}
		p.result.Definitions++
		p.logger.Debug("macro defined", "name", name, "at", pos.String())

	case "endm":
		p.diagnose(SeverityError, ".endm without .macro", nil)

	case "endr":
		p.diagnose(SeverityError, ".endr without a repeat block", nil)

	case "exitm":
		frame, _ := p.stack.InnermostMacro().(*macroFrame)
		ok, err := p.stack.ExitMacro()
		if err != nil {
			return true, err
		}
		if !ok {
			p.diagnose(SeverityError, ".exitm outside of a macro", nil)
			break
		}
		// conditionals opened inside the abandoned body end with it
		if frame != nil {
			p.conds.truncate(frame.conds)
		}

	case "purgem":
		for _, name := range splitNames(d.Rest) {
			if _, ok := p.engine.Lookup(name); !ok {
				p.diagnose(SeverityWarning, fmt.Sprintf(".purgem: macro %q is not defined", name), nil)
				continue
			}
			p.engine.DeleteMacro(name)
		}

	case "altmacro":
		p.engine.SetAlternate(true)

	case "noaltmacro":
		p.engine.SetAlternate(false)

	case "mri":
		switch strings.TrimSpace(d.Rest) {
		case "", "1":
			p.engine.SetMRI(true)
		case "0":
			p.engine.SetMRI(false)
		default:
			p.diagnose(SeverityError, fmt.Sprintf(".mri: expected 0 or 1, got %q", d.Rest), nil)
		}

	case "include":
		return true, p.include(d.Rest)

	default:
		return false, nil
	}
	return true, nil
}

func (p *Processor) labelOf(d macro.Directive) error {
	return p.emitLabel(d.Label)
}

// include pushes the named file. Relative names are tried against the
// including file's directory and then each include directory.
func (p *Processor) include(arg string) error {
	name := unquote(strings.TrimSpace(arg))
	if name == "" {
		p.diagnose(SeverityError, ".include: missing file name", nil)
		return nil
	}

	path, ok := p.resolveInclude(name)
	if !ok {
		p.diagnose(SeverityError, fmt.Sprintf(".include: cannot find %q", name), nil)
		return nil
	}
	if p.stack.Includes(path) {
		p.diagnose(SeverityError, fmt.Sprintf(".include: %q includes itself", path), nil)
		return nil
	}
	if err := p.stack.PushFile(path); err != nil {
		p.diagnose(SeverityError, err.Error(), err)
		return nil
	}
	p.logger.Debug("included file", "path", path)
	return nil
}

func (p *Processor) resolveInclude(name string) (string, bool) {
	var candidates []string
	if filepath.IsAbs(name) {
		candidates = append(candidates, name)
	} else {
		if cur := p.stack.Position().File; cur != "" {
			candidates = append(candidates, filepath.Join(filepath.Dir(cur), name))
		}
		for _, dir := range p.cfg.IncludeDirs {
			candidates = append(candidates, filepath.Join(dir, name))
		}
		candidates = append(candidates, name)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return filepath.Clean(c), true
		}
	}
	return "", false
}

// assignment records "name = expr", ".set name, expr" and ".equ name, expr"
// so later expressions can use the symbol. Values that cannot be computed
// here are left to the assembler.
func (p *Processor) assignment(stmt string) {
	var name, expr string
	s := strings.TrimSpace(stmt)
	if rest, ok := cutDirective(s, ".set", ".equ", ".equiv"); ok {
		n, e, found := strings.Cut(rest, ",")
		if !found {
			return
		}
		name, expr = strings.TrimSpace(n), e
	} else if n, e, found := strings.Cut(s, "="); found && !strings.HasPrefix(e, "=") {
		name, expr = strings.TrimSpace(n), e
	} else {
		return
	}
	if name == "" || strings.ContainsAny(name, " \t\"'") {
		return
	}
	if _, err := p.eval.Assign(name, expr); err != nil {
		p.logger.Debug("symbol left to the assembler", "name", name, "error", err)
	}
}

func cutDirective(s string, words ...string) (string, bool) {
	for _, w := range words {
		if len(s) > len(w) && strings.EqualFold(s[:len(w)], w) && (s[len(w)] == ' ' || s[len(w)] == '\t') {
			return s[len(w)+1:], true
		}
	}
	return "", false
}

// splitLabel separates a leading label from the statement. In MRI mode any
// word starting in column 0 is a label.
func (p *Processor) splitLabel(line string) (label, stmt string) {
	if p.engine.MRI() && line != "" && line[0] != ' ' && line[0] != '\t' && line[0] != '.' {
		end := strings.IndexAny(line, " \t")
		if end < 0 {
			end = len(line)
		}
		return strings.TrimSuffix(line[:end], ":"), strings.TrimSpace(line[end:])
	}
	s := strings.TrimLeft(line, " \t")
	if i := strings.IndexByte(s, ':'); i > 0 && isIdent(s[:i]) {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return "", s
}

func isPseudoOp(stmt string) bool {
	return len(stmt) > 1 && stmt[0] == '.' && isIdentByte(stmt[1])
}

func isIdent(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) && !(s[i] >= '0' && s[i] <= '9') {
			return false
		}
	}
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func splitNames(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
