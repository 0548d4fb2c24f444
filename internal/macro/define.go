package macro

import (
	"errors"
	"strings"
)

// DefineMacro parses a macro header, captures the body from src and registers
// the result. header is the text following the .macro directive; in MRI mode
// the macro is named by label and header holds only the formals. The body is
// always consumed, even when the header is rejected, so the caller resumes
// after the matching .endm.
func (e *Engine) DefineMacro(label, header string, src LineSource, pos Position) (string, error) {
	block, cerr := e.Capture(src, MacroFamily)

	name, params, err := e.splitHeader(label, header, pos)
	if err != nil {
		return "", err
	}
	if cerr != nil {
		if errors.Is(cerr, ErrUnterminated) {
			return "", newError(pos, name, ErrUnterminated, "%v", cerr)
		}
		return "", &Error{Pos: pos, Macro: name, Kind: ErrRead, Msg: cerr.Error(), Err: cerr}
	}

	formals, err := e.parseFormals(name, params, pos)
	if err != nil {
		return "", err
	}
	if _, err := e.Define(name, formals, block.Text, pos); err != nil {
		return "", err
	}
	return name, nil
}

// Define registers a macro built from already parsed parts, replacing any
// previous definition of the same name.
func (e *Engine) Define(name string, formals []*Formal, body string, pos Position) (*Macro, error) {
	if !validName(name) {
		return nil, newError(pos, name, ErrMalformedHeader, "invalid macro name %q", name)
	}
	m := &Macro{
		Name:  name,
		Body:  body,
		File:  pos.File,
		Line:  pos.Line,
		index: make(map[string]*Formal, len(formals)),
		fold:  e.table.fold,
	}

	var vararg *Formal
	for _, f := range formals {
		key := e.table.fold(f.Name)
		if _, dup := m.index[key]; dup {
			return nil, newError(pos, name, ErrDuplicateFormal, "a parameter named %q already exists", f.Name)
		}
		if f.Role == RolePositional {
			if vararg != nil {
				return nil, newError(pos, name, ErrVarargNotLast, "vararg parameter %q must be the last parameter", vararg.Name)
			}
			if f.Kind == KindVararg {
				vararg = f
			}
		}
		m.index[key] = f
		m.Formals = append(m.Formals, f)
	}
	if e.mri {
		for _, hidden := range []*Formal{
			{Name: narg, Role: RoleArgCount, Index: -1},
			{Name: qualifier, Role: RoleQualifier, Index: -1},
		} {
			key := e.table.fold(hidden.Name)
			if _, dup := m.index[key]; dup {
				return nil, newError(pos, name, ErrDuplicateFormal, "parameter name %q is reserved in MRI mode", hidden.Name)
			}
			m.index[key] = hidden
			m.Formals = append(m.Formals, hidden)
		}
	}
	m.checkIndex(e.table.fold)

	if old := e.table.Define(m); old != nil {
		if e.cfg.WarnRedefinition {
			e.logger.Warn("macro redefined", "name", name, "at", pos.String(), "previous", Position{File: old.File, Line: old.Line}.String())
		}
	}
	e.logger.Debug("defined macro", "name", name, "formals", m.FormalCount(), "at", pos.String())
	return m, nil
}

// splitHeader separates the macro name from the formal list.
func (e *Engine) splitHeader(label, header string, pos Position) (name, params string, err error) {
	header = strings.TrimSpace(header)
	if e.mri && label != "" {
		if !validName(label) {
			return "", "", newError(pos, label, ErrMalformedHeader, "invalid macro name %q", label)
		}
		return label, header, nil
	}
	j := scanName(header, 0)
	if j == 0 {
		if header == "" {
			return "", "", newError(pos, "", ErrMalformedHeader, "missing macro name")
		}
		return "", "", newError(pos, "", ErrMalformedHeader, "invalid macro name in %q", header)
	}
	name = header[:j]
	rest := header[j:]
	if rest != "" && !isSpace(rest[0]) && rest[0] != ',' {
		return "", "", newError(pos, "", ErrMalformedHeader, "invalid macro name in %q", header)
	}
	rest = strings.TrimLeft(rest, " \t")
	rest = strings.TrimPrefix(rest, ",")
	return name, strings.TrimSpace(rest), nil
}

// parseFormals parses "a, b=1, c:req, d:vararg". Formals are separated by
// commas and/or whitespace.
func (e *Engine) parseFormals(macro, s string, pos Position) ([]*Formal, error) {
	var formals []*Formal
	i := 0
	for {
		for i < len(s) && (isSpace(s[i]) || s[i] == ',') {
			i++
		}
		if i >= len(s) {
			return formals, nil
		}
		j := scanName(s, i)
		if j == i {
			return nil, newError(pos, macro, ErrMalformedHeader, "invalid parameter name at %q", s[i:])
		}
		f := &Formal{Name: s[i:j], Index: len(formals)}
		i = j

		if i < len(s) && s[i] == ':' {
			k := scanName(s, i+1)
			switch strings.ToLower(s[i+1 : k]) {
			case "req":
				f.Kind = KindRequired
			case "vararg":
				f.Kind = KindVararg
			default:
				return nil, newError(pos, macro, ErrMalformedHeader, "invalid qualifier %q for parameter %q", s[i+1:k], f.Name)
			}
			i = k
		}

		i = skipSpace(s, i)
		if i < len(s) && s[i] == '=' {
			i = skipSpace(s, i+1)
			var def string
			def, i = e.scanDefault(s, i)
			if f.Kind == KindRequired {
				e.logger.Warn("pointless default value for required parameter", "macro", macro, "parameter", f.Name, "at", pos.String())
			} else {
				f.Default = def
			}
		}
		formals = append(formals, f)

		if i < len(s) && !isSpace(s[i]) && s[i] != ',' {
			return nil, newError(pos, macro, ErrMalformedHeader, "unexpected %q after parameter %q", s[i:], f.Name)
		}
	}
}

// scanDefault reads one default value starting at i and returns it with the
// index just past it.
func (e *Engine) scanDefault(s string, i int) (string, int) {
	if i >= len(s) {
		return "", i
	}
	switch {
	case s[i] == '"' || s[i] == '\'':
		j := scanQuoted(s, i)
		return s[i:j], j
	case e.alternate && s[i] == '<':
		j := scanAngle(s, i)
		return strings.TrimSuffix(s[i+1:j], ">"), j
	}
	j := i
	depth := 0
	for j < len(s) {
		c := s[j]
		if depth == 0 && (c == ',' || isSpace(c)) {
			break
		}
		switch c {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '"', '\'':
			j = scanQuoted(s, j)
			continue
		}
		j++
	}
	return s[i:j], j
}

// scanAngle returns the index just past the <...> group opening at i, with
// nested brackets balanced and ! escaping the next character.
func scanAngle(s string, i int) int {
	depth := 0
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '!':
			j++
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(s)
}
