package macro

import (
	"strconv"
	"strings"
)

// Expansion is the text produced by one macro invocation. It keeps the
// invocation's nesting level open until Close is called, which hosts do once
// the text has been consumed, so invocations found inside Text nest deeper.
type Expansion struct {
	Macro     *Macro
	Text      string
	Seq       int // value of \@ for this invocation
	Depth     int // nesting depth of this invocation of Macro, 1 for outermost
	Args      int // number of actuals supplied
	PseudoOps int // host counter snapshot taken at expansion time

	eng    *Engine
	closed bool
}

// Close ends the invocation's nesting. Calling it more than once is a no-op.
func (x *Expansion) Close() error {
	if x.closed {
		return nil
	}
	x.closed = true
	x.Macro.bind.leave()
	x.eng.nesting--
	return nil
}

// CheckMacro reports whether line invokes a defined macro and, if so, expands
// it. line starts at the opcode field. Lines that are not invocations yield
// (nil, false, nil).
func (e *Engine) CheckMacro(line string, pos Position) (*Expansion, bool, error) {
	if !e.table.AnyDefined() {
		return nil, false, nil
	}
	s := strings.TrimLeft(line, " \t")
	j := scanName(s, 0)
	if j == 0 {
		return nil, false, nil
	}
	rest := s[j:]
	if rest != "" && !isSpace(rest[0]) {
		return nil, false, nil
	}

	name, qual := s[:j], ""
	if _, ok := e.table.Lookup(name); !ok {
		if !e.mri {
			return nil, false, nil
		}
		k := strings.IndexByte(name, '.')
		if k <= 0 {
			return nil, false, nil
		}
		if _, ok := e.table.Lookup(name[:k]); !ok {
			return nil, false, nil
		}
		name, qual = name[:k], name[k+1:]
	}

	x, err := e.Expand(name, qual, strings.TrimSpace(rest), pos)
	if err != nil {
		return nil, true, err
	}
	return x, true, nil
}

// Expand invokes the named macro with the given argument text. qualifier is
// the MRI size suffix and is ignored otherwise.
func (e *Engine) Expand(name, qualifier, args string, pos Position) (*Expansion, error) {
	m, ok := e.table.Lookup(name)
	if !ok {
		return nil, newError(pos, name, ErrUndefined, "undefined macro %q", name)
	}

	actuals, err := e.parseActuals(m.Name, args, pos)
	if err != nil {
		return nil, err
	}
	fr, err := e.bindActuals(m, actuals, pos)
	if err != nil {
		return nil, err
	}
	fr.qual = qualifier

	depth := m.bind.enter()
	e.nesting++
	seq := e.seq

	text, err := e.substitute(m, fr, depth, seq, pos)
	if err != nil {
		m.bind.leave()
		e.nesting--
		return nil, err
	}
	e.seq++

	e.logger.Debug("expanded macro", "name", m.Name, "depth", depth, "seq", seq, "args", fr.count)
	return &Expansion{
		Macro:     m,
		Text:      text,
		Seq:       seq,
		Depth:     depth,
		Args:      fr.count,
		PseudoOps: e.pseudoOps(),
		eng:       e,
	}, nil
}

// substitute produces the body of m with every reference replaced.
func (e *Engine) substitute(m *Macro, fr *frame, depth, seq int, pos Position) (string, error) {
	lines := strings.SplitAfter(m.Body, "\n")
	skip, err := e.declareLocals(m, fr, lines, depth, seq, pos)
	if err != nil {
		return "", err
	}

	sub := substitution{eng: e, m: m, fr: fr, seq: seq}
	var out Buffer
	for i, line := range lines {
		if skip[i] || line == "" {
			continue
		}
		sub.line(&out, line)
	}
	return out.String(), nil
}

// declareLocals mints a symbol for every name on the body's LOCAL lines and
// reports which lines to drop. Lines inside nested macro definitions belong to
// the inner macro and are left alone.
func (e *Engine) declareLocals(m *Macro, fr *frame, lines []string, depth, seq int, pos Position) (map[int]bool, error) {
	var (
		skip     map[int]bool
		nested   int
		declared []string
	)
	dotless := e.alternate || e.mri
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\n")
		if d, ok := ParseDirective(line, dotless, false); ok {
			switch d.Word {
			case "macro":
				nested++
			case "endm":
				if nested > 0 {
					nested--
				}
			}
		}
		if nested > 0 {
			continue
		}
		names, ok := localLine(line)
		if !ok {
			continue
		}
		if skip == nil {
			skip = make(map[int]bool)
		}
		skip[i] = true
		for _, name := range names {
			if !validName(name) {
				return nil, newError(pos, m.Name, ErrMalformedHeader, "invalid local symbol name %q", name)
			}
			if _, clash := m.Formal(name); clash {
				return nil, newError(pos, m.Name, ErrLocalConflict, "local %q has the same name as a parameter", name)
			}
			declared = append(declared, name)
		}
	}
	// Nothing is minted until every declaration is known to be valid.
	for _, name := range declared {
		ordinal := m.bind.mint(depth)
		fr.locals[m.fold(name)] = localSymbol(e.cfg.LocalPrefix, m.Name, depth, ordinal, seq)
	}
	return skip, nil
}

// localLine recognizes "LOCAL a, b" and returns the declared names.
func localLine(line string) ([]string, bool) {
	i := skipSpace(line, 0)
	j := scanName(line, i)
	if !strings.EqualFold(line[i:j], "local") {
		return nil, false
	}
	if j < len(line) && !isSpace(line[j]) {
		return nil, false
	}
	fields := strings.FieldsFunc(line[j:], func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\r'
	})
	return fields, true
}

// substitution carries the per-invocation state used while rewriting lines.
type substitution struct {
	eng *Engine
	m   *Macro
	fr  *frame
	seq int
}

func (s *substitution) line(out *Buffer, line string) {
	bare := s.eng.substitutesBare()
	var quote byte
	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line):
			i = s.escape(out, line, i)
			continue
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			if bare {
				quote = c
			}
		case bare && isNameStart(c) && (i == 0 || !isNamePart(line[i-1])):
			j := scanName(line, i)
			if v, ok := s.lookup(line[i:j]); ok {
				out.Append(v)
			} else {
				out.Append(line[i:j])
			}
			i = j
			continue
		}
		out.AppendByte(c)
		i++
	}
}

// escape handles the backslash sequence at line[i] and returns the index of
// the first byte after it.
func (s *substitution) escape(out *Buffer, line string, i int) int {
	n := line[i+1]
	switch {
	case n == '(' && i+2 < len(line) && line[i+2] == ')':
		return i + 3
	case n == '@':
		out.Append(strconv.Itoa(s.seq))
		return i + 2
	case n == '#':
		out.Append(strconv.Itoa(s.fr.count))
		return i + 2
	case s.eng.mri && n == '0':
		out.Append(s.fr.qual)
		return i + 2
	case s.eng.mri && n >= '1' && n <= '9':
		if k := int(n - '1'); k < len(s.fr.positional) {
			out.Append(s.fr.positional[k])
		}
		return i + 2
	case isNameStart(n):
		j := scanName(line, i+1)
		if v, ok := s.lookup(line[i+1 : j]); ok {
			out.Append(v)
		} else {
			out.Append(line[i:j])
		}
		return j
	}
	out.Append(line[i : i+2])
	return i + 2
}

// lookup resolves a name to a local symbol or a bound formal.
func (s *substitution) lookup(name string) (string, bool) {
	if v, ok := s.fr.locals[s.m.fold(name)]; ok {
		return v, true
	}
	f, ok := s.m.Formal(name)
	if !ok {
		return "", false
	}
	switch f.Role {
	case RoleArgCount:
		return strconv.Itoa(s.fr.count), true
	case RoleQualifier:
		return s.fr.qual, true
	}
	return s.fr.values[f], true
}
