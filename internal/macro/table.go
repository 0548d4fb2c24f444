package macro

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
)

// Macro is one named macro definition.
type Macro struct {
	Name    string
	Body    string
	File    string
	Line    int
	Formals []*Formal

	index map[string]*Formal
	fold  func(string) string
	bind  binding
}

// FormalCount returns the number of user-declared formals.
func (m *Macro) FormalCount() int {
	n := 0
	for _, f := range m.Formals {
		if f.Role == RolePositional {
			n++
		}
	}
	return n
}

// Positionals returns the user-declared formals in declaration order.
func (m *Macro) Positionals() []*Formal {
	out := make([]*Formal, 0, len(m.Formals))
	for _, f := range m.Formals {
		if f.Role == RolePositional {
			out = append(out, f)
		}
	}
	return out
}

// Nest returns how many expansions of m are currently open.
func (m *Macro) Nest() int { return m.bind.nest }

// Generated returns how many local symbols have been minted at each depth.
func (m *Macro) Generated() []int {
	return append([]int(nil), m.bind.perNest...)
}

// checkIndex panics if the lookup index and the formal list disagree.
func (m *Macro) checkIndex(fold func(string) string) {
	if len(m.index) != len(m.Formals) {
		panic(fmt.Sprintf("macro %q: formal index has %d entries for %d formals", m.Name, len(m.index), len(m.Formals)))
	}
	for _, f := range m.Formals {
		if m.index[fold(f.Name)] != f {
			panic(fmt.Sprintf("macro %q: formal %q missing from index", m.Name, f.Name))
		}
	}
}

// release drops everything the definition owns.
func (m *Macro) release() {
	m.Formals = nil
	m.index = nil
	m.Body = ""
	m.fold = nil
}

// Table is the name to definition registry of one engine.
type Table struct {
	macros  map[string]*Macro
	fold    func(string) string
	defined bool
}

// NewTable creates an empty table. With caseFold set, names are compared
// after Unicode case folding.
func NewTable(caseFold bool) *Table {
	t := &Table{macros: make(map[string]*Macro)}
	if caseFold {
		caser := cases.Fold()
		t.fold = caser.String
	} else {
		t.fold = func(s string) string { return s }
	}
	return t
}

// Define inserts m, replacing and releasing any previous definition with the
// same name. The replaced definition is returned, nil if there was none.
func (t *Table) Define(m *Macro) *Macro {
	key := t.fold(m.Name)
	old := t.macros[key]
	if old != nil {
		old.release()
	}
	t.macros[key] = m
	t.defined = true
	return old
}

// Lookup finds a macro by name.
func (t *Table) Lookup(name string) (*Macro, bool) {
	m, ok := t.macros[t.fold(name)]
	return m, ok
}

// Undefine removes a macro. Absent names are ignored.
func (t *Table) Undefine(name string) {
	key := t.fold(name)
	if m, ok := t.macros[key]; ok {
		m.release()
		delete(t.macros, key)
	}
}

// AnyDefined reports whether a definition was ever inserted.
func (t *Table) AnyDefined() bool { return t.defined }

// Len returns the number of live definitions.
func (t *Table) Len() int { return len(t.macros) }

// Names returns the live macro names, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.macros))
	for _, m := range t.macros {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// Formal finds a formal by name, hidden MRI formals included.
func (m *Macro) Formal(name string) (*Formal, bool) {
	if m.fold == nil {
		return nil, false
	}
	f, ok := m.index[m.fold(name)]
	return f, ok
}
