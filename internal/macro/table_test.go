package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_DefineReplacesAndReleases(t *testing.T) {
	tbl := NewTable(false)
	assert.False(t, tbl.AnyDefined())

	first := &Macro{Name: "m", Body: "one\n", Formals: []*Formal{{Name: "a"}}}
	assert.Nil(t, tbl.Define(first))

	second := &Macro{Name: "m", Body: "two\n"}
	old := tbl.Define(second)
	require.Same(t, first, old)
	assert.Empty(t, old.Body)
	assert.Nil(t, old.Formals)

	got, ok := tbl.Lookup("m")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_Undefine(t *testing.T) {
	tbl := NewTable(false)
	m := &Macro{Name: "gone", Body: "x\n"}
	tbl.Define(m)

	tbl.Undefine("gone")
	tbl.Undefine("never-defined")

	_, ok := tbl.Lookup("gone")
	assert.False(t, ok)
	assert.Empty(t, m.Body)
	assert.Zero(t, tbl.Len())
	assert.True(t, tbl.AnyDefined())
}

func TestTable_CaseFolding(t *testing.T) {
	tests := []struct {
		name     string
		caseFold bool
		lookup   string
		want     bool
	}{
		{"exact", false, "Push", true},
		{"different case", false, "PUSH", false},
		{"folded", true, "PUSH", true},
		{"folded lower", true, "push", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := NewTable(tt.caseFold)
			tbl.Define(&Macro{Name: "Push"})
			m, ok := tbl.Lookup(tt.lookup)
			assert.Equal(t, tt.want, ok)
			if ok {
				assert.Equal(t, "Push", m.Name)
			}
		})
	}
}

func TestTable_NamesSorted(t *testing.T) {
	tbl := NewTable(false)
	for _, n := range []string{"zeta", "alpha", "mid"} {
		tbl.Define(&Macro{Name: n})
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, tbl.Names())
}

func TestMacro_CheckIndexPanicsOnMismatch(t *testing.T) {
	identity := func(s string) string { return s }
	f := &Formal{Name: "a"}
	m := &Macro{Name: "m", Formals: []*Formal{f}, index: map[string]*Formal{"a": f}}
	assert.NotPanics(t, func() { m.checkIndex(identity) })

	m.index = map[string]*Formal{}
	assert.Panics(t, func() { m.checkIndex(identity) })

	m.index = map[string]*Formal{"b": f}
	assert.Panics(t, func() { m.checkIndex(identity) })
}

func TestMacro_FormalCountSkipsHidden(t *testing.T) {
	e := newTestEngine(t, Config{MRI: true})
	m, err := e.Define("q", []*Formal{{Name: "a"}, {Name: "b", Index: 1}}, "", testPos)
	require.NoError(t, err)

	assert.Equal(t, 2, m.FormalCount())
	assert.Len(t, m.Formals, 4)
	f, ok := m.Formal("NARG")
	require.True(t, ok)
	assert.Equal(t, RoleArgCount, f.Role)
	f, ok = m.Formal("0")
	require.True(t, ok)
	assert.Equal(t, RoleQualifier, f.Role)

	_, err = e.Define("r", []*Formal{{Name: "NARG"}}, "", testPos)
	assert.ErrorIs(t, err, ErrDuplicateFormal)
}

func TestBinding(t *testing.T) {
	var b binding
	b.leave()
	assert.Zero(t, b.nest, "leave never goes below zero")

	assert.Equal(t, 1, b.enter())
	assert.Equal(t, 1, b.mint(1))
	assert.Equal(t, 2, b.mint(1))

	assert.Equal(t, 2, b.enter())
	assert.Equal(t, 1, b.mint(2))
	b.leave()
	b.leave()
	assert.Zero(t, b.nest)

	// counts per depth survive after the expansions close
	assert.Equal(t, []int{2, 1}, b.perNest)
	assert.Equal(t, 1, b.enter())
	assert.Equal(t, 3, b.mint(1))
}

func TestLocalSymbol(t *testing.T) {
	assert.Equal(t, ".Lloop_1_2_7", localSymbol(".L", "loop", 1, 2, 7))
	assert.Equal(t, "L$wait_3_1_0", localSymbol("L$", "wait", 3, 1, 0))
}

func TestFormal_Strings(t *testing.T) {
	tests := []struct {
		formal Formal
		sig    string
		kind   string
	}{
		{Formal{Name: "a"}, "a", "optional"},
		{Formal{Name: "a", Default: "1"}, "a=1", "optional"},
		{Formal{Name: "r", Kind: KindRequired}, "r:req", "required"},
		{Formal{Name: "rest", Kind: KindVararg}, "rest:vararg", "vararg"},
	}
	for _, tt := range tests {
		t.Run(tt.sig, func(t *testing.T) {
			assert.Equal(t, tt.sig, tt.formal.Signature())
			assert.Equal(t, tt.kind, tt.formal.Kind.String())
		})
	}
	assert.Equal(t, "unknown", Kind(9).String())
	assert.Equal(t, "argcount", RoleArgCount.String())
	assert.Equal(t, "unknown", Role(9).String())
}
