package macro

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expandText(t *testing.T, e *Engine, name, args string) string {
	t.Helper()
	x, err := e.Expand(name, "", args, testPos)
	require.NoError(t, err)
	require.NoError(t, x.Close())
	return x.Text
}

func TestExpand_Identity(t *testing.T) {
	e := newTestEngine(t, Config{})
	mustDefine(t, e, "nop2", "\tnop", "\tnop")
	assert.Equal(t, "\tnop\n\tnop\n", expandText(t, e, "nop2", ""))
}

func TestExpand_Defaults(t *testing.T) {
	e := newTestEngine(t, Config{})
	mustDefine(t, e, "pair a=1, b=2", `.word \a, \b`)

	tests := []struct {
		args string
		want string
	}{
		{args: "", want: ".word 1, 2\n"},
		{args: "5", want: ".word 5, 2\n"},
		{args: "5, 6", want: ".word 5, 6\n"},
		{args: "b=7", want: ".word 1, 7\n"},
		{args: "b = 7, a=8", want: ".word 8, 7\n"},
		{args: ",9", want: ".word 1, 9\n"},
		{args: `"x, y"`, want: `.word "x, y", 2` + "\n"},
		{args: "(1, 2), 3", want: ".word (1, 2), 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, expandText(t, e, "pair", tt.args)); diff != "" {
				t.Errorf("expansion mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExpand_Vararg(t *testing.T) {
	e := newTestEngine(t, Config{})
	mustDefine(t, e, "bytes first, rest:vararg", `.byte \first`, `.byte \rest`)

	assert.Equal(t, ".byte 1\n.byte 2,3\n", expandText(t, e, "bytes", "1, 2, 3"))
	assert.Equal(t, ".byte 1\n.byte \n", expandText(t, e, "bytes", "1"), "no trailing actuals leaves the vararg empty")

	e = newTestEngine(t, Config{VarargSeparator: " "})
	mustDefine(t, e, "bytes first, rest:vararg", `.byte \rest`)
	assert.Equal(t, ".byte 2 3\n", expandText(t, e, "bytes", "1, 2, 3"))
}

func TestExpand_ArgCount(t *testing.T) {
	e := newTestEngine(t, Config{})
	mustDefine(t, e, "count args:vararg", `.long \#`)
	mustDefine(t, e, "one a", `.long \#`)

	assert.Equal(t, ".long 0\n", expandText(t, e, "count", ""))
	assert.Equal(t, ".long 3\n", expandText(t, e, "count", "a, b, c"))
	assert.Equal(t, ".long 1\n", expandText(t, e, "one", "x"))
	assert.Equal(t, ".long 2\n", expandText(t, e, "count", ","), "empty actuals still count")
}

func TestExpand_Markers(t *testing.T) {
	e := newTestEngine(t, Config{})
	mustDefine(t, e, "cat a", `\a\()_end`, `lbl\@:`, `\z \\ \"`)

	assert.Equal(t, "x_end\nlbl0:\n\\z \\\\ \\\"\n", expandText(t, e, "cat", "x"))
	assert.Equal(t, "y_end\nlbl1:\n\\z \\\\ \\\"\n", expandText(t, e, "cat", "y"))
	assert.Equal(t, 2, e.Sequence())
}

func TestExpand_Locals(t *testing.T) {
	e := newTestEngine(t, Config{})
	mustDefine(t, e, "loop", "LOCAL top, done", `\top: jmp \done`, `\done:`)

	first := expandText(t, e, "loop", "")
	second := expandText(t, e, "loop", "")

	assert.Equal(t, ".Lloop_1_1_0: jmp .Lloop_1_2_0\n.Lloop_1_2_0:\n", first)
	assert.Equal(t, ".Lloop_1_3_1: jmp .Lloop_1_4_1\n.Lloop_1_4_1:\n", second)
	assert.NotEqual(t, first, second)

	m, _ := e.Lookup("loop")
	assert.Equal(t, []int{4}, m.Generated())
}

func TestExpand_LocalsCustomPrefixAndBareNames(t *testing.T) {
	e := newTestEngine(t, Config{AlternateSyntax: true, LocalPrefix: "L$"})
	mustDefine(t, e, "wait", "  local again", "again: dbnz again")
	assert.Equal(t, "L$wait_1_1_0: dbnz L$wait_1_1_0\n", expandText(t, e, "wait", ""))
}

func TestExpand_LocalConflict(t *testing.T) {
	e := newTestEngine(t, Config{})
	mustDefine(t, e, "lc a", "LOCAL a", "nop")

	_, err := e.Expand("lc", "", "1", testPos)
	assert.ErrorIs(t, err, ErrLocalConflict)
	assert.Equal(t, 0, e.Nesting())
	m, _ := e.Lookup("lc")
	assert.Equal(t, 0, m.Nest())
}

func TestExpand_LocalConflictMintsNothing(t *testing.T) {
	e := newTestEngine(t, Config{})
	mustDefine(t, e, "lc a", "LOCAL ok, fine", "LOCAL a", "nop")

	_, err := e.Expand("lc", "", "1", testPos)
	require.ErrorIs(t, err, ErrLocalConflict)

	m, _ := e.Lookup("lc")
	for depth, n := range m.Generated() {
		assert.Zero(t, n, "depth %d", depth+1)
	}
}

func TestExpand_NestedDefinitionKeepsInnerLocals(t *testing.T) {
	e := newTestEngine(t, Config{})
	mustDefine(t, e, "outer", ".macro inner", "LOCAL x", ".endm")
	assert.Equal(t, ".macro inner\nLOCAL x\n.endm\n", expandText(t, e, "outer", ""))
}

func TestExpand_SelfRecursion(t *testing.T) {
	e := newTestEngine(t, Config{})
	m := mustDefine(t, e, "rec n", "LOCAL l", `\l: .word \n`)

	var open []*Expansion
	want := []string{
		".Lrec_1_1_0: .word 3\n",
		".Lrec_2_1_1: .word 2\n",
		".Lrec_3_1_2: .word 1\n",
	}
	for i, arg := range []string{"3", "2", "1"} {
		x, err := e.Expand("rec", "", arg, testPos)
		require.NoError(t, err)
		assert.Equal(t, i+1, x.Depth)
		assert.Equal(t, want[i], x.Text)
		open = append(open, x)
	}
	assert.Equal(t, 3, m.Nest())
	assert.Equal(t, 3, e.Nesting())
	assert.Equal(t, []int{1, 1, 1}, m.Generated())

	for i := len(open) - 1; i >= 0; i-- {
		require.NoError(t, open[i].Close())
	}
	require.NoError(t, open[0].Close(), "close is idempotent")
	assert.Equal(t, 0, m.Nest())
	assert.Equal(t, 0, e.Nesting())

	assert.Equal(t, ".Lrec_1_2_3: .word 0\n", expandText(t, e, "rec", "0"))
}

func TestExpand_Errors(t *testing.T) {
	e := newTestEngine(t, Config{})
	mustDefine(t, e, "req a:req, b", `\a \b`)
	mustDefine(t, e, "one a", `\a`)

	tests := []struct {
		name  string
		macro string
		args  string
		kind  error
		msg   string
	}{
		{name: "missing required", macro: "req", args: "", kind: ErrMissingArg, msg: `parameter "a"`},
		{name: "empty required", macro: "req", args: ", 2", kind: ErrMissingArg, msg: `parameter "a"`},
		{name: "too many", macro: "one", args: "1, 2", kind: ErrTooManyArgs, msg: `unexpected "2"`},
		{name: "unknown keyword", macro: "one", args: "c=1", kind: ErrUnknownParam, msg: `"c"`},
		{name: "keyword twice", macro: "one", args: "a=1, a=2", kind: ErrDuplicateArg, msg: `"a"`},
		{name: "keyword after positional", macro: "one", args: "1, a=2", kind: ErrDuplicateArg, msg: `"a"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Expand(tt.macro, "", tt.args, Position{File: "a.s", Line: 3})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Contains(t, err.Error(), `a.s:3: macro "`+tt.macro+`"`)
			assert.Equal(t, 0, e.Nesting(), "failed invocations leave no nesting open")
		})
	}
	assert.Equal(t, 0, e.Sequence())
}

func TestExpand_UndefinedDoesNotMutate(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.Expand("nope", "", "1", testPos)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndefined))
	assert.False(t, e.AnyDefined())
	assert.Equal(t, 0, e.Sequence())
	assert.Equal(t, 0, e.Nesting())
}

func TestExpand_AlternateSyntax(t *testing.T) {
	e := newTestEngine(t, Config{AlternateSyntax: true})
	mustDefine(t, e, "mv a, b", "mov a, b", `.ascii "a"`)

	tests := []struct {
		name string
		args string
		want string
	}{
		{name: "angle and bang", args: "<1, 2>, !<x", want: "mov 1, 2, <x\n.ascii \"a\"\n"},
		{name: "percent", args: "%0x10, 3", want: "mov 16, 3\n.ascii \"a\"\n"},
		{name: "bang inside angle", args: "<a!>b>, c", want: "mov a>b, c\n.ascii \"a\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandText(t, e, "mv", tt.args))
		})
	}

	_, err := e.Expand("mv", "", "%bogus", testPos)
	assert.ErrorIs(t, err, ErrEvaluate)
}

func TestExpand_Evaluator(t *testing.T) {
	e := newTestEngine(t, Config{
		AlternateSyntax: true,
		Evaluate: func(expr string) (int64, error) {
			if expr == "2*3" {
				return 6, nil
			}
			return 0, errors.New("unsupported")
		},
	})
	mustDefine(t, e, "v x", ".byte x")
	assert.Equal(t, ".byte 6\n", expandText(t, e, "v", "%2*3"))
}

func TestExpand_MRI(t *testing.T) {
	e := newTestEngine(t, Config{MRI: true})
	_, err := e.DefineMacro("mm", "a", Lines(`  move.\0 \a,\1`, "  dc.w NARG", "  endm"), testPos)
	require.NoError(t, err)

	x, ok, err := e.CheckMacro("mm.l d0", testPos)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "  move.l d0,d0\n  dc.w 1\n", x.Text)
	require.NoError(t, x.Close())

	x, ok, err = e.CheckMacro("mm d1", testPos)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "  move. d1,d1\n  dc.w 1\n", x.Text)
}

func TestCheckMacro(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, ok, err := e.CheckMacro("m 1", testPos)
	require.NoError(t, err)
	assert.False(t, ok, "nothing defined yet")

	mustDefine(t, e, "m a", `.word \a`)

	tests := []struct {
		line string
		ok   bool
		want string
	}{
		{line: "m 1", ok: true, want: ".word 1\n"},
		{line: "  m\t2", ok: true, want: ".word 2\n"},
		{line: "m", ok: true, want: ".word \n"},
		{line: "mov r0, r1", ok: false},
		{line: "m,1", ok: false},
		{line: "m.l 1", ok: false},
		{line: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			x, ok, err := e.CheckMacro(tt.line, testPos)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, x.Text)
				require.NoError(t, x.Close())
			}
		})
	}

	_, ok, err = e.CheckMacro("m 1, 2", testPos)
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrTooManyArgs)
}

func TestExpand_CaseFold(t *testing.T) {
	e := newTestEngine(t, Config{CaseFold: true})
	mustDefine(t, e, "MyMac x", `\X`)
	assert.Equal(t, "5\n", expandText(t, e, "MYMAC", "5"))

	_, ok, err := e.CheckMacro("mymac 6", testPos)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpand_PseudoOpCounter(t *testing.T) {
	calls := 41
	e := newTestEngine(t, Config{Counter: func() int { calls++; return calls }})
	mustDefine(t, e, "m")

	x, err := e.Expand("m", "", "", testPos)
	require.NoError(t, err)
	assert.Equal(t, 42, x.PseudoOps)
	assert.Equal(t, 0, x.Args)
	assert.Equal(t, 0, x.Seq)
}
