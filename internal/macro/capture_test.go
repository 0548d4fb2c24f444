package macro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/asmacro/internal/testutil"
)

func TestCapture_StopsAtMatchingTerminator(t *testing.T) {
	e := New(Config{Logger: testutil.NewTestLogger(t)})
	src := Lines("  nop", ".macro inner", "  ret", ".endm", "done:", ".endm", "after")

	block, err := e.Capture(src, MacroFamily)
	require.NoError(t, err)

	assert.Equal(t, "  nop\n.macro inner\n  ret\n.endm\ndone:\n", block.Text)
	assert.Equal(t, 6, block.Lines)

	next, err := src.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "after", next, "capture must not read past the terminator")
}

func TestCapture_RepeatFamilyNests(t *testing.T) {
	e := New(Config{})
	src := Lines(".rept 2", "x", ".endr", ".irpc c,ab", "\\c", ".endr", "y", ".endr")

	block, err := e.Capture(src, RepeatFamily)
	require.NoError(t, err)
	assert.Equal(t, ".rept 2\nx\n.endr\n.irpc c,ab\n\\c\n.endr\ny\n", block.Text)
	assert.Equal(t, 8, block.Lines)
}

func TestCapture_LabelledTerminator(t *testing.T) {
	e := New(Config{})
	block, err := e.Capture(Lines("a", "end: .endm"), MacroFamily)
	require.NoError(t, err)
	assert.Equal(t, "a\n", block.Text)
}

func TestCapture_DotlessInAlternateMode(t *testing.T) {
	e := New(Config{AlternateSyntax: true})
	block, err := e.Capture(Lines("nop", "ENDM"), MacroFamily)
	require.NoError(t, err)
	assert.Equal(t, "nop\n", block.Text)

	e = New(Config{})
	_, err = e.Capture(Lines("nop", "ENDM"), MacroFamily)
	assert.ErrorIs(t, err, ErrUnterminated, "default mode needs the dot")
}

func TestCapture_Unterminated(t *testing.T) {
	e := New(Config{})
	_, err := e.Capture(Lines("nop", ".macro inner", ".endm"), MacroFamily)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnterminated)
	assert.Contains(t, err.Error(), "missing .endm after 3 lines")
}

func TestCapture_ReadError(t *testing.T) {
	e := New(Config{})
	boom := errors.New("disk on fire")
	_, err := e.Capture(LineSourceFunc(func() (string, error) { return "", boom }), MacroFamily)
	assert.ErrorIs(t, err, boom)
}
