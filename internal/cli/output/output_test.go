package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTest(mode OutputMode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestMode(t *testing.T) {
	tests := map[string]OutputMode{
		"":         ModeAuto,
		"auto":     ModeAuto,
		"TEXT":     ModeText,
		"md":       ModeMarkdown,
		"markdown": ModeMarkdown,
		"json":     ModeJSON,
		"yml":      ModeYAML,
		"bogus":    ModeAuto,
	}
	for in, want := range tests {
		assert.Equal(t, want, Mode(in), "Mode(%q)", in)
	}
}

func TestEffectiveMode(t *testing.T) {
	r, _, _ := newTest(ModeAuto, true)
	assert.Equal(t, ModeText, r.EffectiveMode())

	r, _, _ = newTest(ModeAuto, false)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())

	r, _, _ = newTest(ModeJSON, true)
	assert.Equal(t, ModeJSON, r.EffectiveMode())

	r, _, _ = newTest("", false)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestNewRenderer_BufferIsNotTTY(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
}

func TestHeader(t *testing.T) {
	r, out, _ := newTest(ModeMarkdown, false)
	r.Header(2, "Macros")
	assert.Equal(t, "## Macros\n", out.String())

	r, out, _ = newTest(ModeText, false)
	r.Header(1, "Macros")
	assert.Equal(t, "Macros\n", out.String())
}

func TestMessages(t *testing.T) {
	r, out, errOut := newTest(ModeText, false)
	r.Success("done")
	r.Muted("quiet")
	r.Warning("careful")
	r.Error("broken")

	assert.Equal(t, "✓ done\nquiet\n", out.String())
	assert.Equal(t, "warning: careful\nerror: broken\n", errOut.String())
}

func TestStructured(t *testing.T) {
	v := ListOutput{Macros: []MacroInfo{{Name: "push", File: "a.s", Line: 3, Formals: []string{"reg"}}}, Total: 1}

	r, out, _ := newTest(ModeJSON, false)
	ok, err := r.Structured(v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), `"name": "push"`)

	r, out, _ = newTest(ModeYAML, false)
	ok, err = r.Structured(v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "- name: push")
	assert.Contains(t, out.String(), "total: 1")

	r, out, _ = newTest(ModeText, false)
	ok, err = r.Structured(v)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, out.String())
}

func TestTable(t *testing.T) {
	rows := [][]string{{"push", "a.s:3"}, {"pop", "a.s:7"}}

	r, out, _ := newTest(ModeMarkdown, false)
	r.Table([]string{"name", "defined_at"}, rows)
	md := out.String()
	assert.Contains(t, strings.ToLower(md), "| name | defined at |")
	assert.Contains(t, md, "| push | a.s:3 |")

	r, out, _ = newTest(ModeText, false)
	r.Table([]string{"name", "defined_at"}, rows)
	text := out.String()
	assert.Contains(t, strings.ToUpper(text), "DEFINED AT")
	assert.Contains(t, text, "push")
	assert.True(t, strings.Contains(text, "┌"), "text tables are boxed")
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Deep", FormatHeader(3, "Deep"))
	assert.Equal(t, "- **Files:** 3", FormatKeyValue("Files", "3"))
	assert.Equal(t, "```asm\nnop\n```", FormatCodeBlock("asm", "nop"))
	assert.Equal(t, "Max Nesting", Title("max_nesting"))
}
