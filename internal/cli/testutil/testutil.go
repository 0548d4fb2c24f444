// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/asmacro/internal/cli/output"
)

// MacrosInc is the macro library written by SetupTestProject.
const MacrosInc = `.macro push reg:req
	str \reg, [sp, #-4]!
.endm
.macro pop reg:req
	ldr \reg, [sp], #4
.endm
`

// MainS is the source written by SetupTestProject.
const MainS = `.include "macros.inc"
start:
	push r4
	pop r4
`

// MainExpanded is MainS after expansion.
const MainExpanded = `start:
	str r4, [sp, #-4]!
	ldr r4, [sp], #4
`

// WaitS uses alternate syntax and lives in a directory whose own config
// enables it.
const WaitS = `.macro wait n
	dbnz n
.endm
	wait 5
`

// SetupTestProject creates a temporary project:
//
//	asmacro.yaml        include_dirs: [lib]
//	lib/macros.inc      push and pop
//	src/main.s          uses push and pop
//	src/alt/asmacro.yaml alternate: true
//	src/alt/wait.s      alternate-syntax macro
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	files := map[string]string{
		"asmacro.yaml":         "include_dirs:\n  - lib\n",
		"lib/macros.inc":       MacrosInc,
		"src/main.s":           MainS,
		"src/alt/asmacro.yaml": "alternate: true\n",
		"src/alt/wait.s":       WaitS,
	}
	for name, content := range files {
		path := filepath.Join(tmpDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
