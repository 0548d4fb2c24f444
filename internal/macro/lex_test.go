package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDirective(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		dotless bool
		mri     bool
		want    Directive
		ok      bool
	}{
		{name: "plain", line: ".macro foo a", want: Directive{Word: "macro", Rest: "foo a"}, ok: true},
		{name: "indented", line: "\t.ENDM", want: Directive{Word: "endm"}, ok: true},
		{name: "label", line: "lbl: .endm", want: Directive{Label: "lbl", Word: "endm"}, ok: true},
		{name: "dot required", line: "macro foo", ok: false},
		{name: "dotless", line: "macro foo", dotless: true, want: Directive{Word: "macro", Rest: "foo"}, ok: true},
		{name: "word ends at punctuation", line: ".irp\tr,1", want: Directive{Word: "irp", Rest: "r,1"}, ok: true},
		{name: "mri column zero label", line: "mm MACRO a", dotless: true, mri: true, want: Directive{Label: "mm", Word: "macro", Rest: "a"}, ok: true},
		{name: "mri indented", line: "  endm", dotless: true, mri: true, want: Directive{Word: "endm"}, ok: true},
		{name: "mri dotted column zero", line: ".endm", dotless: true, mri: true, want: Directive{Word: "endm"}, ok: true},
		{name: "empty", line: "", ok: false},
		{name: "label only", line: "done:", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDirective(tt.line, tt.dotless, tt.mri)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestScanQuoted(t *testing.T) {
	assert.Equal(t, 5, scanQuoted(`"a,b" x`, 0))
	assert.Equal(t, 6, scanQuoted(`"a\"b"`, 0))
	assert.Equal(t, 3, scanQuoted(`'a'`, 0))
	assert.Equal(t, 4, scanQuoted(`"abc`, 0), "unterminated runs to end")
}

func TestValidName(t *testing.T) {
	assert.True(t, validName("foo"))
	assert.True(t, validName(".L_x$1"))
	assert.False(t, validName("1abc"))
	assert.False(t, validName("a-b"))
	assert.False(t, validName(""))
}
