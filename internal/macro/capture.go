package macro

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// LineSource yields source lines one at a time. ReadLine returns io.EOF once
// input is exhausted.
type LineSource interface {
	ReadLine() (string, error)
}

// LineSourceFunc adapts a function to LineSource.
type LineSourceFunc func() (string, error)

// ReadLine calls f.
func (f LineSourceFunc) ReadLine() (string, error) { return f() }

// Lines returns a LineSource over a fixed set of lines.
func Lines(lines ...string) LineSource {
	i := 0
	return LineSourceFunc(func() (string, error) {
		if i >= len(lines) {
			return "", io.EOF
		}
		i++
		return lines[i-1], nil
	})
}

// Family names the directives that open and close one kind of block.
type Family struct {
	Openers    []string
	Terminator string
}

// Block families understood by the capturer.
var (
	MacroFamily  = Family{Openers: []string{"macro"}, Terminator: "endm"}
	RepeatFamily = Family{Openers: []string{"rept", "irp", "irpc", "irep", "irepc"}, Terminator: "endr"}
)

func (f Family) opens(word string) bool {
	for _, o := range f.Openers {
		if o == word {
			return true
		}
	}
	return false
}

// Block is the raw text captured up to a matching terminator.
type Block struct {
	Text  string // body lines, each ending in "\n"; terminator excluded
	Lines int    // lines consumed, terminator included
}

// Capture reads lines from src until the terminator matching the already
// consumed opener is found. Nested openers of the same family must be closed
// before the block ends.
func (e *Engine) Capture(src LineSource, fam Family) (Block, error) {
	var (
		buf   Buffer
		depth int
		n     int
	)
	dotless := e.alternate || e.mri
	for {
		line, err := src.ReadLine()
		if errors.Is(err, io.EOF) {
			return Block{Text: buf.String(), Lines: n}, fmt.Errorf("missing .%s after %d lines: %w", fam.Terminator, n, ErrUnterminated)
		}
		if err != nil {
			return Block{}, fmt.Errorf("reading block body: %w", err)
		}
		n++
		line = strings.TrimSuffix(line, "\n")

		if d, ok := ParseDirective(line, dotless, e.mri); ok {
			switch {
			case d.Word == fam.Terminator && depth == 0:
				return Block{Text: buf.String(), Lines: n}, nil
			case d.Word == fam.Terminator:
				depth--
			case fam.opens(d.Word):
				depth++
			}
		}
		buf.Append(line)
		buf.AppendByte('\n')
	}
}
