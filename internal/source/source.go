// Package source provides line input for the preprocessor: readers over files
// and a stack of input frames that included files and macro expansions are
// pushed onto.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Position identifies a line within a named input.
type Position struct {
	File string
	Line int
}

func (p Position) String() string {
	if p.Line == 0 {
		return p.File
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Reader yields the lines of an io.Reader with their line numbers.
type Reader struct {
	name string
	br   *bufio.Reader
	line int
}

// NewReader wraps r. name is used in positions.
func NewReader(name string, r io.Reader) *Reader {
	return &Reader{name: name, br: bufio.NewReader(r)}
}

// ReadLine returns the next line without its line terminator, or io.EOF.
func (r *Reader) ReadLine() (string, error) {
	s, err := r.br.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || s == "") {
		return "", err
	}
	r.line++
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, nil
}

// Position returns the position of the last line read.
func (r *Reader) Position() Position {
	return Position{File: r.name, Line: r.line}
}

type frameKind int

const (
	frameFile frameKind = iota
	frameMacro
	frameRepeat
)

// LineReader is anything that yields lines until io.EOF.
type LineReader interface {
	ReadLine() (string, error)
}

type frame struct {
	kind   frameKind
	name   string
	src    LineReader
	line   int
	closer io.Closer
}

// Stack is a last-in first-out stack of input frames. ReadLine always reads
// from the top frame and pops frames as they are exhausted.
type Stack struct {
	frames []*frame
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// PushFile opens path and pushes it as a new file frame.
func (s *Stack) PushFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	s.PushReader(path, f, f)
	return nil
}

// PushReader pushes a file frame reading from r. closer, if not nil, is
// closed when the frame is popped.
func (s *Stack) PushReader(name string, r io.Reader, closer io.Closer) {
	s.PushLines(name, NewReader(name, r), closer)
}

// PushLines pushes a file frame over an arbitrary line source, such as an
// interactive prompt.
func (s *Stack) PushLines(name string, src LineReader, closer io.Closer) {
	s.frames = append(s.frames, &frame{kind: frameFile, name: name, src: src, closer: closer})
}

// PushText pushes macro expansion text. closer is closed once the text has
// been read completely or the frame is discarded.
func (s *Stack) PushText(name, text string, closer io.Closer) {
	s.pushText(frameMacro, name, text, closer)
}

// PushRepeat pushes the output of a repeat block. Unlike macro text it is
// transparent to ExitMacro.
func (s *Stack) PushRepeat(name, text string) {
	s.pushText(frameRepeat, name, text, nil)
}

func (s *Stack) pushText(kind frameKind, name, text string, closer io.Closer) {
	s.frames = append(s.frames, &frame{kind: kind, name: name, src: NewReader(name, strings.NewReader(text)), closer: closer})
}

// ReadLine returns the next line from the innermost frame that still has
// input. It returns io.EOF once every frame is exhausted.
func (s *Stack) ReadLine() (string, error) {
	for len(s.frames) > 0 {
		top := s.frames[len(s.frames)-1]
		line, err := top.src.ReadLine()
		if err == nil {
			top.line++
			return line, nil
		}
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading %s: %w", top.name, err)
		}
		if err := s.pop(); err != nil {
			return "", err
		}
	}
	return "", io.EOF
}

func (s *Stack) pop() error {
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	if top.closer != nil {
		if err := top.closer.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", top.name, err)
		}
	}
	return nil
}

// ExitMacro discards the rest of the innermost macro expansion, along with
// any repeat output pushed above it. It reports false when no macro
// expansion is active.
func (s *Stack) ExitMacro() (bool, error) {
	idx := s.innermostMacro()
	if idx < 0 {
		return false, nil
	}
	for len(s.frames) > idx {
		if err := s.pop(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// InnermostMacro returns the closer passed with the macro expansion that
// ExitMacro would leave, or nil when there is none.
func (s *Stack) InnermostMacro() io.Closer {
	idx := s.innermostMacro()
	if idx < 0 {
		return nil
	}
	return s.frames[idx].closer
}

// innermostMacro returns the index of the topmost macro frame not hidden by
// an included file, or -1.
func (s *Stack) innermostMacro() int {
	for i := len(s.frames) - 1; i >= 0; i-- {
		switch s.frames[i].kind {
		case frameMacro:
			return i
		case frameFile:
			return -1
		}
	}
	return -1
}

// MacroDepth returns the number of macro expansions on the stack.
func (s *Stack) MacroDepth() int {
	n := 0
	for _, f := range s.frames {
		if f.kind == frameMacro {
			n++
		}
	}
	return n
}

// Depth returns the number of frames on the stack.
func (s *Stack) Depth() int { return len(s.frames) }

// Includes reports whether a file frame for name is on the stack.
func (s *Stack) Includes(name string) bool {
	for _, f := range s.frames {
		if f.kind == frameFile && f.name == name {
			return true
		}
	}
	return false
}

// Position returns the position of the current line in the innermost file.
// Lines read from expansions report the line that invoked them.
func (s *Stack) Position() Position {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].kind == frameFile {
			return Position{File: s.frames[i].name, Line: s.frames[i].line}
		}
	}
	return Position{}
}

// Where describes the current line including the chain of expansions it
// came from, e.g. "a.s:12: in macro push, line 2".
func (s *Stack) Where() string {
	pos := s.Position()
	var b strings.Builder
	b.WriteString(pos.String())
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if f.kind == frameFile {
			break
		}
		kind := "macro"
		if f.kind == frameRepeat {
			kind = "repeat"
		}
		fmt.Fprintf(&b, ": in %s %s, line %d", kind, f.name, f.line)
	}
	return b.String()
}

// Close pops every frame, closing each. The first error is returned.
func (s *Stack) Close() error {
	var first error
	for len(s.frames) > 0 {
		if err := s.pop(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
