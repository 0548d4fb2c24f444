package macro

import "strings"

func isNameStart(c byte) bool {
	return c == '_' || c == '.' || c == '$' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isNamePart(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

// scanName returns the end of the name starting at i, or i if there is none.
func scanName(s string, i int) int {
	if i >= len(s) || !isNameStart(s[i]) {
		return i
	}
	j := i + 1
	for j < len(s) && isNamePart(s[j]) {
		j++
	}
	return j
}

// validName reports whether s is a complete identifier.
func validName(s string) bool {
	return s != "" && scanName(s, 0) == len(s)
}

// scanQuoted returns the index just past the string literal opening at i.
// Backslash escapes are honoured inside double quotes. An unterminated literal
// runs to the end of s.
func scanQuoted(s string, i int) int {
	q := s[i]
	j := i + 1
	for j < len(s) {
		switch {
		case s[j] == '\\' && q == '"' && j+1 < len(s):
			j += 2
			continue
		case s[j] == q:
			return j + 1
		}
		j++
	}
	return j
}

// Directive describes the directive word found on a line.
type Directive struct {
	Label string
	Word  string // lower-cased, without the leading dot
	Rest  string // text after the directive word, trimmed
}

// ParseDirective recognizes "[label:] [.]word rest". In default mode the dot is
// mandatory; dotless is true for alternate and MRI modes. In MRI mode a word
// starting in column 0 is a label even without a colon.
func ParseDirective(line string, dotless, mri bool) (Directive, bool) {
	var d Directive
	i := 0
	if mri && line != "" && !isSpace(line[0]) && line[0] != '.' {
		if j := scanName(line, 0); j > 0 {
			d.Label = line[:j]
			i = j
			if i < len(line) && line[i] == ':' {
				i++
			}
		}
	} else {
		i = skipSpace(line, 0)
		if j := scanName(line, i); j > i && j < len(line) && line[j] == ':' {
			d.Label = line[i:j]
			i = j + 1
		}
	}
	i = skipSpace(line, i)
	if i >= len(line) {
		return d, false
	}
	dot := line[i] == '.'
	if dot {
		i++
	} else if !dotless {
		return d, false
	}
	j := i
	for j < len(line) && isNamePart(line[j]) && line[j] != '.' {
		j++
	}
	if j == i {
		return d, false
	}
	d.Word = strings.ToLower(line[i:j])
	d.Rest = strings.TrimSpace(line[j:])
	return d, true
}
