package macro

// Buffer is a growable text buffer. Methods returning text return copies.
type Buffer struct {
	b []byte
}

// Append adds s to the end of the buffer.
func (b *Buffer) Append(s string) {
	b.b = append(b.b, s...)
}

// AppendByte adds a single byte to the end of the buffer.
func (b *Buffer) AppendByte(c byte) {
	b.b = append(b.b, c)
}

// Insert places s before byte offset pos. Offsets past the end append.
func (b *Buffer) Insert(pos int, s string) {
	if pos < 0 {
		pos = 0
	}
	if pos >= len(b.b) {
		b.Append(s)
		return
	}
	b.b = append(b.b[:pos], append([]byte(s), b.b[pos:]...)...)
}

// Slice returns a copy of bytes [i, j), clamped to the buffer.
func (b *Buffer) Slice(i, j int) string {
	if i < 0 {
		i = 0
	}
	if j > len(b.b) {
		j = len(b.b)
	}
	if i >= j {
		return ""
	}
	return string(b.b[i:j])
}

// Len returns the number of bytes held.
func (b *Buffer) Len() int { return len(b.b) }

// Truncate keeps the first n bytes.
func (b *Buffer) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(b.b) {
		b.b = b.b[:n]
	}
}

// Reset empties the buffer, keeping its storage.
func (b *Buffer) Reset() { b.b = b.b[:0] }

func (b *Buffer) String() string { return string(b.b) }
