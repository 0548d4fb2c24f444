package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_AppendAndSlice(t *testing.T) {
	var b Buffer
	b.Append("hello")
	b.AppendByte(' ')
	b.Append("world")

	assert.Equal(t, "hello world", b.String())
	assert.Equal(t, 11, b.Len())
	assert.Equal(t, "world", b.Slice(6, 11))
	assert.Equal(t, "world", b.Slice(6, 100), "end is clamped")
	assert.Equal(t, "", b.Slice(8, 3))
}

func TestBuffer_Insert(t *testing.T) {
	tests := []struct {
		name string
		pos  int
		want string
	}{
		{name: "front", pos: 0, want: "XYabc"},
		{name: "middle", pos: 1, want: "aXYbc"},
		{name: "past end", pos: 10, want: "abcXY"},
		{name: "negative", pos: -2, want: "XYabc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Buffer
			b.Append("abc")
			b.Insert(tt.pos, "XY")
			assert.Equal(t, tt.want, b.String())
		})
	}
}

func TestBuffer_TruncateAndReset(t *testing.T) {
	var b Buffer
	b.Append("abcdef")
	b.Truncate(3)
	assert.Equal(t, "abc", b.String())
	b.Truncate(10)
	assert.Equal(t, "abc", b.String())

	s := b.String()
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, "abc", s, "returned text is a copy")
}
