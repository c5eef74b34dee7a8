package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short string untouched", in: "hello", max: 10, want: "hello"},
		{name: "exact length untouched", in: "hello", max: 5, want: "hello"},
		{name: "long string gets ellipsis", in: "hello world", max: 5, want: "hello..."},
		{name: "multibyte counted by runes", in: strings.Repeat("问", 10), max: 3, want: "问问问..."},
		{name: "empty string", in: "", max: 5, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.max))
		})
	}
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("image/png"))
	assert.True(t, IsImage("image/webp"))
	assert.False(t, IsImage("video/mp4"))
	assert.False(t, IsImage("application/octet-stream"))
}

func TestValidateMimeType(t *testing.T) {
	// PNG 魔数
	png := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 32)...)
	mime, err := ValidateMimeType(strings.NewReader(string(png)), []string{"image/"})
	assert.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = ValidateMimeType(strings.NewReader("just some text"), []string{"image/"})
	assert.Error(t, err)
}
