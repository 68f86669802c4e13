package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitByBytes(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitByBytes("short", 10))

	text := strings.Repeat("ab", 5) + "ü"
	parts := splitByBytes(text, 4)
	require.Greater(t, len(parts), 1)
	assert.Equal(t, text, strings.Join(parts, ""))
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 4)
		assert.True(t, utf8.ValidString(p))
	}
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "hello", truncateByBytes("hello", 10))
	assert.Equal(t, "he", truncateByBytes("hello", 2))
	assert.Equal(t, "a", truncateByBytes("aü", 2))
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
