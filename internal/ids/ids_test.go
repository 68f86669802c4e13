package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithNameUniqueForRapidUploads(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := WithName("shoe.png")
		require.True(t, strings.HasPrefix(id, "shoe-png-"), id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewIsMonotonic(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "my-product-photo-jpg", Slug("  My Product  Photo!.JPG "))
	assert.Equal(t, "", Slug("***"))
	assert.Len(t, Slug(strings.Repeat("a", 100)), 48)
}
