package ids

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a ULID string. IDs minted in the same millisecond still sort in
// creation order.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// WithName prefixes a fresh ULID with a slug of name, e.g. "shoe-png-01J...".
func WithName(name string) string {
	slug := Slug(name)
	if slug == "" {
		return New()
	}
	return slug + "-" + New()
}

func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := []rune(strings.TrimSuffix(b.String(), "-"))
	if len(slug) > 48 {
		slug = slug[:48]
	}
	return strings.TrimSuffix(string(slug), "-")
}
