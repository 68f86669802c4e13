package mediagroup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlbumFlushesInMessageOrder(t *testing.T) {
	flushed := make(chan Group, 1)
	a := New(Options{Debounce: 20 * time.Millisecond, OnFlush: func(g Group) { flushed <- g }})

	a.Add(Item{ChatID: 1, UserID: 7, MessageID: 12, MediaGroupID: "g", FileID: "b"})
	a.Add(Item{ChatID: 1, UserID: 7, MessageID: 11, MediaGroupID: "g", FileID: "a", Caption: "shoes"})
	a.Add(Item{ChatID: 1, UserID: 7, MessageID: 13, MediaGroupID: "g", FileID: "c"})

	select {
	case g := <-flushed:
		assert.Equal(t, []string{"a", "b", "c"}, g.FileIDs)
		assert.Equal(t, "shoes", g.Caption)
		assert.EqualValues(t, 7, g.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("album was not flushed")
	}
	assert.Zero(t, a.Pending())
}

func TestMaxItemsFlushesEarly(t *testing.T) {
	flushed := make(chan Group, 1)
	a := New(Options{Debounce: time.Hour, MaxItems: 2, OnFlush: func(g Group) { flushed <- g }})

	a.Add(Item{ChatID: 1, MessageID: 1, MediaGroupID: "g", FileID: "a"})
	a.Add(Item{ChatID: 1, MessageID: 2, MediaGroupID: "g", FileID: "b"})

	select {
	case g := <-flushed:
		require.Len(t, g.FileIDs, 2)
	default:
		t.Fatal("expected synchronous flush at max items")
	}
}

func TestIgnoresLooseItemsAndClose(t *testing.T) {
	a := New(Options{Debounce: time.Hour, OnFlush: func(Group) { t.Error("unexpected flush") }})

	a.Add(Item{ChatID: 1, FileID: "a"})
	assert.Zero(t, a.Pending())

	a.Add(Item{ChatID: 1, MediaGroupID: "g", FileID: "a"})
	assert.Equal(t, 1, a.Pending())

	a.Close()
	assert.Zero(t, a.Pending())

	a.Add(Item{ChatID: 1, MediaGroupID: "h", FileID: "a"})
	assert.Zero(t, a.Pending())
}
