// Package mediagroup collects the photos of a Telegram album into one batch.
package mediagroup

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

type Item struct {
	ChatID       int64
	UserID       int64
	MessageID    int
	MediaGroupID string
	Caption      string
	FileID       string
}

// Group is a flushed album. FileIDs follow message order.
type Group struct {
	ChatID  int64
	UserID  int64
	Caption string
	FileIDs []string
}

type Options struct {
	Debounce time.Duration
	// MaxItems flushes early once an album reaches this size.
	MaxItems int
	OnFlush  func(Group)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	maxItems int
	onFlush  func(Group)
	groups   map[string]*pendingGroup
	closed   bool
}

type pendingGroup struct {
	chatID  int64
	userID  int64
	caption string
	items   []Item
	timer   *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}

	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = 10
	}

	return &Aggregator{
		debounce: debounce,
		maxItems: maxItems,
		onFlush:  opts.OnFlush,
		groups:   make(map[string]*pendingGroup),
	}
}

// Add buffers item until no new photo of its album arrives for the debounce
// window. Items without an album id are ignored.
func (a *Aggregator) Add(item Item) {
	if item.MediaGroupID == "" || item.FileID == "" {
		return
	}

	key := makeKey(item.ChatID, item.MediaGroupID)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}

	pg, ok := a.groups[key]
	if !ok {
		pg = &pendingGroup{chatID: item.ChatID, userID: item.UserID}
		a.groups[key] = pg
	}
	pg.items = append(pg.items, item)
	if item.Caption != "" {
		pg.caption = item.Caption
	}

	if pg.timer != nil {
		pg.timer.Stop()
	}
	if len(pg.items) >= a.maxItems {
		a.mu.Unlock()
		a.flush(key)
		return
	}
	pg.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
	a.mu.Unlock()
}

// Close stops pending timers and drops unflushed albums.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	for key, pg := range a.groups {
		if pg.timer != nil {
			pg.timer.Stop()
		}
		delete(a.groups, key)
	}
}

func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	pg, ok := a.groups[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.groups, key)
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(pg.group())
	}
}

func (pg *pendingGroup) group() Group {
	items := append([]Item(nil), pg.items...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].MessageID < items[j].MessageID })

	g := Group{ChatID: pg.chatID, UserID: pg.userID, Caption: pg.caption}
	for _, it := range items {
		g.FileIDs = append(g.FileIDs, it.FileID)
	}
	return g
}

func makeKey(chatID int64, mediaGroupID string) string {
	return fmt.Sprintf("%d:%s", chatID, mediaGroupID)
}
