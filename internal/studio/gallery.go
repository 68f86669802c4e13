package studio

const DefaultGalleryLimit = 16

// Gallery keeps the most recent successful outputs, newest first.
type Gallery struct {
	limit int
	items []Content
}

func NewGallery(limit int) *Gallery {
	if limit <= 0 {
		limit = DefaultGalleryLimit
	}
	return &Gallery{limit: limit}
}

func (g *Gallery) Add(c Content) {
	items := make([]Content, 0, min(len(g.items)+1, g.limit))
	items = append(items, c)
	for _, item := range g.items {
		if len(items) == g.limit {
			break
		}
		items = append(items, item)
	}
	g.items = items
}

func (g *Gallery) At(i int) (Content, bool) {
	if i < 0 || i >= len(g.items) {
		return Content{}, false
	}
	return g.items[i], true
}

func (g *Gallery) Len() int   { return len(g.items) }
func (g *Gallery) Limit() int { return g.limit }

func (g *Gallery) Items() []Content {
	return append([]Content(nil), g.items...)
}

func (g *Gallery) Clear() {
	g.items = nil
}
