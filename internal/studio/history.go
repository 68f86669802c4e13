package studio

// History is a linear undo history of generated content. Nil entries record
// failed generation attempts and occupy a slot like any other entry.
type History struct {
	entries []*Content
	cursor  int
}

func NewHistory() *History {
	return &History{cursor: -1}
}

// Append drops every entry after the cursor, appends c and moves the cursor onto it.
func (h *History) Append(c *Content) {
	h.entries = append(h.entries[:h.cursor+1], c)
	h.cursor = len(h.entries) - 1
}

func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.cursor--
	return true
}

func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.cursor++
	return true
}

// Reset collapses the history to its first entry.
func (h *History) Reset() {
	if len(h.entries) == 0 {
		return
	}
	h.entries = h.entries[:1]
	h.cursor = 0
}

// Current returns the entry under the cursor. It is nil when the history is
// empty or the entry records a failure.
func (h *History) Current() *Content {
	if h.cursor < 0 || h.cursor >= len(h.entries) {
		return nil
	}
	return h.entries[h.cursor]
}

func (h *History) Cursor() int { return h.cursor }
func (h *History) Len() int    { return len(h.entries) }

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.entries)-1 }

func (h *History) Entries() []*Content {
	return append([]*Content(nil), h.entries...)
}
