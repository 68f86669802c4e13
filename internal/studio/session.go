package studio

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"ad-studio/internal/creative"
)

type Options struct {
	Backend Backend
	Catalog *creative.Catalog
	Logger  *slog.Logger

	GalleryLimit int
	// AutoDescribe runs DescribeImage next to the analysis of every upload.
	AutoDescribe bool
	// AnalysisTimeout bounds the background calls started by Upload.
	AnalysisTimeout time.Duration
}

// Session is one user's studio: an image library, the working input and the
// generation state machine. All methods are safe for concurrent use; backend
// calls run without holding the lock and at most one request runs at a time.
type Session struct {
	id              string
	backend         Backend
	catalog         *creative.Catalog
	logger          *slog.Logger
	autoDescribe    bool
	analysisTimeout time.Duration

	mu            sync.Mutex
	state         State
	images        []*Image
	selectedID    string
	input         ProductInput
	reviewPending bool
	formats       []string
	sloganStyle   creative.SloganStyle
	history       *History
	gallery       *Gallery
	last          *GenerationParams
	err           *Error

	subs    map[int]chan Snapshot
	nextSub int
	closed  bool

	background sync.WaitGroup
}

func New(id string, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	catalog := opts.Catalog
	if catalog == nil {
		catalog = creative.Builtin()
	}

	timeout := opts.AnalysisTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &Session{
		id:              id,
		backend:         opts.Backend,
		catalog:         catalog,
		logger:          logger.With("session_id", id),
		autoDescribe:    opts.AutoDescribe,
		analysisTimeout: timeout,
		state:           StateIdle,
		history:         NewHistory(),
		gallery:         NewGallery(opts.GalleryLimit),
		subs:            make(map[int]chan Snapshot),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Catalog() *creative.Catalog { return s.catalog }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the current error slot, nil when the last request succeeded.
func (s *Session) Err() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Current returns the history entry under the cursor.
func (s *Session) Current() *Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.history.Current(); c != nil {
		cp := *c
		return &cp
	}
	return nil
}

func (s *Session) SelectedImage() (Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := s.selectedLocked()
	if img == nil {
		return Image{}, false
	}
	return *img, true
}

// Wait blocks until every background analysis started so far has finished.
func (s *Session) Wait() {
	s.background.Wait()
}

func (s *Session) SelectImage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idleLocked(); err != nil {
		return err
	}
	img := s.findLocked(id)
	if img == nil {
		return validationError("Image not found.")
	}
	s.selectLocked(img)
	s.publishLocked()
	return nil
}

// DeleteImage removes an image from the library. Deleting the selected image
// selects the first remaining one.
func (s *Session) DeleteImage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idleLocked(); err != nil {
		return err
	}

	idx := -1
	for i, img := range s.images {
		if img.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return validationError("Image not found.")
	}
	s.images = append(s.images[:idx:idx], s.images[idx+1:]...)

	if s.selectedID == id {
		if len(s.images) > 0 {
			s.selectLocked(s.images[0])
		} else {
			s.selectLocked(nil)
		}
	}
	s.publishLocked()
	return nil
}

// ClearSelection deselects the current image so a new one can be uploaded.
func (s *Session) ClearSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idleLocked(); err != nil {
		return err
	}
	s.selectLocked(nil)
	s.publishLocked()
	return nil
}

func (s *Session) UpdateInput(in ProductInput) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in = in.clone()
	in.Title = strings.TrimSpace(in.Title)
	in.Description = truncateRunes(in.Description, MaxDescriptionRunes)
	if in.Analysis == nil && s.input.Analysis != nil {
		a := s.input.Analysis.clone()
		in.Analysis = &a
	}
	s.input = in

	if img := s.selectedLocked(); img != nil {
		cached := in.clone()
		img.Input = &cached
	}
	s.publishLocked()
}

// ConfirmAnalysis accepts the analysis-derived input and closes the review prompt.
func (s *Session) ConfirmAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.input.Confirmed = true
	s.reviewPending = false
	if img := s.selectedLocked(); img != nil {
		cached := s.input.clone()
		img.Input = &cached
	}
	s.publishLocked()
}

func (s *Session) DismissAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reviewPending = false
	s.publishLocked()
}

// ResetAnalysis drops the analysis of the selected image and empties the input.
// An analysis still in flight for that image is discarded when it returns.
func (s *Session) ResetAnalysis() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := s.selectedLocked()
	if img == nil {
		return validationError("Please upload an image first.")
	}
	img.analysisRun++
	img.Analyzing = false
	img.Analysis = nil
	img.Input = nil
	img.Description = ""
	s.input = ProductInput{}
	s.reviewPending = false
	s.publishLocked()
	return nil
}

// SetFormats replaces the selected formats. No ids means the default format.
func (s *Session) SetFormats(ids ...string) error {
	var formats []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		f, ok := s.catalog.Lookup(id)
		if !ok {
			return validationError("Unknown format: " + id)
		}
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}
		formats = append(formats, f.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.formats = formats
	s.publishLocked()
	return nil
}

func (s *Session) SetSloganStyle(style creative.SloganStyle) error {
	style, err := creative.ParseSloganStyle(string(style))
	if err != nil {
		return validationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sloganStyle = style
	s.publishLocked()
	return nil
}

func (s *Session) Undo() error {
	return s.navigate(func(h *History) { h.Undo() })
}

func (s *Session) Redo() error {
	return s.navigate(func(h *History) { h.Redo() })
}

func (s *Session) ResetHistory() error {
	return s.navigate(func(h *History) { h.Reset() })
}

func (s *Session) navigate(fn func(*History)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idleLocked(); err != nil {
		return err
	}
	fn(s.history)
	s.publishLocked()
	return nil
}

// SelectFromGallery makes gallery entry i the newest history entry.
func (s *Session) SelectFromGallery(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idleLocked(); err != nil {
		return err
	}
	c, ok := s.gallery.At(i)
	if !ok {
		return validationError("Gallery item not found.")
	}
	s.history.Append(&c)
	s.publishLocked()
	return nil
}

// UpdateAdText rewrites the copy of the current facebook ad as a new, undoable entry.
func (s *Session) UpdateAdText(headline, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idleLocked(); err != nil {
		return err
	}
	cur := s.history.Current()
	if cur == nil || !cur.IsFacebookAd() {
		return validationError("The current result has no ad text to edit.")
	}
	next := *cur
	next.Headline = strings.TrimSpace(headline)
	next.BodyText = strings.TrimSpace(body)
	s.history.Append(&next)
	s.publishLocked()
	return nil
}

// startLocked moves an idle session into state and clears the error slot.
// The returned function puts the session back to idle.
func (s *Session) startLocked(state State) func() {
	s.state = state
	s.err = nil
	s.publishLocked()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.state = StateIdle
		s.publishLocked()
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.publishLocked()
}

func (s *Session) idleLocked() error {
	if s.state != StateIdle {
		return busyError(s.state)
	}
	return nil
}

func (s *Session) findLocked(id string) *Image {
	for _, img := range s.images {
		if img.ID == id {
			return img
		}
	}
	return nil
}

func (s *Session) selectedLocked() *Image {
	if s.selectedID == "" {
		return nil
	}
	return s.findLocked(s.selectedID)
}

// selectLocked switches the working image and resets everything derived from
// the previous one. img may be nil.
func (s *Session) selectLocked(img *Image) {
	s.history = NewHistory()
	s.gallery.Clear()
	s.last = nil
	s.err = nil
	s.reviewPending = false
	s.input = ProductInput{}
	s.selectedID = ""

	if img == nil {
		return
	}
	s.selectedID = img.ID
	if img.Input != nil {
		s.input = img.Input.clone()
	} else if img.Analysis != nil {
		s.input = inputFromAnalysis(*img.Analysis)
	}
}

func (s *Session) setErrLocked(err *Error) {
	s.err = err
	s.publishLocked()
}

func truncateRunes(value string, limit int) string {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	return strings.TrimSpace(string([]rune(value)[:limit]))
}

func detach(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
