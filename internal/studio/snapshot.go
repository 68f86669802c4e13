package studio

import (
	"time"

	"ad-studio/internal/creative"
)

type ImageView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mimeType"`
	Preview     string    `json:"preview"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Analyzing   bool      `json:"analyzing"`
	Analysis    *Analysis `json:"analysis,omitempty"`
	Description string    `json:"description,omitempty"`
}

type ErrorView struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Snapshot is a read-only, JSON-ready view of a session. It never carries the
// raw upload bytes.
type Snapshot struct {
	ID              string               `json:"id"`
	State           State                `json:"state"`
	Images          []ImageView          `json:"images"`
	SelectedImageID string               `json:"selectedImageId,omitempty"`
	Input           ProductInput         `json:"input"`
	AnalysisLoading bool                 `json:"analysisLoading"`
	ReviewAnalysis  bool                 `json:"reviewAnalysis"`
	Formats         []string             `json:"formats"`
	SloganStyle     creative.SloganStyle `json:"sloganStyle"`
	Current         *Content             `json:"current,omitempty"`
	HistoryLength   int                  `json:"historyLength"`
	Cursor          int                  `json:"cursor"`
	CanUndo         bool                 `json:"canUndo"`
	CanRedo         bool                 `json:"canRedo"`
	Gallery         []Content            `json:"gallery"`
	LastParams      *GenerationParams    `json:"lastParams,omitempty"`
	Error           *ErrorView           `json:"error,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives a snapshot after every state
// change. Slow readers miss intermediate snapshots. cancel closes the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 8)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Close ends every subscription. Later subscriptions receive a closed channel.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:              s.id,
		State:           s.state,
		Images:          make([]ImageView, 0, len(s.images)),
		SelectedImageID: s.selectedID,
		Input:           s.input.clone(),
		ReviewAnalysis:  s.reviewPending,
		Formats:         append([]string(nil), s.formats...),
		SloganStyle:     s.sloganStyle,
		HistoryLength:   s.history.Len(),
		Cursor:          s.history.Cursor(),
		CanUndo:         s.history.CanUndo(),
		CanRedo:         s.history.CanRedo(),
		Gallery:         s.gallery.Items(),
	}

	for _, img := range s.images {
		view := ImageView{
			ID:          img.ID,
			Name:        img.Name,
			MimeType:    img.MimeType,
			Preview:     img.Preview,
			Width:       img.Width,
			Height:      img.Height,
			UploadedAt:  img.UploadedAt,
			Analyzing:   img.Analyzing,
			Description: img.Description,
		}
		if img.Analysis != nil {
			a := img.Analysis.clone()
			view.Analysis = &a
		}
		snap.Images = append(snap.Images, view)
		if img.ID == s.selectedID {
			snap.AnalysisLoading = img.Analyzing
		}
	}

	if c := s.history.Current(); c != nil {
		cp := *c
		snap.Current = &cp
	}
	if s.last != nil {
		p := *s.last
		if p.AdCopy != nil {
			ad := *p.AdCopy
			p.AdCopy = &ad
		}
		snap.LastParams = &p
	}
	if s.err != nil {
		snap.Error = &ErrorView{Kind: s.err.Kind, Message: s.err.Message}
	}
	return snap
}
