package studio

import (
	"context"
	"errors"
	"strings"

	"ad-studio/internal/creative"
)

// Edit applies a free-text instruction to the current result. A failed edit
// only fills the error slot; the history is left as it was.
func (s *Session) Edit(ctx context.Context, instruction string) error {
	instruction = strings.TrimSpace(instruction)

	s.mu.Lock()
	if err := s.idleLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	cur := s.history.Current()
	if cur == nil || strings.TrimSpace(cur.Image) == "" {
		defer s.mu.Unlock()
		return s.rejectLocked(validationError("Generate an image before editing."))
	}
	if instruction == "" {
		defer s.mu.Unlock()
		return s.rejectLocked(validationError("Please describe the change you want."))
	}
	base := *cur
	done := s.startLocked(StateEditing)
	s.mu.Unlock()
	defer done()

	res, err := s.backend.EditImage(ctx, base.Image, instruction)
	if err == nil && strings.TrimSpace(res.Image) == "" {
		err = errors.New("image editing returned no image")
	}
	if err != nil {
		e := failure("Edit failed", err)
		s.logger.Error("edit failed", "kind", e.Kind, "err", err)
		s.mu.Lock()
		s.setErrLocked(e)
		s.mu.Unlock()
		return e
	}

	next := base.WithImage(res.Image)
	s.mu.Lock()
	s.history.Append(&next)
	s.publishLocked()
	s.mu.Unlock()
	return nil
}

func (s *Session) EditWithAdjustment(ctx context.Context, id string) error {
	adj, ok := creative.LookupAdjustment(id)
	if !ok {
		return validationError("Unknown adjustment: " + id)
	}
	return s.Edit(ctx, adj.Prompt)
}

// Reposition moves the slogan or headline towards a click on the displayed
// image. x and y are normalized with (0,0) at the top-left corner.
func (s *Session) Reposition(ctx context.Context, x, y float64) error {
	if !inUnit(x) || !inUnit(y) {
		return validationError("Coordinates must be between 0 and 1.")
	}
	return s.Edit(ctx, creative.RepositionInstruction(x, y))
}

// inUnit is false for NaN.
func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// Describe asks the backend for a short description of the selected image and
// stores it on that image's record.
func (s *Session) Describe(ctx context.Context) (string, error) {
	s.mu.Lock()
	if err := s.idleLocked(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	img := s.selectedLocked()
	if img == nil {
		defer s.mu.Unlock()
		return "", s.rejectLocked(validationError("Please upload an image first."))
	}
	imageID, src := img.ID, img.source()
	done := s.startLocked(StateDescribing)
	s.mu.Unlock()
	defer done()

	text, err := s.backend.DescribeImage(ctx, src)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("the model returned an empty description")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		e := failure("Failed to generate description", err)
		s.logger.Warn("describe failed", "image_id", imageID, "err", err)
		s.setErrLocked(e)
		return "", e
	}

	text = truncateRunes(text, MaxDescriptionRunes)
	if img := s.findLocked(imageID); img != nil {
		img.Description = text
	}
	s.publishLocked()
	return text, nil
}
