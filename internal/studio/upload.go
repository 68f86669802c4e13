package studio

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ad-studio/internal/ids"
	"ad-studio/internal/imageconv"
)

const (
	analysisTitleHint       = "Product"
	analysisDescriptionHint = "AI-powered product analysis"
)

// Upload adds a photo to the front of the library, selects it and starts the
// background analysis. The returned image is a copy of the stored record.
func (s *Session) Upload(ctx context.Context, name string, data []byte) (Image, error) {
	info, err := imageconv.Inspect(data)
	if err != nil {
		return Image{}, &Error{Kind: KindValidation, Message: "The uploaded file is not a supported image.", Err: err}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "image"
	}

	img := &Image{
		ID:         ids.WithName(name),
		Name:       name,
		MimeType:   info.MimeType,
		Data:       data,
		Preview:    info.Preview,
		Width:      info.Width,
		Height:     info.Height,
		UploadedAt: time.Now(),
		Analyzing:  s.backend != nil,
	}

	s.mu.Lock()
	if err := s.idleLocked(); err != nil {
		s.mu.Unlock()
		return Image{}, err
	}
	s.images = append([]*Image{img}, s.images...)
	s.selectLocked(img)
	s.publishLocked()
	out := *img
	run := img.analysisRun
	s.mu.Unlock()

	s.logger.Info("image uploaded", "image_id", img.ID, "mime", img.MimeType, "bytes", len(data))

	if s.backend != nil {
		s.startAnalysis(ctx, img.ID, run, img.source())
	}
	return out, nil
}

// AnalysisLoading reports whether the selected image is still being analyzed.
func (s *Session) AnalysisLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := s.selectedLocked()
	return img != nil && img.Analyzing
}

// startAnalysis runs analysis and the optional auto-description for imageID in
// the background. Both results are written to that image's record only.
func (s *Session) startAnalysis(ctx context.Context, imageID string, run int, src Source) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()

		ctx, cancel := detach(ctx, s.analysisTimeout)
		defer cancel()

		var g errgroup.Group
		g.Go(func() error {
			analysis, err := s.backend.AnalyzeProduct(ctx, src, analysisTitleHint, analysisDescriptionHint)
			s.applyAnalysis(imageID, run, analysis, err)
			return nil
		})
		if s.autoDescribe {
			g.Go(func() error {
				text, err := s.backend.DescribeImage(ctx, src)
				s.applyDescription(imageID, run, text, err)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// analysisTarget returns the image a background result for run may update.
func (s *Session) analysisTarget(imageID string, run int) *Image {
	img := s.findLocked(imageID)
	if img == nil {
		s.logger.Info("analysis result for removed image dropped", "image_id", imageID)
		return nil
	}
	if img.analysisRun != run {
		s.logger.Info("analysis result for reset image dropped", "image_id", imageID)
		return nil
	}
	return img
}

func (s *Session) applyAnalysis(imageID string, run int, analysis Analysis, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := s.analysisTarget(imageID, run)
	if img == nil {
		return
	}
	img.Analyzing = false

	if err != nil {
		s.logger.Warn("product analysis failed", "image_id", imageID, "err", err)
		s.publishLocked()
		return
	}

	input := inputFromAnalysis(analysis)
	stored := analysis.clone()
	img.Analysis = &stored
	cached := input.clone()
	img.Input = &cached

	if s.selectedID == imageID {
		s.input = input
		s.reviewPending = true
	} else {
		s.logger.Info("analysis stored for unselected image", "image_id", imageID)
	}
	s.publishLocked()
}

func (s *Session) applyDescription(imageID string, run int, text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := s.analysisTarget(imageID, run)
	if img == nil {
		return
	}
	if err != nil {
		s.logger.Warn("auto description failed", "image_id", imageID, "err", err)
		return
	}
	img.Description = truncateRunes(text, MaxDescriptionRunes)
	if s.selectedID == imageID {
		s.publishLocked()
	}
}

func inputFromAnalysis(a Analysis) ProductInput {
	description := strings.TrimSpace(a.Narrative)
	if description == "" {
		description = analysisDescriptionHint
	}
	stored := a.clone()
	return ProductInput{
		Title:       strings.TrimSpace(a.Title),
		Description: truncateRunes(description, MaxDescriptionRunes),
		Industry:    strings.TrimSpace(a.Industry),
		Audiences:   append([]string(nil), a.Audiences...),
		Confirmed:   true,
		Analysis:    &stored,
	}
}
