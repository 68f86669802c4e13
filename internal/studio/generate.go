package studio

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ad-studio/internal/creative"
)

// Generate runs one attempt per resolved format. Validation failures return
// before any backend call and leave the history untouched; every attempt that
// gets past validation leaves exactly one history entry, nil on failure.
func (s *Session) Generate(ctx context.Context, req GenerateRequest) error {
	s.mu.Lock()
	if err := s.idleLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	plans, err := s.planLocked(req)
	if err != nil {
		defer s.mu.Unlock()
		return s.rejectLocked(err)
	}
	done := s.startLocked(firstState(plans[0]))
	s.mu.Unlock()
	defer done()

	return s.run(ctx, plans)
}

// RegenerateImage repeats the last image call with the stored slogan or ad copy.
func (s *Session) RegenerateImage(ctx context.Context) error {
	return s.replay(ctx, func(a *attempt) error {
		a.generateSlogan = false
		return nil
	})
}

// RegenerateText asks for a new slogan, or new ad copy for facebook formats,
// then renders a new image with it.
func (s *Session) RegenerateText(ctx context.Context) error {
	return s.replay(ctx, func(a *attempt) error {
		if a.format.Kind == creative.KindFacebook {
			a.adCopy = nil
			a.generateSlogan = false
			return nil
		}
		if a.sloganStyle == creative.SloganNone {
			return validationError("The last generation did not use a slogan style.")
		}
		a.generateSlogan = true
		return nil
	})
}

// NewVariation reruns the full pipeline of the last generation.
func (s *Session) NewVariation(ctx context.Context) error {
	return s.replay(ctx, func(a *attempt) error {
		a.adCopy = nil
		a.generateSlogan = a.sloganStyle != creative.SloganNone
		return nil
	})
}

func (s *Session) replay(ctx context.Context, adjust func(*attempt) error) error {
	s.mu.Lock()
	if err := s.idleLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.last == nil {
		defer s.mu.Unlock()
		return s.rejectLocked(validationError("Generate an ad first."))
	}
	img := s.findLocked(s.last.ImageID)
	if img == nil {
		defer s.mu.Unlock()
		return s.rejectLocked(validationError("The image used for the last generation is no longer available."))
	}

	a := attempt{
		imageID:     img.ID,
		source:      img.source(),
		format:      s.last.Format,
		instruction: s.last.Instruction,
		description: s.last.Description,
		sloganStyle: s.last.SloganStyle,
		slogan:      s.last.Slogan,
	}
	if s.last.AdCopy != nil {
		c := *s.last.AdCopy
		a.adCopy = &c
	}
	if err := adjust(&a); err != nil {
		defer s.mu.Unlock()
		return s.rejectLocked(err)
	}

	done := s.startLocked(firstState(a))
	s.mu.Unlock()
	defer done()

	return s.run(ctx, []attempt{a})
}

func (s *Session) run(ctx context.Context, plans []attempt) error {
	var errs []error
	for _, a := range plans {
		if err := s.runAttempt(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) runAttempt(ctx context.Context, a attempt) error {
	log := s.logger.With("image_id", a.imageID, "format", a.format.ID)

	if a.generateSlogan {
		s.setState(StateGeneratingText)
		text, err := s.backend.GenerateSlogan(ctx, a.source, a.sloganStyle)
		if err == nil && strings.TrimSpace(creative.CleanSlogan(text)) == "" {
			err = errors.New("slogan generation returned no text")
		}
		if err != nil {
			return s.recordFailure(log, "slogan", err)
		}
		a.slogan = creative.CleanSlogan(text)
	}
	if a.format.Kind == creative.KindFacebook && a.adCopy == nil {
		ad, err := s.writeAdCopy(ctx, a)
		if err != nil {
			return s.recordFailure(log, "ad copy", err)
		}
		a.adCopy = &ad
	}

	// Only a fully written text replaces the stored parameters.
	s.recordParams(a)
	s.setState(StateGeneratingImage)

	var (
		content *Content
		err     error
	)
	if a.format.Kind == creative.KindFacebook {
		content, err = s.produceFacebookAd(ctx, a)
	} else {
		content, err = s.produceMockup(ctx, a)
	}
	if err != nil {
		return s.recordFailure(log, "image", err)
	}

	s.mu.Lock()
	s.history.Append(content)
	s.gallery.Add(*content)
	s.publishLocked()
	s.mu.Unlock()

	log.Info("generation succeeded", "kind", content.Kind)
	return nil
}

func (s *Session) produceMockup(ctx context.Context, a attempt) (*Content, error) {
	res, err := s.backend.GenerateAdImage(ctx, a.source, a.instruction, a.slogan, a.description)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Image) == "" {
		return nil, errors.New("the model returned no image")
	}
	return &Content{
		Kind:      ContentMockup,
		Image:     res.Image,
		Slogan:    a.slogan,
		FormatID:  a.format.ID,
		CreatedAt: time.Now(),
	}, nil
}

func (s *Session) writeAdCopy(ctx context.Context, a attempt) (AdCopy, error) {
	ad, err := s.backend.GenerateAdCopy(ctx, a.format, a.description)
	if err != nil {
		return AdCopy{}, err
	}
	if strings.TrimSpace(ad.ImagePrompt) == "" {
		return AdCopy{}, errors.New("ad copy came back without an image prompt")
	}
	return ad, nil
}

func (s *Session) produceFacebookAd(ctx context.Context, a attempt) (*Content, error) {
	res, err := s.backend.GenerateAdImage(ctx, a.source, a.adCopy.ImagePrompt, "", a.description)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Image) == "" {
		return nil, errors.New("the model returned no image")
	}
	return &Content{
		Kind:      ContentFacebookAd,
		Image:     res.Image,
		Headline:  a.adCopy.Headline,
		BodyText:  a.adCopy.BodyText,
		FormatID:  a.format.ID,
		CreatedAt: time.Now(),
	}, nil
}

func (s *Session) recordParams(a attempt) {
	p := a.params()
	s.mu.Lock()
	s.last = &p
	s.publishLocked()
	s.mu.Unlock()
}

// recordFailure fills the error slot and spends a history slot on the failed attempt.
func (s *Session) recordFailure(log *slog.Logger, stage string, err error) error {
	e := failure("Generation failed", err)
	log.Error("generation failed", "stage", stage, "kind", e.Kind, "err", err)

	s.mu.Lock()
	s.history.Append(nil)
	s.setErrLocked(e)
	s.mu.Unlock()
	return e
}

func firstState(a attempt) State {
	if a.generateSlogan {
		return StateGeneratingText
	}
	return StateGeneratingImage
}

// rejectLocked reports a failure found before any backend call.
func (s *Session) rejectLocked(err error) error {
	e, ok := err.(*Error)
	if !ok {
		e = &Error{Kind: KindTransport, Message: err.Error(), Err: err}
	}
	s.setErrLocked(e)
	return e
}
