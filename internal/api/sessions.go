package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ad-studio/internal/creative"
	"ad-studio/internal/imageconv"
	"ad-studio/internal/studio"
)

func (h *Handler) ListFormats(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"formats": h.catalog.Formats()})
}

func (h *Handler) ListSloganStyles(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"styles": creative.SloganStyles()})
}

func (h *Handler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"adjustments": creative.Adjustments()})
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()
	h.logger.Info("session created", "session_id", sess.ID())
	JSON(w, http.StatusCreated, sess.Snapshot())
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, sess.Snapshot())
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(chi.URLParam(r, "sessionID")) {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		Error(w, http.StatusBadRequest, "missing image")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read image")
		return
	}

	if _, err := sess.Upload(r.Context(), header.Filename, data); err != nil {
		h.studioError(w, sess, err)
		return
	}
	JSON(w, http.StatusCreated, sess.Snapshot())
}

func (h *Handler) SelectImage(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(sess *studio.Session) error {
		return sess.SelectImage(chi.URLParam(r, "imageID"))
	})
}

func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(sess *studio.Session) error {
		return sess.DeleteImage(chi.URLParam(r, "imageID"))
	})
}

func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*studio.Session).ClearSelection)
}

func (h *Handler) UpdateInput(w http.ResponseWriter, r *http.Request) {
	var in studio.ProductInput
	if err := decodeBody(r, &in); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.apply(w, r, func(sess *studio.Session) error {
		sess.UpdateInput(in)
		return nil
	})
}

func (h *Handler) ConfirmAnalysis(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(sess *studio.Session) error {
		sess.ConfirmAnalysis()
		return nil
	})
}

func (h *Handler) DismissAnalysis(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(sess *studio.Session) error {
		sess.DismissAnalysis()
		return nil
	})
}

func (h *Handler) ResetAnalysis(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*studio.Session).ResetAnalysis)
}

func (h *Handler) Describe(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	text, err := sess.Describe(ctx)
	if err != nil {
		h.studioError(w, sess, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"description": text, "session": sess.Snapshot()})
}

type optionsRequest struct {
	Formats     *[]string `json:"formats,omitempty"`
	SloganStyle *string   `json:"sloganStyle,omitempty"`
}

func (h *Handler) UpdateOptions(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.apply(w, r, func(sess *studio.Session) error {
		if req.Formats != nil {
			if err := sess.SetFormats(*req.Formats...); err != nil {
				return err
			}
		}
		if req.SloganStyle != nil {
			return sess.SetSloganStyle(creative.SloganStyle(*req.SloganStyle))
		}
		return nil
	})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req studio.GenerateRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.run(w, r, func(ctx context.Context, sess *studio.Session) error {
		return sess.Generate(ctx, req)
	})
}

func (h *Handler) RegenerateImage(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, sess *studio.Session) error {
		return sess.RegenerateImage(ctx)
	})
}

func (h *Handler) RegenerateText(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, sess *studio.Session) error {
		return sess.RegenerateText(ctx)
	})
}

func (h *Handler) NewVariation(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, sess *studio.Session) error {
		return sess.NewVariation(ctx)
	})
}

type editRequest struct {
	Instruction string `json:"instruction"`
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.run(w, r, func(ctx context.Context, sess *studio.Session) error {
		return sess.Edit(ctx, req.Instruction)
	})
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "adjustmentID")
	h.run(w, r, func(ctx context.Context, sess *studio.Session) error {
		return sess.EditWithAdjustment(ctx, id)
	})
}

type repositionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (h *Handler) Reposition(w http.ResponseWriter, r *http.Request) {
	var req repositionRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.run(w, r, func(ctx context.Context, sess *studio.Session) error {
		return sess.Reposition(ctx, req.X, req.Y)
	})
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*studio.Session).Undo)
}

func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*studio.Session).Redo)
}

func (h *Handler) ResetHistory(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*studio.Session).ResetHistory)
}

func (h *Handler) SelectFromGallery(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid gallery index")
		return
	}
	h.apply(w, r, func(sess *studio.Session) error {
		return sess.SelectFromGallery(index)
	})
}

type adTextRequest struct {
	Headline string `json:"headline"`
	BodyText string `json:"bodyText"`
}

func (h *Handler) UpdateAdText(w http.ResponseWriter, r *http.Request) {
	var req adTextRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.apply(w, r, func(sess *studio.Session) error {
		return sess.UpdateAdText(req.Headline, req.BodyText)
	})
}

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

// DownloadImage serves the current history entry, re-encoded when ?format= is set.
func (h *Handler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	current := sess.Current()
	if current == nil || current.Image == "" {
		Error(w, http.StatusNotFound, "no image generated yet")
		return
	}

	mimeType, data, err := imageconv.DecodeDataURL(current.Image)
	if err != nil {
		Error(w, http.StatusInternalServerError, "stored image is corrupt")
		return
	}

	if format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); format != "" {
		ct, known := contentTypes[format]
		if !known {
			Error(w, http.StatusBadRequest, "unsupported format")
			return
		}
		if ct != mimeType {
			if data, err = imageconv.Convert(data, format); err != nil {
				h.logger.Error("image conversion failed", "format", format, "err", err)
				Error(w, http.StatusInternalServerError, "image conversion failed")
				return
			}
			mimeType = ct
		}
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// apply runs a quick session mutation and answers with the new snapshot.
func (h *Handler) apply(w http.ResponseWriter, r *http.Request, fn func(*studio.Session) error) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := fn(sess); err != nil {
		h.studioError(w, sess, err)
		return
	}
	JSON(w, http.StatusOK, sess.Snapshot())
}

// run is apply for calls that reach the model.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, fn func(context.Context, *studio.Session) error) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := fn(ctx, sess); err != nil {
		h.studioError(w, sess, err)
		return
	}
	JSON(w, http.StatusOK, sess.Snapshot())
}
