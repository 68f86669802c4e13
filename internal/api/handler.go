// Package api exposes studio sessions over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"ad-studio/internal/creative"
	"ad-studio/internal/session"
	"ad-studio/internal/studio"
)

const defaultMaxUploadBytes = 25 << 20

type Options struct {
	Sessions *session.Store
	Catalog  *creative.Catalog
	Logger   *slog.Logger
	// MaxUploadBytes caps multipart uploads.
	MaxUploadBytes int64
	// RequestTimeout bounds generation and edit calls.
	RequestTimeout time.Duration
}

type Handler struct {
	sessions       *session.Store
	catalog        *creative.Catalog
	logger         *slog.Logger
	maxUploadBytes int64
	requestTimeout time.Duration
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	catalog := opts.Catalog
	if catalog == nil {
		catalog = creative.Builtin()
	}

	return &Handler{
		sessions:       opts.Sessions,
		catalog:        catalog,
		logger:         logger,
		maxUploadBytes: maxUpload,
		requestTimeout: timeout,
	}
}

// Router returns the full HTTP handler with the standard middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/formats", h.ListFormats)
		r.Get("/slogan-styles", h.ListSloganStyles)
		r.Get("/adjustments", h.ListAdjustments)

		r.Post("/sessions", h.CreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Get("/events", h.Events)

			r.Post("/images", h.UploadImage)
			r.Post("/images/{imageID}/select", h.SelectImage)
			r.Delete("/images/{imageID}", h.DeleteImage)
			r.Delete("/selection", h.ClearSelection)

			r.Put("/input", h.UpdateInput)
			r.Post("/analysis/confirm", h.ConfirmAnalysis)
			r.Post("/analysis/dismiss", h.DismissAnalysis)
			r.Post("/analysis/reset", h.ResetAnalysis)
			r.Post("/describe", h.Describe)
			r.Put("/options", h.UpdateOptions)

			r.Post("/generate", h.Generate)
			r.Post("/regenerate/image", h.RegenerateImage)
			r.Post("/regenerate/text", h.RegenerateText)
			r.Post("/variation", h.NewVariation)

			r.Post("/edit", h.Edit)
			r.Post("/adjustments/{adjustmentID}", h.Adjust)
			r.Post("/reposition", h.Reposition)

			r.Post("/undo", h.Undo)
			r.Post("/redo", h.Redo)
			r.Post("/reset", h.ResetHistory)
			r.Post("/gallery/{index}/select", h.SelectFromGallery)
			r.Put("/ad-text", h.UpdateAdText)
			r.Get("/image", h.DownloadImage)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorResponse{Error: message})
}

type errorResponse struct {
	Error   string           `json:"error"`
	Kind    studio.ErrorKind `json:"kind,omitempty"`
	Session *studio.Snapshot `json:"session,omitempty"`
}

// statusFor maps a studio error kind to an HTTP status.
func statusFor(kind studio.ErrorKind) int {
	switch kind {
	case studio.KindValidation:
		return http.StatusBadRequest
	case studio.KindBusy:
		return http.StatusConflict
	case studio.KindConfig:
		return http.StatusInternalServerError
	case studio.KindBlocked:
		return http.StatusUnprocessableEntity
	case studio.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// studioError writes err together with the session state it left behind.
func (h *Handler) studioError(w http.ResponseWriter, sess *studio.Session, err error) {
	resp := errorResponse{Error: err.Error(), Kind: studio.KindOf(err)}

	var se *studio.Error
	if errors.As(err, &se) {
		resp.Error = se.Message
	}
	if sess != nil {
		snap := sess.Snapshot()
		resp.Session = &snap
	}

	status := statusFor(resp.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("studio request failed", "kind", resp.Kind, "err", err)
	}
	JSON(w, status, resp)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*studio.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	sess, ok := h.sessions.Get(id)
	if !ok {
		Error(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

// requestContext detaches model calls from the client connection and bounds
// them by the request timeout.
func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), h.requestTimeout)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
