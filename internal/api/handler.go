package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/eugenenazirov/signcfg/internal/release"
	"github.com/eugenenazirov/signcfg/internal/signing"
	"github.com/eugenenazirov/signcfg/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// SourceReader reads the signing properties file. *signing.Loader implements it.
type SourceReader interface {
	Read(path string) (signing.Source, error)
}

// Handler wires the loader, planner and storage into HTTP handlers.
type Handler struct {
	reader  SourceReader
	planner release.Planner
	storage storage.Storage
	path    string

	clock func() time.Time

	reloadMu sync.Mutex
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler serving the properties file at path.
func NewHandler(reader SourceReader, planner release.Planner, store storage.Storage, path string, opts ...HandlerOption) *Handler {
	h := &Handler{
		reader:  reader,
		planner: planner,
		storage: store,
		path:    path,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Reload reads the properties file again and replaces the stored snapshot.
// On failure the previous snapshot is kept.
func (h *Handler) Reload() (storage.Snapshot, error) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	src, err := h.reader.Read(h.path)
	if err != nil {
		return storage.Snapshot{}, err
	}

	snapshot := storage.Snapshot{Source: src, LoadedAt: h.clock()}
	if err := h.storage.Set(snapshot); err != nil {
		return storage.Snapshot{}, fmt.Errorf("store snapshot: %w", err)
	}
	return snapshot, nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSigning(w http.ResponseWriter, r *http.Request) {
	_ = r
	snapshot, err := h.storage.Get()
	if err != nil {
		if errors.Is(err, storage.ErrEmpty) {
			writeError(w, http.StatusServiceUnavailable, "Not loaded", err.Error(), "POST /api/signing/reload to load the properties file")
			return
		}
		writeInternalError(w, err)
		return
	}

	h.writeSnapshot(w, snapshot, "")
}

func (h *Handler) handleReloadSigning(w http.ResponseWriter, r *http.Request) {
	_ = r
	snapshot, err := h.Reload()
	if err != nil {
		switch {
		case errors.Is(err, signing.ErrParse):
			writeError(w, http.StatusUnprocessableEntity, "Invalid signing properties", err.Error(), "Fix the properties file syntax and reload")
		case errors.Is(err, signing.ErrConfigRead):
			writeError(w, http.StatusInternalServerError, "Cannot read signing properties", err.Error())
		default:
			writeInternalError(w, err)
		}
		return
	}

	h.writeSnapshot(w, snapshot, "Signing configuration reloaded")
}

func (h *Handler) writeSnapshot(w http.ResponseWriter, snapshot storage.Snapshot, message string) {
	plan, err := h.planner.Plan(snapshot.Source.Credentials)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := signingResponse{
		Report:   release.NewReport(snapshot.Source, plan),
		LoadedAt: snapshot.LoadedAt,
		Message:  message,
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type signingResponse struct {
	release.Report
	LoadedAt time.Time `json:"loadedAt"`
	Message  string    `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
