package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/chat"
	"ranpulse/core-go/internal/config"
	"ranpulse/core-go/internal/dashboard"
	"ranpulse/core-go/internal/feed"
	"ranpulse/core-go/internal/metrics"
	"ranpulse/core-go/internal/network"
	"ranpulse/core-go/internal/notify"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Dashboard interface {
	Snapshot() (dashboard.Snapshot, bool)
	Reload(ctx context.Context) error
}

type SettingsStore interface {
	Load() (config.Settings, error)
	Save(config.Settings) error
	Reset() error
}

type Notifications interface {
	List() []notify.Notification
	Dismiss(id string) bool
}

type ChatSession interface {
	Send(ctx context.Context, query string) (chat.Message, error)
	Messages() []chat.Message
	Clear()
}

// Deps are the collaborators behind the API. Nil fields disable the routes
// that need them with a 503.
type Deps struct {
	DB            Pinger
	Dashboard     Dashboard
	Settings      SettingsStore
	Notifications Notifications
	Chat          ChatSession
	LiveFeed      http.HandlerFunc
	Metrics       *metrics.Metrics
}

type Handler struct {
	log  zerolog.Logger
	deps Deps
}

func NewHandler(log zerolog.Logger, deps Deps) *Handler {
	return &Handler{log: log, deps: deps}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.deps.Metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			// The websocket outlives the request timeout.
			r.Get("/ws", h.handleWS)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))

				r.Get("/snapshot", h.handleSnapshot)
				r.Get("/summary", h.handleSummary)
				r.Get("/anomalies", h.handleAnomalies)
				r.Get("/events", h.handleEvents)
				r.Route("/towers", func(r chi.Router) {
					r.Get("/", h.handleListTowers)
					r.Get("/{id}", h.handleGetTower)
				})

				r.Route("/settings", func(r chi.Router) {
					r.Get("/", h.handleGetSettings)
					r.Put("/", h.handlePutSettings)
					r.Delete("/", h.handleResetSettings)
					r.Post("/reload", h.handleReload)
				})

				r.Route("/notifications", func(r chi.Router) {
					r.Get("/", h.handleListNotifications)
					r.Delete("/{id}", h.handleDismissNotification)
				})

				r.Route("/chat", func(r chi.Router) {
					r.Post("/", h.handleChat)
					r.Get("/messages", h.handleChatMessages)
					r.Delete("/messages", h.handleClearChat)
				})
			})
		})
	})

	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.deps.DB != nil {
		if err := h.deps.DB.Ping(ctx); err != nil {
			h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
		return
	}

	if _, ok := h.snapshot(); !ok {
		h.writeError(w, http.StatusServiceUnavailable, "not_ready", "dashboard has not loaded yet", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

func (h *Handler) snapshot() (dashboard.Snapshot, bool) {
	if h.deps.Dashboard == nil {
		return dashboard.Snapshot{}, false
	}
	return h.deps.Dashboard.Snapshot()
}

// requireSnapshot writes a 503 and returns false before the first load.
func (h *Handler) requireSnapshot(w http.ResponseWriter) (dashboard.Snapshot, bool) {
	snap, ok := h.snapshot()
	if !ok {
		h.writeError(w, http.StatusServiceUnavailable, "not_ready", "dashboard has not loaded yet", nil)
	}
	return snap, ok
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.requireSnapshot(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.requireSnapshot(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, snap.Summary)
}

func (h *Handler) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.requireSnapshot(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, snap.Anomalies)
}

func (h *Handler) handleListTowers(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.requireSnapshot(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, snap.Towers)
}

func (h *Handler) handleGetTower(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok := h.requireSnapshot(w)
	if !ok {
		return
	}
	tower, found := snap.Tower(id)
	if !found {
		h.writeError(w, http.StatusNotFound, "not_found", "tower not found", map[string]any{"id": id})
		return
	}
	h.writeJSON(w, http.StatusOK, tower)
}

type eventPage struct {
	Cell   string          `json:"cell"`
	Cells  []string        `json:"cells"`
	Events []network.Event `json:"events"`
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	cell := r.URL.Query().Get("cell")
	if cell == "" {
		cell = feed.AllCells
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "limit must be a non-negative integer", map[string]any{"limit": raw})
			return
		}
		limit = n
	}

	snap, ok := h.requireSnapshot(w)
	if !ok {
		return
	}
	events := feed.Limit(feed.FilterByCell(snap.Feed, cell), limit)
	h.writeJSON(w, http.StatusOK, eventPage{Cell: cell, Cells: snap.Cells, Events: events})
}

func (h *Handler) ensureSettings(w http.ResponseWriter) bool {
	if h.deps.Settings == nil {
		h.writeError(w, http.StatusServiceUnavailable, "settings_unavailable", "settings store not configured", nil)
		return false
	}
	return true
}

type settingsResponse struct {
	Settings config.Settings   `json:"settings"`
	Sources  map[string]string `json:"sources"`
}

func (h *Handler) settingsResponse(st config.Settings) settingsResponse {
	resp := settingsResponse{Settings: st, Sources: map[string]string{}}
	if snap, ok := h.snapshot(); ok {
		resp.Sources = snap.Sources
	}
	return resp
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if !h.ensureSettings(w) {
		return
	}
	st, err := h.deps.Settings.Load()
	if err != nil {
		h.log.Error().Err(err).Msg("load settings failed")
		h.writeError(w, http.StatusInternalServerError, "settings_error", "failed to load settings", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, h.settingsResponse(st))
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req config.Settings
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}
	if !h.ensureSettings(w) {
		return
	}

	if err := h.deps.Settings.Save(req); err != nil {
		h.log.Error().Err(err).Msg("save settings failed")
		h.writeError(w, http.StatusInternalServerError, "settings_error", "failed to save settings", nil)
		return
	}
	if !h.reload(w, r) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.settingsResponse(req))
}

func (h *Handler) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	if !h.ensureSettings(w) {
		return
	}
	if err := h.deps.Settings.Reset(); err != nil {
		h.log.Error().Err(err).Msg("reset settings failed")
		h.writeError(w, http.StatusInternalServerError, "settings_error", "failed to reset settings", nil)
		return
	}
	if !h.reload(w, r) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.settingsResponse(config.Settings{}))
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if !h.reload(w, r) {
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]any{"status": "reloaded"})
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) bool {
	if h.deps.Dashboard == nil {
		return true
	}
	if err := h.deps.Dashboard.Reload(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("dashboard reload failed")
		h.writeError(w, http.StatusInternalServerError, "reload_failed", "failed to reload data sources", map[string]any{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	if h.deps.Notifications == nil {
		h.writeJSON(w, http.StatusOK, []notify.Notification{})
		return
	}
	h.writeJSON(w, http.StatusOK, h.deps.Notifications.List())
}

func (h *Handler) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.deps.Notifications == nil || !h.deps.Notifications.Dismiss(id) {
		h.writeError(w, http.StatusNotFound, "not_found", "notification not found", map[string]any{"id": id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chatRequest struct {
	Query string `json:"query"`
}

func (h *Handler) ensureChat(w http.ResponseWriter) bool {
	if h.deps.Chat == nil {
		h.writeError(w, http.StatusServiceUnavailable, "chat_unavailable", "chat service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if !h.ensureChat(w) {
		return
	}

	msg, err := h.deps.Chat.Send(r.Context(), req.Query)
	switch {
	case errors.Is(err, chat.ErrEmptyQuery):
		h.writeError(w, http.StatusBadRequest, "validation_failed", "query must not be empty", nil)
	case err != nil:
		h.writeError(w, http.StatusBadGateway, "chat_upstream_error", "chat service request failed", map[string]any{"message": msg})
	default:
		h.writeJSON(w, http.StatusOK, msg)
	}
}

func (h *Handler) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	if !h.ensureChat(w) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.deps.Chat.Messages())
}

func (h *Handler) handleClearChat(w http.ResponseWriter, r *http.Request) {
	if !h.ensureChat(w) {
		return
	}
	h.deps.Chat.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	if h.deps.LiveFeed == nil {
		h.writeError(w, http.StatusServiceUnavailable, "livefeed_unavailable", "live feed not running", nil)
		return
	}
	h.deps.LiveFeed(w, r)
}
