package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/eugenenazirov/envcheck/internal/settings"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// SettingsSource is the resolver behaviour the handlers depend on.
type SettingsSource interface {
	Check() settings.Report
	GetAll() (settings.ResultSet, error)
}

// Handler exposes the state of the resolved settings over HTTP.
type Handler struct {
	source SettingsSource
	clock  func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler over the provided settings source.
func NewHandler(source SettingsSource, opts ...HandlerOption) *Handler {
	h := &Handler{
		source: source,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRequired(w http.ResponseWriter, r *http.Request) {
	_ = r
	report := h.source.Check()

	resp := requiredResponse{
		OK:        report.OK(),
		Missing:   report.Missing,
		Required:  settings.RequiredNames,
		CheckedAt: h.clock(),
	}
	if resp.Missing == nil {
		resp.Missing = []string{}
	}

	status := http.StatusOK
	if !report.OK() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	_ = r
	if report := h.source.Check(); !report.OK() {
		writeError(w, http.StatusServiceUnavailable,
			"Environment setup incomplete",
			"missing required settings: "+strings.Join(report.Missing, ", "),
			"copy .env.template to .env and fill in the missing values, or add them to the platform secrets",
		)
		return
	}

	all, err := h.source.GetAll()
	if err != nil {
		if errors.Is(err, settings.ErrMissingConfiguration) {
			writeError(w, http.StatusServiceUnavailable, "Environment setup incomplete", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	resp := settingsResponse{
		Settings:  make([]settingView, 0, len(all)),
		CheckedAt: h.clock(),
	}
	for _, s := range all {
		view := settingView{
			Name:      s.Name,
			Resolved:  s.Resolved,
			Source:    s.Source,
			Sensitive: settings.IsSensitive(s.Name),
		}
		if s.Resolved {
			value := settings.Display(s)
			view.Value = &value
		}
		resp.Settings = append(resp.Settings, view)
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

type requiredResponse struct {
	OK        bool      `json:"ok"`
	Missing   []string  `json:"missing"`
	Required  []string  `json:"required"`
	CheckedAt time.Time `json:"checkedAt"`
}

type settingView struct {
	Name      string  `json:"name"`
	Value     *string `json:"value"`
	Resolved  bool    `json:"resolved"`
	Source    string  `json:"source,omitempty"`
	Sensitive bool    `json:"sensitive"`
}

type settingsResponse struct {
	Settings  []settingView `json:"settings"`
	CheckedAt time.Time     `json:"checkedAt"`
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
	w.Header().Set("Cache-Control", "no-store")
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
