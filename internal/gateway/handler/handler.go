package handler

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"

	"docchat/internal/admission"
	"docchat/internal/chat"
	"docchat/internal/extract"
	"docchat/internal/gateway/config"
	"docchat/internal/gateway/middleware"
	"docchat/internal/observability"
	"docchat/internal/proxy"
)

const (
	RouteChat    = "/api/chat"
	RouteChatWS  = "/api/chat/ws"
	RouteExtract = "/api/extract"
	RouteHealth  = "/healthz"
)

// Streamer runs one completion exchange and relays chunks to sink.
type Streamer interface {
	Stream(ctx context.Context, req chat.Request, sink proxy.Sink) error
}

type Deps struct {
	Admission admission.Controller
	Streamer  Streamer
	Extractor extract.Extractor
	Metrics   *observability.Metrics
	Logger    *log.Logger

	MaxBodyBytes   int64
	MaxUploadBytes int64
}

// Service serves the chat, extract and health endpoints.
type Service struct {
	admission      admission.Controller
	streamer       Streamer
	extractor      extract.Extractor
	metrics        *observability.Metrics
	log            *log.Logger
	maxBodyBytes   int64
	maxUploadBytes int64
}

func NewService(d Deps) *Service {
	s := &Service{
		admission:      d.Admission,
		streamer:       d.Streamer,
		extractor:      d.Extractor,
		metrics:        d.Metrics,
		log:            d.Logger,
		maxBodyBytes:   d.MaxBodyBytes,
		maxUploadBytes: d.MaxUploadBytes,
	}
	if s.log == nil {
		s.log = log.Default()
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = config.DefaultMaxBodyBytes
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = config.DefaultMaxUploadBytes
	}
	return s
}

// admit counts the request against the caller's window. It writes the
// rejection itself and reports false when the handler must stop.
func (s *Service) admit(w http.ResponseWriter, r *http.Request, route string) bool {
	clientID := middleware.ClientIDFrom(r.Context())
	d, err := s.admission.Check(r.Context(), clientID)
	if err != nil {
		s.log.Printf("admission check failed for %s: %v", clientID, err)
		writeJSONError(w, http.StatusInternalServerError, proxy.ErrorMessage)
		s.metrics.RecordRequest(route, http.StatusInternalServerError)
		return false
	}
	s.metrics.RecordAdmission(d.Allowed)
	setRateLimitHeaders(w.Header(), d)
	if d.Allowed {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(d)))
	http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
	s.metrics.RecordRequest(route, http.StatusTooManyRequests)
	return false
}

func setRateLimitHeaders(h http.Header, d admission.Decision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// retryAfterSeconds rounds up so a client never retries inside the window.
func retryAfterSeconds(d admission.Decision) int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Service) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
