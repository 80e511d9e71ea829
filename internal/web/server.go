package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/pfrederiksen/silat-watch/internal/logger"
	"github.com/pfrederiksen/silat-watch/internal/subscriber"
	"github.com/pfrederiksen/silat-watch/internal/token"
)

//go:embed templates/*.html
var templateFS embed.FS

// User-facing messages, in the language of the site
const (
	MsgSubscribed        = "Berhasil berlangganan! Cek inbox/spam untuk memastikan."
	MsgAlreadySubscribed = "Email ini sudah terdaftar."
	MsgInvalidEmail      = "Alamat email tidak valid."
	MsgServerError       = "Terjadi kesalahan. Silakan coba lagi nanti."
	MsgTokenExpired      = "Link unsubscribe sudah kadaluarsa."
	MsgTokenInvalid      = "Link unsubscribe tidak valid."
)

// SubscriberStore is the part of the subscriber store the web form needs
type SubscriberStore interface {
	Add(ctx context.Context, email string) (bool, error)
	Remove(ctx context.Context, email string) error
	Count(ctx context.Context) (int, error)
}

// TokenVerifier resolves an unsubscribe token to an address
type TokenVerifier interface {
	Verify(tok string) (string, error)
}

// Server holds the HTTP handlers
type Server struct {
	subscribers SubscriberStore
	tokens      TokenVerifier
	metrics     *logger.Metrics
	pages       *template.Template
}

// New creates a Server. A nil metrics uses the process-wide metrics.
func New(subscribers SubscriberStore, tokens TokenVerifier, metrics *logger.Metrics) *Server {
	if metrics == nil {
		metrics = logger.DefaultMetrics()
	}

	return &Server{
		subscribers: subscribers,
		tokens:      tokens,
		metrics:     metrics,
		pages:       template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

// Handler returns the routed handler with request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleSubscribe)
	mux.HandleFunc("GET /unsubscribe/{token}", s.handleUnsubscribe)
	mux.HandleFunc("POST /unsubscribe/{token}", s.handleOneClickUnsubscribe)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return logRequests(mux)
}

type indexPage struct {
	Flash *Flash
}

type unsubscribePage struct {
	Success bool
	Email   string
	Error   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index.html", indexPage{Flash: popFlash(w, r)})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	if email == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	added, err := s.subscribers.Add(r.Context(), email)
	switch {
	case errors.Is(err, subscriber.ErrInvalidEmail):
		setFlash(w, Flash{Category: FlashDanger, Message: MsgInvalidEmail})
	case err != nil:
		logger.Error("Failed to add subscriber", nil, err)
		setFlash(w, Flash{Category: FlashDanger, Message: MsgServerError})
	case added:
		s.metrics.IncrCounter("web.subscribed")
		logger.Info("New subscriber", nil)
		setFlash(w, Flash{Category: FlashSuccess, Message: MsgSubscribed})
	default:
		setFlash(w, Flash{Category: FlashWarning, Message: MsgAlreadySubscribed})
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	email, msg := s.unsubscribe(r)
	if msg != "" {
		s.render(w, http.StatusOK, "unsubscribe.html", unsubscribePage{Error: msg})
		return
	}
	s.render(w, http.StatusOK, "unsubscribe.html", unsubscribePage{Success: true, Email: email})
}

func (s *Server) handleOneClickUnsubscribe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	_, msg := s.unsubscribe(r)
	switch msg {
	case "":
		_, _ = w.Write([]byte("unsubscribed\n"))
	case MsgServerError:
		http.Error(w, msg, http.StatusInternalServerError)
	default:
		http.Error(w, msg, http.StatusBadRequest)
	}
}

// unsubscribe verifies the path token and removes its address. msg is empty
// on success, otherwise the message to show.
func (s *Server) unsubscribe(r *http.Request) (email, msg string) {
	email, err := s.tokens.Verify(r.PathValue("token"))
	if errors.Is(err, token.ErrExpired) {
		return "", MsgTokenExpired
	}
	if err != nil {
		return "", MsgTokenInvalid
	}

	if err := s.subscribers.Remove(r.Context(), email); err != nil {
		logger.Error("Failed to remove subscriber", nil, err)
		return "", MsgServerError
	}

	s.metrics.IncrCounter("web.unsubscribed")
	logger.Info("Subscriber removed", nil)
	return email, ""
}

type healthResponse struct {
	Status      string                 `json:"status"`
	Time        time.Time              `json:"time"`
	Subscribers int                    `json:"subscribers"`
	Metrics     logger.MetricsSnapshot `json:"metrics"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Time:    time.Now().UTC(),
		Metrics: s.metrics.Snapshot(),
	}

	status := http.StatusOK
	n, err := s.subscribers.Count(r.Context())
	if err != nil {
		logger.Error("Health check failed", nil, err)
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	resp.Subscribers = n

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		logger.Error("Failed to render page", logger.Fields{"template": name}, err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if strings.HasPrefix(path, "/unsubscribe/") {
			path = "/unsubscribe/{token}"
		}
		logger.Debug("HTTP request", logger.Fields{
			"method":   r.Method,
			"path":     path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
	})
}
