package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadiminshakov/alertbridge/internal/services/execution"
	"go.uber.org/zap"
)

const maxPayloadBytes = 64 << 10

type webhookHandler interface {
	Handle(ctx context.Context, payload []byte) execution.Result
}

// Info describes the running instance on the index page.
type Info struct {
	Platform string
	Symbol   string
	Leverage int
}

// Server exposes the webhook endpoint, health, an info page and Prometheus metrics.
type Server struct {
	Addr     string
	Engine   webhookHandler
	Gatherer prometheus.Gatherer
	Info     Info

	logger *zap.Logger
	now    func() time.Time
}

// NewServer creates a new web server instance. gatherer may be nil, then /metrics is not served.
func NewServer(addr string, engine webhookHandler, gatherer prometheus.Gatherer, info Info, logger *zap.Logger) *Server {
	return &Server{
		Addr:     addr,
		Engine:   engine,
		Gatherer: gatherer,
		Info:     info,
		logger:   logger,
		now:      time.Now,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/webhook", s.handleWebhook)
	if s.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("webhook server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"status":  string(execution.StatusError),
			"message": "method not allowed",
		})
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"status":  string(execution.StatusError),
			"message": "payload too large",
		})
		return
	}

	res := s.Engine.Handle(r.Context(), payload)
	s.logger.Info("webhook handled",
		zap.String("status", string(res.Status)),
		zap.Int("code", res.Code),
		zap.String("message", res.Message),
		zap.String("remote", r.RemoteAddr),
	)
	writeJSON(w, res.Code, res)
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "online",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Message:   "alertbridge is running",
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, s.Info); err != nil {
		s.logger.Error("render index", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Fprintf(w, `{"status":"error","message":%q}`, err.Error())
	}
}

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>alertbridge</title>
  <link href="https://fonts.googleapis.com/css2?family=Space+Mono:wght@400;700&display=swap" rel="stylesheet">
  <style>
    body { margin:0; padding:2rem; background:#ffffff; color:#111111; font-family:'Space Mono',monospace; }
    .panel { max-width:40rem; margin:0 auto; padding:1.5rem; background:#f6f6f6; }
    code { color:#4d4d4d; }
  </style>
</head>
<body>
  <div class="panel">
    <h1>alertbridge</h1>
    <p>Platform: <code>{{.Platform}}</code></p>
    <p>Symbol: <code>{{.Symbol}}</code></p>
    <p>Leverage: <code>{{.Leverage}}x</code></p>
    <p>Send alerts with <code>POST /webhook</code>. Health at <code>/health</code>, metrics at <code>/metrics</code>.</p>
  </div>
</body>
</html>
`
