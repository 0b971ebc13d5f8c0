// Package server exposes the queue's boundary operations over HTTP.
// It is a thin adapter: every route maps onto one queue operation and
// translates its errors into distinct status codes.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/partho5/CryptoXPoster/internal/queue"
	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

// QueueAPI is the slice of the queue the HTTP adapter needs.
type QueueAPI interface {
	Ingest(ctx context.Context, batch []queue.Item) (int, error)
	ConsumeNext(ctx context.Context, pub queue.Publisher) (*queue.Item, error)
	ListAll(ctx context.Context) ([]queue.Item, error)
}

// ScrapeFunc triggers one scraping run and returns the candidate items.
type ScrapeFunc func(ctx context.Context) ([]queue.Item, error)

type Config struct {
	Address  string
	AuthCode string
	Pprof    bool
}

func (c Config) withDefaults() Config {
	if c.Address == "" {
		c.Address = "127.0.0.1:8000"
	}
	return c
}

// Server manages lifecycle for the HTTP listener.
type Server struct {
	mu  sync.Mutex
	log logx.Logger
	srv *http.Server
	ln  net.Listener

	cfg    Config
	q      QueueAPI
	pub    queue.Publisher
	scrape ScrapeFunc
}

func New(cfg Config, q QueueAPI, pub queue.Publisher, scrape ScrapeFunc, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{cfg: cfg.withDefaults(), q: q, pub: pub, scrape: scrape, log: log}
}

// Addr returns the bound address (useful when configured with port 0).
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.ln = ln
	s.srv = srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", logx.Err(err))
		}
	}()
	s.log.Info("http server listening", logx.String("addr", ln.Addr().String()))
	_ = ctx
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()

	if srv == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		_ = srv.Close()
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /scrape", s.auth(s.handleScrape))
	mux.HandleFunc("GET /articles", s.auth(s.handleArticles))
	mux.HandleFunc("GET /process", s.auth(s.handleProcess))
	if s.cfg.Pprof {
		mux.HandleFunc("GET /debug/pprof/", pprof.Index)
		mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// auth guards mutating endpoints with the shared auth code, compared in
// constant time. An unset code rejects everything rather than exposing
// the endpoints wide open.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthCode == "" {
			writeJSON(w, http.StatusServiceUnavailable, statusMsg{"error", "auth code not configured"})
			return
		}
		got := r.URL.Query().Get("auth_code")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AuthCode)) != 1 {
			s.log.Warn("unauthorized access attempt",
				logx.String("path", r.URL.Path),
				logx.String("remote", r.RemoteAddr))
			writeJSON(w, http.StatusUnauthorized, statusMsg{"error", "invalid authentication code"})
			return
		}
		next(w, r)
	}
}

type statusMsg struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type scrapeResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Count     int    `json:"count"`
	Timestamp string `json:"timestamp"`
}

type processResponse struct {
	Status  string     `json:"status"`
	Message string     `json:"message"`
	Article queue.Item `json:"article"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, statusMsg{"error", "not found"})
		return
	}
	writeJSON(w, http.StatusOK, statusMsg{"online", "CryptoXPoster API is running"})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	items, err := s.scrape(r.Context())
	if err != nil {
		s.log.Error("scraping failed", logx.Err(err))
		writeJSON(w, http.StatusInternalServerError, statusMsg{"error", "scraping failed"})
		return
	}
	if _, err := s.q.Ingest(r.Context(), items); err != nil {
		s.writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scrapeResponse{
		Status:    "success",
		Message:   "Scraping completed successfully",
		Count:     len(items),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	items, err := s.q.ListAll(r.Context())
	if err != nil {
		s.writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	item, err := s.q.ConsumeNext(r.Context(), s.pub)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, processResponse{
			Status:  "success",
			Message: "Article processed successfully",
			Article: *item,
		})
	case errors.Is(err, queue.ErrEmpty):
		writeJSON(w, http.StatusNotFound, statusMsg{"error", "No articles available to process"})
	default:
		s.writeQueueError(w, err)
	}
}

// writeQueueError maps queue errors onto distinct statuses without
// leaking storage internals.
func (s *Server) writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrLockTimeout):
		writeJSON(w, http.StatusServiceUnavailable, statusMsg{"error", "store busy, retry later"})
	case errors.Is(err, queue.ErrPublishFailed):
		writeJSON(w, http.StatusBadGateway, statusMsg{"error", "publishing failed, article kept for retry"})
	default:
		s.log.Error("store operation failed", logx.Err(err))
		writeJSON(w, http.StatusInternalServerError, statusMsg{"error", "internal storage error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
