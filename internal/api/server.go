// Package api serves a loaded corpus read-only over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/pbaille/fefe/internal/analyzer"
	"github.com/pbaille/fefe/internal/domain"
	"go.uber.org/zap"
)

// Corpus is the read side of the article store
type Corpus interface {
	Articles() []domain.Article
	Timeline() []domain.Article
	Months() []domain.MonthKey
}

// Server handles HTTP requests for the corpus browser
type Server struct {
	corpus   Corpus
	analyzer *analyzer.Analyzer
	addr     string
	logger   *zap.Logger
}

// New creates a new API server. The corpus must not be mutated while serving.
func New(corpus Corpus, a *analyzer.Analyzer, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{corpus: corpus, analyzer: a, addr: addr, logger: logger}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /articles", s.listArticles)
	mux.HandleFunc("GET /months", s.listMonths)
	mux.HandleFunc("GET /stats", s.stats)
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listArticles pages through the timeline, newest first. An optional tag
// parameter filters by label ("untagged" selects articles without real tags).
func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}
	tag := r.URL.Query().Get("tag")

	timeline := s.corpus.Timeline()
	matched := make([]domain.Article, 0, len(timeline))
	for i := len(timeline) - 1; i >= 0; i-- {
		a := timeline[i]
		switch {
		case tag == "":
		case tag == domain.Untagged:
			if !a.Classified() || !a.Tags.IsUntagged() {
				continue
			}
		case !a.Tags.Has(tag):
			continue
		}
		matched = append(matched, a)
	}

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"articles": matched[offset:end],
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) listMonths(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"months": s.corpus.Months(),
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.analyzer.Report(s.corpus.Articles()))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
