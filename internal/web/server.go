package web

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/pmprep/internal/logger"
	"github.com/hpungsan/pmprep/internal/questionstore"
)

// APIPrefix is where the question store API is mounted. Clients configure
// catalog_url to point at it.
const APIPrefix = "/api"

// NewServer creates the HTTP server for the question store.
func NewServer(store *questionstore.Store, log *logger.Logger, bind string, port int) *http.Server {
	log = logger.OrNop(log).With("component", "web")
	h := &Handlers{
		store:    store,
		log:      log,
		renderer: NewRenderer(),
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           NewHandler(h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed, wrapped handler for h.
func NewHandler(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET "+APIPrefix+"/questions", h.HandleListQuestions)
	mux.HandleFunc("GET "+APIPrefix+"/questions/{id}", h.HandleGetQuestion)
	mux.HandleFunc("GET "+APIPrefix+"/questions/{id}/html", h.HandleQuestionHTML)
	mux.HandleFunc("POST "+APIPrefix+"/questions/{id}/toggle", h.HandleToggle)
	mux.HandleFunc("GET "+APIPrefix+"/categories", h.HandleCategories)
	mux.HandleFunc("GET "+APIPrefix+"/subcategories", h.HandleSubCategories)

	mux.HandleFunc("GET /questions/{id}", h.HandleQuestionPage)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	return securityHeaders(requestLog(h.log, mux))
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLog(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", time.Since(start))
	})
}

// Run starts the HTTP server and shuts it down gracefully on SIGINT/SIGTERM
// or when ctx is cancelled.
func Run(ctx context.Context, srv *http.Server, log *logger.Logger) error {
	log = logger.OrNop(log)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("question store running", "url", "http://"+srv.Addr+APIPrefix)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network", "addr", srv.Addr)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
