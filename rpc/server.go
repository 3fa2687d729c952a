// Package rpc serves the read-only JSON query API over the contract runtime.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"questchain/core"
	"questchain/native/common"
	"questchain/observability/metrics"
	"questchain/storage/archive"
)

const (
	requestIDHeader = "X-Request-ID"
	readTimeout     = 10 * time.Second
	sweepInterval   = time.Minute
)

type ctxKey struct{}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Config controls the query listener.
type Config struct {
	Address       string
	RatePerSecond float64
	Burst         int
	Auth          AuthConfig
}

// Server exposes contract views over HTTP.
type Server struct {
	runtime *core.Runtime
	logger  *slog.Logger
	limiter *RateLimiter
	auth    *Authenticator
	archive *archive.Archive
	handler http.Handler
	http    *http.Server
}

// NewServer builds the router. Logging defaults to slog.Default.
func NewServer(rt *core.Runtime, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		runtime: rt,
		logger:  logger.With(slog.String("component", "rpc")),
		limiter: NewRateLimiter(cfg.RatePerSecond, cfg.Burst),
	}
	s.auth = NewAuthenticator(cfg.Auth, s.logger)
	s.handler = otelhttp.NewHandler(s.routes(), "questchain-query")
	s.http = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: readTimeout,
	}
	return s
}

// SetArchive enables /v1/events/history. Call before serving.
func (s *Server) SetArchive(a *archive.Archive) { s.archive = a }

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler { return s.handler }

// Serve listens until ctx is cancelled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("query api listening", slog.String("address", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ticker.C:
			s.limiter.Sweep()
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), readTimeout)
			defer cancel()
			if err := s.http.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return nil
		}
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestContext)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v chi.Router) {
		v.Use(s.limiter.Middleware)
		v.Use(s.auth.Middleware)
		v.Get("/status", s.handleStatus)
		v.Get("/token", s.handleToken)
		v.Get("/accounts/{address}/balance", s.handleBalance)
		v.Get("/accounts/{address}/achievements", s.handleAchievementsOf)
		v.Get("/staking", s.handleStakingConfig)
		v.Get("/staking/{address}", s.handleStaker)
		v.Get("/energy/{address}", s.handleEnergy)
		v.Get("/leaderboard/{period}", s.handleLeaderboard)
		v.Get("/leaderboard/{period}/{address}", s.handlePlayerScore)
		v.Get("/timeattack/{puzzle}/{period}", s.handleTimeAttack)
		v.Get("/bridge", s.handleBridgeConfig)
		v.Get("/bridge/messages/{id}", s.handleBridgeMessage)
		v.Get("/guild", s.handleGuild)
		v.Get("/tournament", s.handleTournament)
		v.Get("/achievements/{id}", s.handleAchievement)
		v.Get("/puzzles/{id}/{address}", s.handlePuzzleProgress)
		v.Get("/events", s.handleEvents)
		v.Get("/events/stream", s.handleEventStream)
		v.With(s.auth.RequireScope(ScopeEventHistory)).Get("/events/history", s.handleEventHistory)
	})
	return r
}

// requestContext tags each request with an id and records its outcome.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.Contracts().ObserveRequest(route, rec.status)
		s.logger.Debug("query served",
			slog.String("request_id", id),
			slog.String("route", route),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
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

// Hijack lets websocket upgrades through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeViewError maps contract errors onto HTTP statuses.
func writeViewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrNotInitialized), errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
