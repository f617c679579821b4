// Package server exposes the engine over HTTP.
//
//	GET  /healthz
//	POST /v1/metrics                     compute the metrics of a posted portfolio
//	POST /v1/curve                       compute the equity curve of a posted portfolio
//	POST /v1/validate                    list the sales that would be dropped
//	GET  /v1/portfolios                  list stored portfolios
//	GET  /v1/portfolios/{id}/metrics     compute a stored portfolio, ?price.CODE=v overrides prices
//	GET  /v1/portfolios/{id}/curve       equity curve of a stored portfolio, ?days=&on=&period=
//	POST /v1/portfolios/{id}/transactions
//	PUT  /v1/portfolios/{id}/holdings
//
// Computations never fail on a readable body: bad records are coerced or
// dropped the way the engine does it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// maxBody caps request bodies.
const maxBody = 8 << 20

// Store is the part of the portfolio store the server needs.
type Store interface {
	Portfolios(ctx context.Context) ([]store.Portfolio, error)
	Load(ctx context.Context, id int64) (costbasis.RawInput, error)
	AddTransaction(ctx context.Context, id int64, tx costbasis.RawTransaction) error
	UpsertHolding(ctx context.Context, id int64, h costbasis.RawHolding) error
}

// Server serves computations.
type Server struct {
	engine *costbasis.Engine
	store  Store // nil when no database is configured
	log    zerolog.Logger
}

// New creates a Server. st can be nil, the portfolio routes then answer 404.
func New(engine *costbasis.Engine, st Store, log zerolog.Logger) *Server {
	return &Server{engine: engine, store: st, log: log}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/metrics", s.handleMetrics)
		r.Post("/curve", s.handleCurve)
		r.Post("/validate", s.handleValidate)

		r.Route("/portfolios", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.handlePortfolios)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/metrics", s.handlePortfolioMetrics)
				r.Get("/curve", s.handlePortfolioCurve)
				r.Post("/transactions", s.handleAddTransaction)
				r.Put("/holdings", s.handleUpsertHolding)
			})
		})
	})
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", addr).Msg("server starting")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.log.Info().Msg("server shutting down")
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdown)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			s.writeError(w, http.StatusNotFound, "no portfolio store configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return false
	}
	return true
}

// writeJSON sends v with status. The header is already out when encoding
// fails, so the failure is only logged.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Int("status", status).Msg("cannot write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
