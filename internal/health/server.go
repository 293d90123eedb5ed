package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Server exposes the unauthenticated HTTP liveness probe.
type Server struct {
	srv   *http.Server
	check func(ctx context.Context) error
	log   zerolog.Logger
}

// NewServer builds the probe server. check is the store round trip shared
// with the /health command.
func NewServer(port int, check func(ctx context.Context) error, logger zerolog.Logger) *Server {
	s := &Server{
		check: check,
		log:   logger.With().Str("component", "health").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Run serves the probe until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	s.log.Info().Str("addr", s.srv.Addr).Msg("health endpoint listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.check(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("liveness probe failed")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "database connection failed")
		return
	}
	io.WriteString(w, "OK")
}
