// Package rest exposes the services over HTTP/JSON with a chi router.
package rest

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/go-playground/validator/v10"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the handlers call. Metrics, Limiter and
// UploadDir are optional.
type Deps struct {
	Auth     AuthService
	Guard    Authenticator
	Profiles ProfileService
	Crypto   CryptoService
	Weather  WeatherService
	DB       Pinger

	Recorder  Recorder
	Metrics   http.Handler
	Limiter   *IPRateLimiter
	UploadDir string
}

type Server struct {
	address  string
	logger   logging.Logger
	deps     Deps
	validate *validator.Validate
}

func NewServer(address string, l logging.Logger, d Deps) *Server {
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)

	return &Server{
		address:  address,
		logger:   l.With("module", "http_server"),
		deps:     d,
		validate: v,
	}
}

// fieldName reports fields in validation messages by their wire name.
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "query"} {
		if name, _, _ := strings.Cut(f.Tag.Get(key), ","); name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
