package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/", s.welcome)
	r.Get("/healthz", s.health)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}
	if s.deps.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.deps.UploadDir))))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.With(s.deps.Limiter.Middleware).Post("/login", s.login)
		r.Post("/facebook-login", s.facebookLogin)
		r.Post("/google-login", s.googleLogin)
		r.Post("/logout", s.logout)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(s.requireIdentity)
		r.Get("/profile", s.getProfile)
		r.Put("/profile", s.updateProfile)
		r.Post("/profile/photo", s.uploadPhoto)
		r.Put("/profile/password", s.changePassword)
		r.Put("/profile/photo-url", s.updatePhotoURL)
	})

	r.Route("/crypto", func(r chi.Router) {
		r.Use(s.requireIdentity)
		r.Get("/tickers", s.tickers)
		r.Get("/ticker/{symbol}", s.ticker)
		r.Get("/chart/{symbol}", s.chart)
	})

	r.Route("/weather", func(r chi.Router) {
		r.With(s.requireIdentity).Get("/temperature", s.temperature)
		r.Get("/stations", s.stations)
		r.Get("/current", s.currentWeather)
		r.Get("/station/{id}", s.station)
	})

	return r
}

func (s *Server) welcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageBody{Message: "Welcome to the Authentication API"})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.DB.PingContext(r.Context()); err != nil {
		s.logger.Error(r.Context(), "database ping failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Database connection failed"})
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Database connection successful"})
}
