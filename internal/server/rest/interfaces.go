package rest

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type AuthService interface {
	Register(ctx context.Context, email, password string, fullName *string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	FederatedLogin(ctx context.Context, provider, providerToken string) (string, error)
	Logout(ctx context.Context, token string) error
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Identity, error)
}

type ProfileService interface {
	GetProfile(ctx context.Context, id *auth.Identity) (*models.User, error)
	UpdateProfile(ctx context.Context, email string, upd models.ProfileUpdate) (*models.User, error)
	ChangePassword(ctx context.Context, email, current, next string) error
	UpdatePhotoURL(ctx context.Context, email, photoURL string) (*models.User, error)
	UploadPhoto(ctx context.Context, email, filename string, r io.Reader) (*models.User, error)
}

type CryptoService interface {
	Tickers(ctx context.Context, q services.TickerQuery) (*services.TickerList, error)
	Ticker(ctx context.Context, symbol string) (*services.Ticker, error)
	Chart(ctx context.Context, symbol, interval string, limit int) (*services.Chart, error)
}

type WeatherService interface {
	Temperature(ctx context.Context) (*services.TemperatureReport, error)
	Stations(ctx context.Context) ([]services.Station, error)
	Current(ctx context.Context) (*services.WeatherData, error)
	Station(ctx context.Context, id string) (*services.StationReport, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Recorder receives request and auth metrics; *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
	AuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveHTTP(string, string, int, time.Duration) {}
func (nopRecorder) AuthEvent(string, string)                       {}
