package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type fakeAuth struct {
	mu sync.Mutex

	token     string
	err       error
	logoutErr error

	registered []string
	revoked    []string
	provider   string
}

func (f *fakeAuth) Register(_ context.Context, email, _ string, _ *string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, email)
	return f.token, f.err
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (string, error) {
	return f.token, f.err
}

func (f *fakeAuth) FederatedLogin(_ context.Context, provider, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provider = provider
	return f.token, f.err
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logoutErr != nil {
		return f.logoutErr
	}
	f.revoked = append(f.revoked, token)
	return nil
}

// fakeGuard accepts exactly one token.
type fakeGuard struct {
	valid string
	id    *auth.Identity
	err   error
}

func (g *fakeGuard) Authenticate(_ context.Context, token string) (*auth.Identity, error) {
	if g.err != nil {
		return nil, g.err
	}
	if token != g.valid {
		return nil, common.ErrorUnauthorized
	}
	return g.id, nil
}

type fakeProfiles struct {
	user *models.User
	err  error

	gotEmail    string
	gotUpdate   models.ProfileUpdate
	gotURL      string
	gotFilename string
	gotBody     string
	gotCurrent  string
}

func (f *fakeProfiles) GetProfile(_ context.Context, id *auth.Identity) (*models.User, error) {
	f.gotEmail = id.Email
	return f.user, f.err
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, email string, upd models.ProfileUpdate) (*models.User, error) {
	f.gotEmail, f.gotUpdate = email, upd
	return f.user, f.err
}

func (f *fakeProfiles) ChangePassword(_ context.Context, email, current, _ string) error {
	f.gotEmail, f.gotCurrent = email, current
	return f.err
}

func (f *fakeProfiles) UpdatePhotoURL(_ context.Context, email, photoURL string) (*models.User, error) {
	f.gotEmail, f.gotURL = email, photoURL
	return f.user, f.err
}

func (f *fakeProfiles) UploadPhoto(_ context.Context, email, filename string, r io.Reader) (*models.User, error) {
	b, _ := io.ReadAll(r)
	f.gotEmail, f.gotFilename, f.gotBody = email, filename, string(b)
	return f.user, f.err
}

type fakeCrypto struct {
	list  *services.TickerList
	err   error
	gotQ  services.TickerQuery
	chart *services.Chart

	gotInterval string
	gotLimit    int
}

func (f *fakeCrypto) Tickers(_ context.Context, q services.TickerQuery) (*services.TickerList, error) {
	f.gotQ = q
	return f.list, f.err
}

func (f *fakeCrypto) Ticker(_ context.Context, symbol string) (*services.Ticker, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.Ticker{Symbol: strings.ToUpper(symbol)}, nil
}

func (f *fakeCrypto) Chart(_ context.Context, _, interval string, limit int) (*services.Chart, error) {
	f.gotInterval, f.gotLimit = interval, limit
	return f.chart, f.err
}

type fakeWeather struct {
	err error
}

func (f *fakeWeather) Temperature(context.Context) (*services.TemperatureReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.TemperatureReport{Timestamp: "t", Stations: []services.StationTemperature{{StationID: "S1", Temperature: 30}}}, nil
}

func (f *fakeWeather) Stations(context.Context) ([]services.Station, error) {
	return []services.Station{{ID: "S1"}}, f.err
}

func (f *fakeWeather) Current(context.Context) (*services.WeatherData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.WeatherData{Timestamp: "t"}, nil
}

func (f *fakeWeather) Station(_ context.Context, id string) (*services.StationReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id != "S1" {
		return nil, common.ErrorNotFound
	}
	return &services.StationReport{Station: services.Station{ID: id}, Timestamp: "t"}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type recordedRequest struct {
	method, route string
	status        int
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	events   map[string]int
}

func (r *fakeRecorder) ObserveHTTP(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, recordedRequest{method, route, status})
}

func (r *fakeRecorder) AuthEvent(event, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = map[string]int{}
	}
	r.events[event+"/"+outcome]++
}

const goodToken = "good-token"

type testEnv struct {
	auth     *fakeAuth
	guard    *fakeGuard
	profiles *fakeProfiles
	crypto   *fakeCrypto
	weather  *fakeWeather
	recorder *fakeRecorder
	deps     Deps
}

func newTestEnv() *testEnv {
	e := &testEnv{
		auth:     &fakeAuth{token: "issued"},
		guard:    &fakeGuard{valid: goodToken, id: &auth.Identity{Email: "a@x.com", DisplayName: "Ann"}},
		profiles: &fakeProfiles{user: &models.User{ID: 1, Email: "a@x.com"}},
		crypto:   &fakeCrypto{list: &services.TickerList{}},
		weather:  &fakeWeather{},
		recorder: &fakeRecorder{},
	}
	e.deps = Deps{
		Auth:     e.auth,
		Guard:    e.guard,
		Profiles: e.profiles,
		Crypto:   e.crypto,
		Weather:  e.weather,
		DB:       fakePinger{},
		Recorder: e.recorder,
	}
	return e
}

func (e *testEnv) handler() http.Handler {
	return NewServer(":0", logging.Nop(), e.deps).Router()
}

func do(h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func bearer(tok string) []string {
	return []string{"Authorization", "Bearer " + tok, "Content-Type", "application/json"}
}
