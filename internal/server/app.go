// Package server wires the gophauth components together and runs them until
// the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/netx"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/federated"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/blacklist"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/rest"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/redis/go-redis/v9"
)

const (
	dbConnectWait        = 30 * time.Second
	limiterSweepInterval = time.Minute
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	pruner  *services.RevocationPruner
	limiter *rest.IPRateLimiter
	server  *rest.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, nil)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := dbx.Open(ctx, repomanager.DriverName, c.DatabaseDSN, dbConnectWait)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var opts []repomanager.Option
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		opts = append(opts, repomanager.WithBlacklistDecorator(func(next blacklist.Repository) blacklist.Repository {
			return blacklist.NewCached(next, app.redis, logger)
		}))
	}
	rm := repomanager.NewPostgresRepositoryManager(opts...)

	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	m := metrics.New()
	upstream := func(name string) *netx.Client {
		return netx.NewClient(name, c.UpstreamTimeout, logger, netx.WithObserver(m.Upstream))
	}

	providers := map[string]federated.Provider{
		"facebook": federated.NewFacebookProvider(upstream("facebook"), c.FacebookGraphURL),
	}
	if c.GoogleClientID != "" {
		providers["google"] = federated.NewGoogleProvider(c.GoogleClientID)
	}

	photos, err := newPhotoStore(ctx, c)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("photo storage init error: %w", err)
	}

	codec := auth.NewTokenCodec(c.SecretKey, c.AccessTokenValidityDuration)
	hasher := auth.NewPasswordHasher(0)

	app.pruner = services.NewRevocationPruner(db, rm, c.PruneInterval, logger)
	app.limiter = rest.NewIPRateLimiter(c.LoginRateLimit, logger)

	deps := rest.Deps{
		Auth:     services.NewAuthService(db, rm, codec, hasher, providers),
		Guard:    services.NewSessionGuard(db, rm, codec),
		Profiles: services.NewProfileService(db, rm, hasher, photos),
		Crypto:   services.NewCryptoService(upstream("binance"), c.BinanceBaseURL),
		Weather:  services.NewWeatherService(upstream("weather"), c.WeatherBaseURL),
		DB:       db,
		Recorder: m,
		Metrics:  m.Handler(),
		Limiter:  app.limiter,
	}
	if local, ok := photos.(*services.LocalPhotoStore); ok {
		deps.UploadDir = local.Dir()
	}
	app.server = rest.NewServer(c.EndpointAddrHTTP, logger, deps)

	return app, nil
}

func newPhotoStore(ctx context.Context, c *config.Config) (services.PhotoStore, error) {
	switch c.PhotoStorage {
	case "s3":
		return services.NewS3PhotoStore(ctx, c)
	case "local", "":
		return services.NewLocalPhotoStore(c.UploadDir)
	default:
		return nil, fmt.Errorf("unknown photo storage %q", c.PhotoStorage)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
		cancelFunc()
	}
}

func (app *App) close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(context.Background(), "redis close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}
}

// Run blocks until a termination signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "address", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.pruner.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		app.limiter.Cleanup(ctx, limiterSweepInterval)
	}()

	wg.Wait()
	app.close()
	app.logger.Info(context.Background(), "App stopped")
}
