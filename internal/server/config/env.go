package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// dotEnvFile is read into the process environment when it exists.
var dotEnvFile = ".env"

// loadDotEnv copies dotEnvFile into the environment. Variables that are
// already set win. A missing file is not an error.
func loadDotEnv() {
	if _, err := os.Stat(dotEnvFile); err != nil {
		return
	}
	if err := godotenv.Load(dotEnvFile); err != nil {
		panic(err)
	}
}

// parseEnv overlays Config with environment variables. Durations are Go
// duration strings ("30m"); LOGIN_RATE_LIMIT is an integer. Malformed
// values panic like malformed flags do.
func parseEnv(config *Config) {
	envString("ADDRESS", &config.EndpointAddrHTTP)
	envString("DATABASE_DSN", &config.DatabaseDSN)
	envString("SECRET_KEY", &config.SecretKey)
	envDuration("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	envDuration("UPSTREAM_TIMEOUT", &config.UpstreamTimeout)
	envString("FACEBOOK_GRAPH_URL", &config.FacebookGraphURL)
	envString("GOOGLE_CLIENT_ID", &config.GoogleClientID)
	envString("BINANCE_BASE_URL", &config.BinanceBaseURL)
	envString("WEATHER_BASE_URL", &config.WeatherBaseURL)
	envString("PHOTO_STORAGE", &config.PhotoStorage)
	envString("UPLOAD_DIR", &config.UploadDir)
	envString("S3_ROOT_USER", &config.S3RootUser)
	envString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("S3_BUCKET", &config.S3Bucket)
	envString("S3_REGION", &config.S3Region)
	envString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	envString("REDIS_ADDR", &config.RedisAddr)
	envInt("LOGIN_RATE_LIMIT", &config.LoginRateLimit)
	envDuration("PRUNE_INTERVAL", &config.PruneInterval)
	envString("LOG_BACKEND", &config.LogBackend)
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func envDuration(name string, dst *time.Duration) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
