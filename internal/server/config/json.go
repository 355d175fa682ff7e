package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations use
// timex.Duration so that both "30m" and integer nanoseconds are accepted.
// Empty fields leave the target Config untouched, so a file only needs to
// name the settings it overrides.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	UpstreamTimeout             timex.Duration `json:"upstream_timeout"`
	FacebookGraphURL            string         `json:"facebook_graph_url"`
	GoogleClientID              string         `json:"google_client_id"`
	BinanceBaseURL              string         `json:"binance_base_url"`
	WeatherBaseURL              string         `json:"weather_base_url"`
	PhotoStorage                string         `json:"photo_storage"`
	UploadDir                   string         `json:"upload_dir"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	RedisAddr                   string         `json:"redis_addr"`
	LoginRateLimit              *int           `json:"login_rate_limit"`
	PruneInterval               timex.Duration `json:"prune_interval"`
	LogBackend                  string         `json:"log_backend"`
}

// parseJson overlays values from the file named by -c/-config (or CONFIG).
// Without a path nothing happens. Unreadable files and invalid JSON panic.
func parseJson(config *Config) {
	path := flagx.ConfigPath()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.FacebookGraphURL, c.FacebookGraphURL)
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.BinanceBaseURL, c.BinanceBaseURL)
	setString(&config.WeatherBaseURL, c.WeatherBaseURL)
	setString(&config.PhotoStorage, c.PhotoStorage)
	setString(&config.UploadDir, c.UploadDir)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.LogBackend, c.LogBackend)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.UpstreamTimeout.Duration != 0 {
		config.UpstreamTimeout = c.UpstreamTimeout.Duration
	}
	if c.PruneInterval.Duration != 0 {
		config.PruneInterval = c.PruneInterval.Duration
	}
	if c.LoginRateLimit != nil {
		config.LoginRateLimit = *c.LoginRateLimit
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
