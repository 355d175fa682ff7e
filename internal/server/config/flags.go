package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s", "-t", "-w", "-f", "-o", "-n", "-m", "-x", "-l",
	"-u", "-p", "-b", "-g", "-e", "-r", "-q", "-i", "-k",
}

// parseFlags populates Config from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-w int      upstream request timeout, seconds
//	-f string   Facebook Graph API base URL
//	-o string   Google OAuth client ID
//	-n string   Binance API base URL
//	-m string   data.gov.sg API base URL
//	-x string   photo storage backend: local or s3
//	-l string   local upload directory
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-r string   Redis address for the revocation cache
//	-q int      login attempts per minute per IP
//	-i int      blacklist prune interval, minutes
//	-k string   log backend: slog or zap
//
// os.Args is first narrowed with flagx.FilterArgs so that -c/-config and
// unrelated flags do not trip the parser.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	upstreamTimeout := fs.Int("w", int(config.UpstreamTimeout.Seconds()), "upstream timeout (in seconds)")

	fs.StringVar(&config.FacebookGraphURL, "f", config.FacebookGraphURL, "Facebook Graph API URL")
	fs.StringVar(&config.GoogleClientID, "o", config.GoogleClientID, "Google OAuth client ID")
	fs.StringVar(&config.BinanceBaseURL, "n", config.BinanceBaseURL, "Binance API URL")
	fs.StringVar(&config.WeatherBaseURL, "m", config.WeatherBaseURL, "data.gov.sg API URL")
	fs.StringVar(&config.PhotoStorage, "x", config.PhotoStorage, "photo storage backend (local|s3)")
	fs.StringVar(&config.UploadDir, "l", config.UploadDir, "local upload directory")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address")
	fs.IntVar(&config.LoginRateLimit, "q", config.LoginRateLimit, "login attempts per minute per IP")

	pruneInterval := fs.Int("i", int(config.PruneInterval.Minutes()), "blacklist prune interval (in minutes)")

	fs.StringVar(&config.LogBackend, "k", config.LogBackend, "log backend (slog|zap)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Only explicitly passed duration flags override, so that sub-minute
	// values from JSON or env are not rounded away.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		case "w":
			config.UpstreamTimeout = time.Duration(*upstreamTimeout) * time.Second
		case "i":
			config.PruneInterval = time.Duration(*pruneInterval) * time.Minute
		}
	})
}
