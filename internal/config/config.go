package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Luca1234105/torren/internal/providers"
	"github.com/Luca1234105/torren/internal/services/debrid"
	"github.com/Luca1234105/torren/internal/services/resolution"
	"github.com/Luca1234105/torren/internal/services/streams"
)

// EnvPrefix is the prefix of every environment variable read by the server.
const EnvPrefix = "TORREN"

// Default configuration values.
const (
	defaultHost               = "0.0.0.0"
	defaultPort               = 7002
	defaultLogLevel           = "info"
	defaultLogFormat          = "text"
	defaultMaxActiveResources = 1
	defaultRateLimit          = 5.0
	defaultRateBurst          = 20
)

// Config is the process configuration. It is read-only after startup.
type Config struct {
	// HTTP server
	Host string
	Port int

	// Logging
	LogLevel  string
	LogFormat string

	// Remote endpoints
	RealDebridURL string
	TorBoxURL     string
	TorrentioURL  string

	// Per-call timeouts
	RequestTimeout  time.Duration
	CleanupTimeout  time.Duration
	UpstreamTimeout time.Duration

	// Batch limits
	MaxCandidates      int
	MaxActiveResources int64

	// Per-IP inbound rate limiting, 0 disables
	RateLimit float64
	RateBurst int

	// Optional PostgreSQL DSN for the orphan ledger
	DatabaseURL string

	// Bearer token for operator endpoints, empty disables them
	OperatorToken string
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.CleanupTimeout <= 0 {
		return errors.New("cleanup timeout must be positive")
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("upstream timeout must be positive")
	}
	if c.MaxCandidates <= 0 {
		return errors.New("max candidates must be positive")
	}
	if c.MaxActiveResources <= 0 {
		return errors.New("max active resources must be positive")
	}
	if c.RateLimit < 0 {
		return errors.New("rate limit cannot be negative")
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return errors.New("rate burst must be positive when rate limiting is enabled")
	}
	return nil
}

// SetupFlags sets up flags for the server command.
func SetupFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.String("host", defaultHost, "HTTP listen host")
	flags.Int("port", defaultPort, "HTTP listen port")
	flags.String("log-level", defaultLogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-format", defaultLogFormat, "Log format (text, json)")
	flags.String("realdebrid-url", debrid.DefaultRealDebridURL, "Real-Debrid API base URL")
	flags.String("torbox-url", debrid.DefaultTorBoxURL, "TorBox API base URL")
	flags.String("torrentio-url", providers.DefaultTorrentioURL, "Upstream Torrentio addon URL")
	flags.Duration("request-timeout", debrid.DefaultRequestTimeout, "Timeout of a single debrid API call")
	flags.Duration("cleanup-timeout", resolution.DefaultCleanupTimeout, "Timeout of the compensating delete")
	flags.Duration("upstream-timeout", providers.DefaultUpstreamTimeout, "Timeout of the upstream stream fetch")
	flags.Int("max-candidates", streams.DefaultMaxCandidates, "Maximum streams checked per request")
	flags.Int64("max-active-resources", defaultMaxActiveResources, "Maximum live remote resources per debrid account")
	flags.Float64("rate-limit", defaultRateLimit, "Requests per second allowed per client IP (0 = unlimited)")
	flags.Int("rate-burst", defaultRateBurst, "Burst size for the per-IP rate limit")
	flags.String("database-url", "", "PostgreSQL DSN for the orphaned resource ledger (empty to disable)")
	flags.String("operator-token", "", "Bearer token for operator endpoints such as /api/orphans (empty to disable)")
}

// BindFlags binds server flags and TORREN_* environment variables to viper.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := []string{
		"host", "port", "log-level", "log-format",
		"realdebrid-url", "torbox-url", "torrentio-url",
		"request-timeout", "cleanup-timeout", "upstream-timeout",
		"max-candidates", "max-active-resources",
		"rate-limit", "rate-burst", "database-url", "operator-token",
	}

	for _, flag := range flags {
		if err := v.BindPFlag(flag, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}

	return nil
}

// LoadDotEnv loads environment variables from the given files, or .env
// when none are given. Missing files are ignored and existing variables
// are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load loads the server configuration from viper.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Host:               v.GetString("host"),
		Port:               v.GetInt("port"),
		LogLevel:           strings.ToLower(v.GetString("log-level")),
		LogFormat:          strings.ToLower(v.GetString("log-format")),
		RealDebridURL:      v.GetString("realdebrid-url"),
		TorBoxURL:          v.GetString("torbox-url"),
		TorrentioURL:       v.GetString("torrentio-url"),
		RequestTimeout:     v.GetDuration("request-timeout"),
		CleanupTimeout:     v.GetDuration("cleanup-timeout"),
		UpstreamTimeout:    v.GetDuration("upstream-timeout"),
		MaxCandidates:      v.GetInt("max-candidates"),
		MaxActiveResources: v.GetInt64("max-active-resources"),
		RateLimit:          v.GetFloat64("rate-limit"),
		RateBurst:          v.GetInt("rate-burst"),
		DatabaseURL:        v.GetString("database-url"),
		OperatorToken:      v.GetString("operator-token"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
