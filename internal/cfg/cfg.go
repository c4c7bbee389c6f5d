// Package cfg holds the server's settings. Every setting is a flag with an
// inline default; flags not given on the command line are filled from
// ORBIT_* environment variables, which may themselves come from a dotenv
// file.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mohammadalshikh/orbit/internal/log"
	"github.com/mohammadalshikh/orbit/internal/store"
	"github.com/mohammadalshikh/orbit/internal/visits"
)

// EnvPrefix is prepended to upper-cased flag names to form env var names.
const EnvPrefix = "ORBIT_"

// Backends for -store-backend.
const (
	BackendJSONBin = "jsonbin"
	BackendS3      = "s3"
)

// Placeholder values shipped in example env files. They count as unset.
const (
	PlaceholderJSONBinKey = "your_jsonbin_api_key_here"
	PlaceholderBinID      = "your_bin_id_here"
	PlaceholderImgBBKey   = "your_imgbb_api_key_here"
)

type App struct {
	EnvFile           string
	HashPassword      bool
	LogJSON           bool
	LogLevel          string
	HTTPPort          int
	AdminPort         int
	EnablePprof       bool
	EnablePyroscope   bool
	EnableTracing     bool
	PyroServer        string
	PyroTenantID      string
	OTLPEndpoint      string
	TraceSample       float64
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int
	RateLimitRPS      float64
	RateLimitBurst    int
	TrustedProxyHops  int
	ShutdownDrain     time.Duration

	StoreBackend      string
	JSONBinEndpoint   string
	JSONBinAccessKey  string
	JSONBinBinID      string
	ImgBBEndpoint     string
	ImgBBAPIKey       string
	AdminPasswordHash string
	ImageMaxBytes     int64
	RemoteTimeout     time.Duration

	S3Bucket        string
	S3DocumentKey   string
	S3ImagePrefix   string
	S3PublicBaseURL string

	SecretsSSMPrefix string
	RedisAddr        string
	RedisKey         string
	ContactRelayURL  string
	SessionTTL       time.Duration
	EditSessionTTL   time.Duration
	MaxSessions      int
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.StringVar(&c.EnvFile, "env-file", ".env", "dotenv file loaded into the environment if present (never overrides real env vars)")
	fs.BoolVar(&c.HashPassword, "hash-password", false, "read a password from stdin, print its admin-password-hash and exit")
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or text (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", 10, "per-ip request refill rate on the public listener")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 30, "per-ip request burst on the public listener")
	fs.IntVar(&c.TrustedProxyHops, "trusted-proxy-hops", 0, "reverse proxies in front of the public listener whose X-Forwarded-For is trusted (0..8)")
	fs.DurationVar(&c.ShutdownDrain, "shutdown-drain", 15*time.Second, "time between failing readiness and closing listeners on shutdown")

	fs.StringVar(&c.StoreBackend, "store-backend", BackendJSONBin, "remote content backend: jsonbin|s3")
	fs.StringVar(&c.JSONBinEndpoint, "jsonbin-endpoint", store.DefaultJSONBinEndpoint, "JSONBin API base url")
	fs.StringVar(&c.JSONBinAccessKey, "jsonbin-access-key", "", "JSONBin access key (X-Access-Key)")
	fs.StringVar(&c.JSONBinBinID, "jsonbin-bin-id", "", "JSONBin bin id holding the document")
	fs.StringVar(&c.ImgBBEndpoint, "imgbb-endpoint", store.DefaultImgBBEndpoint, "ImgBB upload url")
	fs.StringVar(&c.ImgBBAPIKey, "imgbb-api-key", "", "ImgBB API key")
	fs.StringVar(&c.AdminPasswordHash, "admin-password-hash", "", "hex SHA-256 of the edit mode password (see -hash-password)")
	fs.Int64Var(&c.ImageMaxBytes, "image-max-bytes", store.DefaultMaxImageBytes, "largest accepted image upload in bytes")
	fs.DurationVar(&c.RemoteTimeout, "remote-timeout", store.DefaultTimeout, "timeout for each call to the remote store or image host")

	fs.StringVar(&c.S3Bucket, "s3-bucket", "", "bucket for the s3 backend")
	fs.StringVar(&c.S3DocumentKey, "s3-document-key", "content/portfolio.json", "object key of the document for the s3 backend")
	fs.StringVar(&c.S3ImagePrefix, "s3-image-prefix", "uploads", "key prefix for uploaded images on the s3 backend")
	fs.StringVar(&c.S3PublicBaseURL, "s3-public-base-url", "", "public url that serves the s3 bucket (for image links)")

	fs.StringVar(&c.SecretsSSMPrefix, "secrets-ssm-prefix", "", "SSM path prefix to read unset secrets from (empty disables)")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "redis host:port for the atomic log counter (empty keeps the count in the document)")
	fs.StringVar(&c.RedisKey, "redis-key", visits.DefaultRedisKey, "redis key holding the log counter")
	fs.StringVar(&c.ContactRelayURL, "contact-relay-url", "", "form relay url for contact messages (empty disables)")
	fs.DurationVar(&c.SessionTTL, "session-ttl", 30*time.Minute, "idle time after which a viewing session is dropped")
	fs.DurationVar(&c.EditSessionTTL, "edit-session-ttl", 12*time.Hour, "idle time after which a session in edit mode is dropped")
	fs.IntVar(&c.MaxSessions, "max-sessions", 1000, "most live page-load sessions kept in memory")
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("load env file %s: %w", path, err)
	}
	return true, nil
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value overrides env %s", f.Name, key)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s: %v", f.Name, key, err)
			}
		}
	})
}

func unset(v, placeholder string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == placeholder
}

// RemoteConfigured reports whether the remote store has what it needs.
// When it returns false the server runs local-only: bundled content is
// shown and saves are only committed in memory. missing names the settings
// that are absent or still placeholders.
func (c App) RemoteConfigured() (ok bool, missing []string) {
	switch c.StoreBackend {
	case BackendS3:
		if c.S3Bucket == "" {
			missing = append(missing, "s3-bucket")
		}
		if c.S3DocumentKey == "" {
			missing = append(missing, "s3-document-key")
		}
	default:
		if unset(c.JSONBinAccessKey, PlaceholderJSONBinKey) {
			missing = append(missing, "jsonbin-access-key")
		}
		if unset(c.JSONBinBinID, PlaceholderBinID) {
			missing = append(missing, "jsonbin-bin-id")
		}
		if unset(c.ImgBBAPIKey, PlaceholderImgBBKey) {
			missing = append(missing, "imgbb-api-key")
		}
	}
	return len(missing) == 0, missing
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
// Missing remote credentials are not an error; see RemoteConfigured.
func Validate(c App) error {
	var errs []error

	// Ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	// Log levels
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	// grpc exporter wants host:port, no scheme
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if c.IncludeErrorLinks {
		if c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64 {
			errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
		}
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be > 0 and RATE_LIMIT_BURST >= 1 (got %.2f, %d)", c.RateLimitRPS, c.RateLimitBurst))
	}

	if c.TrustedProxyHops < 0 || c.TrustedProxyHops > 8 {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXY_HOPS must be 0..8 (got %d)", c.TrustedProxyHops))
	}
	if c.ShutdownDrain < 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_DRAIN must not be negative (got %s)", c.ShutdownDrain))
	}

	switch c.StoreBackend {
	case BackendJSONBin:
		errs = append(errs, checkHTTPURL("JSONBIN_ENDPOINT", c.JSONBinEndpoint)...)
		errs = append(errs, checkHTTPURL("IMGBB_ENDPOINT", c.ImgBBEndpoint)...)
	case BackendS3:
		if c.S3PublicBaseURL != "" {
			errs = append(errs, checkHTTPURL("S3_PUBLIC_BASE_URL", c.S3PublicBaseURL)...)
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %s or %s (got %q)", BackendJSONBin, BackendS3, c.StoreBackend))
	}

	if h := strings.TrimSpace(c.AdminPasswordHash); h != "" {
		if len(h) != 64 || strings.Trim(strings.ToLower(h), "0123456789abcdef") != "" {
			errs = append(errs, fmt.Errorf("ADMIN_PASSWORD_HASH must be 64 hex characters"))
		}
	}
	if c.ImageMaxBytes < 1 {
		errs = append(errs, fmt.Errorf("IMAGE_MAX_BYTES must be positive (got %d)", c.ImageMaxBytes))
	}
	if c.RemoteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REMOTE_TIMEOUT must be positive (got %s)", c.RemoteTimeout))
	}
	if c.RedisAddr != "" {
		if _, _, err := net.SplitHostPort(c.RedisAddr); err != nil {
			errs = append(errs, fmt.Errorf("REDIS_ADDR must be host:port (got %q): %v", c.RedisAddr, err))
		}
	}
	if c.ContactRelayURL != "" {
		errs = append(errs, checkHTTPURL("CONTACT_RELAY_URL", c.ContactRelayURL)...)
	}
	if c.SessionTTL < time.Second {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be at least 1s (got %s)", c.SessionTTL))
	}
	if c.EditSessionTTL < time.Second || c.EditSessionTTL < c.SessionTTL {
		errs = append(errs, fmt.Errorf("EDIT_SESSION_TTL must be at least 1s and not shorter than SESSION_TTL (got %s)", c.EditSessionTTL))
	}
	if c.MaxSessions < 1 {
		errs = append(errs, fmt.Errorf("MAX_SESSIONS must be positive (got %d)", c.MaxSessions))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func checkHTTPURL(name, v string) []error {
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []error{fmt.Errorf("%s must be an http(s) URL (got %q)", name, v)}
	}
	return nil
}
