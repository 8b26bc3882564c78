package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/heriman22/blog-main/internal/log"
)

// EnvPrefix is prepended to upper-cased flag names: -site-url -> BLOG_SITE_URL.
const EnvPrefix = "BLOG_"

type App struct {
	ConfigFile string

	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	HTTPPort        int
	AdminPort       int
	EnablePprof     bool
	EnablePyroscope bool
	EnableTracing   bool
	PyroServer      string
	PyroTenantID    string
	PyroUser        string
	PyroPassword    string
	OTLPEndpoint    string
	TraceSample     float64

	SanityProjectID  string
	SanityDataset    string
	SanityAPIVersion string
	SanityUseCDN     bool
	SanityTimeout    time.Duration

	WebhookSecret         string
	WebhookSecretSSMParam string

	FetchCacheTTL time.Duration
	PageCacheTTL  time.Duration
	RedisAddr     string

	TemplatesDir string
	SiteURL      string
	SiteName     string

	TrustedProxyHops int
	EnableHSTS       bool
	RateLimit        float64
	RateBurst        int
	WebhookRateLimit float64
	WebhookRateBurst int
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.StringVar(&c.ConfigFile, "config", "", "optional TOML file, keys are flag names")

	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.PyroUser, "pyro-user", "", "basic auth user for pyro-server")
	fs.StringVar(&c.PyroPassword, "pyro-password", "", "basic auth password for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")

	fs.StringVar(&c.SanityProjectID, "sanity-project-id", "", "Sanity project id")
	fs.StringVar(&c.SanityDataset, "sanity-dataset", "production", "Sanity dataset")
	fs.StringVar(&c.SanityAPIVersion, "sanity-api-version", "2024-01-01", "Sanity API version (YYYY-MM-DD)")
	fs.BoolVar(&c.SanityUseCDN, "sanity-use-cdn", false, "query the Sanity API CDN instead of the live API")
	fs.DurationVar(&c.SanityTimeout, "sanity-timeout", 10*time.Second, "timeout for a single content query")

	fs.StringVar(&c.WebhookSecret, "webhook-secret", "", "shared secret expected in x-webhook-secret")
	fs.StringVar(&c.WebhookSecretSSMParam, "webhook-secret-ssm-param", "", "ssm parameter holding the webhook secret (SecureString)")

	fs.DurationVar(&c.FetchCacheTTL, "fetch-cache-ttl", 60*time.Second, "how long identical content queries are served from cache")
	fs.DurationVar(&c.PageCacheTTL, "page-cache-ttl", 60*time.Second, "how long rendered pages are kept before regeneration")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "redis host:port for shared caches (empty = in-memory)")

	fs.StringVar(&c.TemplatesDir, "templates-dir", "", "load templates from this directory and reload on change (dev)")
	fs.StringVar(&c.SiteURL, "site-url", "http://localhost:8080", "absolute site URL used in sitemap and og tags")
	fs.StringVar(&c.SiteName, "site-name", "Heritier Akilimali", "site name used in page titles")

	fs.IntVar(&c.TrustedProxyHops, "trusted-proxy-hops", 0, "number of reverse proxies in front of the server")
	fs.BoolVar(&c.EnableHSTS, "enable-hsts", false, "send Strict-Transport-Security (only when served over TLS)")
	fs.Float64Var(&c.RateLimit, "rate-limit", 20, "per-IP requests per second")
	fs.IntVar(&c.RateBurst, "rate-burst", 40, "per-IP burst")
	fs.Float64Var(&c.WebhookRateLimit, "webhook-rate-limit", 1, "per-IP webhook requests per second")
	fs.IntVar(&c.WebhookRateBurst, "webhook-rate-burst", 5, "per-IP webhook burst")
}

func envKey(prefix, name string) string {
	return prefix + strings.ReplaceAll(strings.ToUpper(name), "-", "_")
}

func explicitFlags(fs *flag.FlagSet) map[string]bool {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	return explicit
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > file > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := explicitFlags(fs)

	fs.VisitAll(func(f *flag.Flag) {
		key := envKey(prefix, f.Name)
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

var apiVersionRe = regexp.MustCompile(`^v?\d{4}-\d{2}-\d{2}$`)

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
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
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
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

	// Content store
	if c.SanityProjectID == "" {
		errs = append(errs, fmt.Errorf("SANITY_PROJECT_ID is required"))
	}
	if c.SanityDataset == "" {
		errs = append(errs, fmt.Errorf("SANITY_DATASET is required"))
	}
	if !apiVersionRe.MatchString(c.SanityAPIVersion) {
		errs = append(errs, fmt.Errorf("SANITY_API_VERSION must be YYYY-MM-DD (got %q)", c.SanityAPIVersion))
	}
	if c.SanityTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SANITY_TIMEOUT must be positive (got %s)", c.SanityTimeout))
	}

	// Webhook secret: at most one source. Neither is allowed; the endpoint then rejects everything.
	if c.WebhookSecret != "" && c.WebhookSecretSSMParam != "" {
		errs = append(errs, fmt.Errorf("WEBHOOK_SECRET and WEBHOOK_SECRET_SSM_PARAM are mutually exclusive"))
	}

	if c.FetchCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("FETCH_CACHE_TTL must be positive (got %s)", c.FetchCacheTTL))
	}
	if c.PageCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("PAGE_CACHE_TTL must be positive (got %s)", c.PageCacheTTL))
	}
	if c.RedisAddr != "" {
		if _, _, err := net.SplitHostPort(c.RedisAddr); err != nil {
			errs = append(errs, fmt.Errorf("REDIS_ADDR must be host:port (got %q): %v", c.RedisAddr, err))
		}
	}

	if u, err := url.Parse(c.SiteURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("SITE_URL must be an absolute URL (got %q)", c.SiteURL))
	}
	if strings.TrimSpace(c.SiteName) == "" {
		errs = append(errs, fmt.Errorf("SITE_NAME is required"))
	}
	if c.TemplatesDir != "" {
		if st, err := os.Stat(c.TemplatesDir); err != nil || !st.IsDir() {
			errs = append(errs, fmt.Errorf("TEMPLATES_DIR %q is not a directory", c.TemplatesDir))
		}
	}

	if c.TrustedProxyHops < 0 || c.TrustedProxyHops > 10 {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXY_HOPS must be 0..10 (got %d)", c.TrustedProxyHops))
	}
	if c.RateLimit <= 0 || c.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT and RATE_BURST must be positive (got %g, %d)", c.RateLimit, c.RateBurst))
	}
	if c.WebhookRateLimit <= 0 || c.WebhookRateBurst < 1 {
		errs = append(errs, fmt.Errorf("WEBHOOK_RATE_LIMIT and WEBHOOK_RATE_BURST must be positive (got %g, %d)", c.WebhookRateLimit, c.WebhookRateBurst))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
