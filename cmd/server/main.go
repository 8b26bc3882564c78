package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heriman22/blog-main/internal/cache"
	"github.com/heriman22/blog-main/internal/cfg"
	"github.com/heriman22/blog-main/internal/content"
	"github.com/heriman22/blog-main/internal/health"
	"github.com/heriman22/blog-main/internal/httpmw"
	"github.com/heriman22/blog-main/internal/httpserver"
	"github.com/heriman22/blog-main/internal/log"
	"github.com/heriman22/blog-main/internal/metrics"
	"github.com/heriman22/blog-main/internal/opshttp"
	"github.com/heriman22/blog-main/internal/otelx"
	"github.com/heriman22/blog-main/internal/pagecache"
	"github.com/heriman22/blog-main/internal/pages"
	"github.com/heriman22/blog-main/internal/portabletext"
	"github.com/heriman22/blog-main/internal/prof"
	"github.com/heriman22/blog-main/internal/ratelimit"
	"github.com/heriman22/blog-main/internal/revalidate"
	"github.com/heriman22/blog-main/internal/sanity"
	"github.com/heriman22/blog-main/internal/secrets"
	"github.com/heriman22/blog-main/internal/sitehandler"
	v "github.com/heriman22/blog-main/internal/version"
	"github.com/heriman22/blog-main/internal/webassets"
)

const (
	appName   = "blog"
	component = "server"

	// time for the load balancer to notice readiness failing before we stop accepting
	drainPeriod = 15 * time.Second
	// bounds the redis ping behind /-/ready
	readinessTimeout = 2 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags, file and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s %s (commit=%s, build_date=%s, go=%s, dirty=%v)\n",
			appName, vi.Version, vi.Commit, vi.BuildDate, vi.GoVersion, vi.Modified)
		os.Exit(0)
	}

	stderrf := func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
	configFile := conf.ConfigFile
	if configFile == "" {
		configFile = os.Getenv(cfg.EnvPrefix + "CONFIG")
	}
	if err := cfg.FillFromFile(flag.CommandLine, configFile, cfg.EnvPrefix, stderrf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, stderrf)

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Setup logging
	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v\n", conf.LogLevel, err)
		os.Exit(1)
	}
	// zero leaves stack traces on errors only
	var stackLvl slog.Level
	if conf.StacktraceLevel != "" {
		if stackLvl, err = log.ParseLevel(conf.StacktraceLevel); err != nil {
			fmt.Fprintf(os.Stderr, "invalid stacktrace level %s: %v\n", conf.StacktraceLevel, err)
			os.Exit(1)
		}
	}
	lg, err := log.New(log.Options{
		App:               appName,
		Version:           vi.Version,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JSON:              conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", component)
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.Modified,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"trace_sample", conf.TraceSample,
		"sanity_project_id", conf.SanityProjectID,
		"sanity_dataset", conf.SanityDataset,
		"sanity_api_version", conf.SanityAPIVersion,
		"sanity_use_cdn", conf.SanityUseCDN,
		"fetch_cache_ttl", conf.FetchCacheTTL,
		"page_cache_ttl", conf.PageCacheTTL,
		"redis_addr", conf.RedisAddr,
		"templates_dir", conf.TemplatesDir,
		"site_url", conf.SiteURL,
		"trusted_proxy_hops", conf.TrustedProxyHops,
	)

	// Setup metrics first so profiling can report into it
	m := metrics.New()
	m.SetBuildInfoFromVersion(appName, component, vi)

	// Setup pyroscope profiling
	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:           conf.EnablePyroscope,
		AppName:           appName,
		ServerAddress:     conf.PyroServer,
		BasicAuthUser:     conf.PyroUser,
		BasicAuthPassword: conf.PyroPassword,
		TenantID:          conf.PyroTenantID,
		Tags: map[string]string{
			"app":       appName,
			"component": component,
			"version":   vi.Version,
			"commit":    vi.Commit,
			"source":    "go-agent",
		},
		OnActive: m.SetProfilingActive,
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer stopProf()

	// Setup otel for tracing
	// Insecure is true because we are only writing to a collector on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   appName,
		Component: component,
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	// setup toggle for server shutdown
	var gate health.ShutdownGate
	readiness := []health.Probe{gate.Probe()}

	// Caches: a shared redis when configured so every instance sees a
	// revalidation, otherwise per-process memory
	var fetchStore, pageStore cache.Cache = cache.NewMemory(), cache.NewMemory()
	if conf.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: conf.RedisAddr})
		defer rdb.Close()
		rc := cache.NewRedis(rdb, "blog:content:")
		fetchStore = rc
		pageStore = cache.NewRedis(rdb, "blog:page:")
		readiness = append(readiness, health.Named("redis", health.WithTimeout(health.CheckFunc(rc.Ping), readinessTimeout)))
		if err := rc.Ping(ctx); err != nil {
			// not fatal: requests fall through to the content store until redis returns
			L.Warn(ctx, "redis not reachable at startup", "redis_addr", conf.RedisAddr, "err", err)
		}
	}

	// Content store
	store, err := sanity.New(sanity.Options{
		ProjectID:  conf.SanityProjectID,
		Dataset:    conf.SanityDataset,
		APIVersion: conf.SanityAPIVersion,
		UseCDN:     conf.SanityUseCDN,
		Timeout:    conf.SanityTimeout,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create content store client")
		os.Exit(1)
	}
	images := sanity.NewImageBuilder(store.ProjectID(), store.Dataset())

	fetcher, err := content.NewFetcher(content.FetcherOptions{
		Store:   store,
		Logger:  L.With("subsystem", "content"),
		Cache:   fetchStore,
		TTL:     conf.FetchCacheTTL,
		Metrics: m,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create content fetcher")
		os.Exit(1)
	}

	renderer := portabletext.New(portabletext.Options{
		Images:    images,
		Logger:    L.With("subsystem", "portabletext"),
		OnDegrade: m.RenderDegraded,
	})

	// Templates: embedded by default, read from disk and hot reloaded in dev
	var templateFS fs.FS = webassets.TemplatesFS()
	if conf.TemplatesDir != "" {
		templateFS = os.DirFS(conf.TemplatesDir)
	}
	templates, err := pages.NewTemplates(templateFS)
	if err != nil {
		L.Error(ctx, err, "failed to parse templates", "templates_dir", conf.TemplatesDir)
		os.Exit(1)
	}

	pageCache := pagecache.New(pagecache.Options{
		Store:   pageStore,
		TTL:     conf.PageCacheTTL,
		Logger:  L.With("subsystem", "pagecache"),
		Metrics: m,
	})

	if conf.TemplatesDir != "" {
		watcher := webassets.NewWatcher(webassets.WatcherOptions{
			Dir:    conf.TemplatesDir,
			Logger: L.With("subsystem", "templates"),
			OnChange: func(ctx context.Context) {
				err := templates.Reload(os.DirFS(conf.TemplatesDir))
				m.TemplateReload(err == nil)
				if err != nil {
					L.Error(ctx, err, "template reload failed, keeping previous set")
					return
				}
				if err := pageCache.Purge(ctx); err != nil {
					L.Warn(ctx, "page cache purge after template reload failed", "err", err)
				}
				L.Info(ctx, "templates reloaded")
			},
		})
		go func() {
			if err := watcher.Run(ctx); err != nil {
				L.Error(ctx, err, "template watcher stopped")
			}
		}()
	}

	composer, err := pages.NewComposer(pages.Options{
		Posts:          fetcher,
		Body:           renderer,
		Images:         images,
		Templates:      templates,
		Logger:         L.With("subsystem", "pages"),
		Metrics:        m,
		SiteName:       conf.SiteName,
		SiteURL:        conf.SiteURL,
		PageMiddleware: []func(http.Handler) http.Handler{pageCache.Middleware},
	})
	if err != nil {
		L.Error(ctx, err, "failed to create page composer")
		os.Exit(1)
	}

	static, err := sitehandler.New(&sitehandler.Options{
		Logger:   L,
		Static:   webassets.StaticFS(),
		NotFound: composer.NotFoundHandler(),
	})
	if err != nil {
		L.Error(ctx, err, "failed to create static handler")
		os.Exit(1)
	}

	// Webhook secret: literal config or SSM SecureString
	var secretSource secrets.Getter
	if conf.WebhookSecretSSMParam != "" {
		ssmSecrets, err := secrets.NewSSM(ctx, nil)
		if err != nil {
			L.Error(ctx, err, "failed to create SSM client")
			os.Exit(1)
		}
		secretSource = ssmSecrets
	}
	webhookSecret, err := secrets.Resolve(ctx, conf.WebhookSecret, conf.WebhookSecretSSMParam, secretSource)
	if err != nil {
		L.Error(ctx, err, "failed to resolve webhook secret", "ssm_param", conf.WebhookSecretSSMParam)
		os.Exit(1)
	}
	if webhookSecret == "" {
		L.Warn(ctx, "no webhook secret configured, revalidation requests will be rejected")
	}

	// the webhook gets its own, much tighter, per-IP budget
	webhookLimiter := ratelimit.New(ctx,
		ratelimit.WithRate(conf.WebhookRateLimit, conf.WebhookRateBurst),
		ratelimit.WithOnDenied(func(ip string) { m.IncRateLimitDenied() }),
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "webhook rate limit triggered", "ip", ip)
		}),
	)

	webhook, err := revalidate.New(revalidate.Options{
		Secret:      webhookSecret,
		Invalidator: pageCache,
		// queries are cached independently of pages; drop them first so
		// regenerated pages see the new content
		BeforeInvalidate: fetcher.Purge,
		Logger:           L,
		Metrics:          m,
		Middleware: []func(http.Handler) http.Handler{
			httpmw.Scope("revalidate"),
			webhookLimiter.Middleware,
		},
	})
	if err != nil {
		L.Error(ctx, err, "failed to create revalidation handler")
		os.Exit(1)
	}

	// Setup rate limiter middleware for all public traffic
	limiter := ratelimit.New(ctx,
		ratelimit.WithRate(conf.RateLimit, conf.RateBurst),
		// increment prometheus counter on each denied request
		ratelimit.WithOnDenied(func(ip string) {
			m.IncRateLimitDenied()
		}),
		// only log the first time an ip is denied each time it is cleaned from the bucket
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "ip", ip)
		}),
		ratelimit.WithOnCapacity(func() {
			m.IncRateLimitCapacity()
			L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
		}),
	)

	ready := health.All(readiness...)

	// start site http server
	siteHTTPStop, err := httpserver.Start(ctx, httpserver.Options{
		Logger:          L,
		Port:            conf.HTTPPort,
		UseRecoverMW:    true,
		OnPanic:         m.IncHttpPanic,
		MetricsMW:       m.Middleware,
		RateLimitMW:     limiter.Middleware,
		Health:          health.Fixed(true, ""),
		Readiness:       ready,
		Routes:          []httpserver.RouteRegistrar{composer, static, webhook},
		NotFound:        composer.NotFoundHandler(),
		ClientIPOpts:    httpmw.ClientIPOptions{TrustedHops: conf.TrustedProxyHops},
		SecurityHeaders: httpmw.SecurityHeadersOptions{HSTS: conf.EnableHSTS},
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// start admin/ops listener to serve metrics, health checks and pprof
	// requests from public addresses are rejected in case the port is ever exposed
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.Fixed(true, ""),
		Readiness:    ready,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	// notify systemd that we started successfully if started under systemd
	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	// wait for ctrl+c / sigterm
	<-ctx.Done()
	stop()

	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	// fail readiness so the load balancer stops routing here
	gate.Set("draining")
	L.Info(bg, "shutdown gate closed, draining", "drain_period", drainPeriod)

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(drainPeriod):
		L.Info(bg, "drain period complete")
	case <-forceCh:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(bg, 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	stopProf()

	L.Info(bg, "shutdown complete")
}

func notifySystemd() error {
	// systemd sets NOTIFY_SOCKET when the unit is Type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify: dial: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		conn.Close()
		return fmt.Errorf("systemd notify: write: %w", err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify: close: %w", err)
	}
	return nil
}
