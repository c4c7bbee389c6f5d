package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohammadalshikh/orbit/internal/auth"
	"github.com/mohammadalshikh/orbit/internal/cfg"
	"github.com/mohammadalshikh/orbit/internal/contact"
	"github.com/mohammadalshikh/orbit/internal/content"
	"github.com/mohammadalshikh/orbit/internal/health"
	"github.com/mohammadalshikh/orbit/internal/httpmw"
	"github.com/mohammadalshikh/orbit/internal/opshttp"
	"github.com/mohammadalshikh/orbit/internal/portfolio"
	"github.com/mohammadalshikh/orbit/internal/portfoliohttp"
	"github.com/mohammadalshikh/orbit/internal/ratelimit"
	"github.com/mohammadalshikh/orbit/internal/session"
	"github.com/mohammadalshikh/orbit/internal/sitehandler"
	"github.com/mohammadalshikh/orbit/internal/store"
	"github.com/mohammadalshikh/orbit/internal/webassets"

	"github.com/mohammadalshikh/orbit/internal/httpserver"
	"github.com/mohammadalshikh/orbit/internal/log"
	"github.com/mohammadalshikh/orbit/internal/metrics"
	"github.com/mohammadalshikh/orbit/internal/otelx"
	"github.com/mohammadalshikh/orbit/internal/prof"
	v "github.com/mohammadalshikh/orbit/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	if conf.HashPassword {
		if err := printPasswordHash(); err != nil {
			fmt.Fprintln(os.Stderr, "hash-password:", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// dotenv first so its values are visible to FillFromEnv; real env vars win
	if _, err := cfg.LoadDotEnv(conf.EnvFile); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Setup logging
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Commit:            vi.Commit,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JsonFormat:        conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "server", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       v.AppName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
		},
		OnActive: m.SetProfilingActive,
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer func() { stopProf() }()

	// Insecure: the collector runs on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
		Attributes: map[string]string{
			"orbit.store_backend": conf.StoreBackend,
		},
	})
	if err != nil {
		// serve untraced rather than not at all
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	var awsc awsLoader
	if err := fillSecrets(ctx, &conf, &awsc, L); err != nil {
		// env and flags may still be enough, RemoteConfigured decides
		L.Error(ctx, err, "failed to read secrets from ssm", "prefix", conf.SecretsSSMPrefix)
	}

	remote, missing := conf.RemoteConfigured()
	m.SetRemoteConfigured(remote)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"store_backend", conf.StoreBackend,
		"remote_configured", remote,
		"edit_password_set", conf.AdminPasswordHash != "",
		"redis_counter", conf.RedisAddr != "",
		"contact_enabled", conf.ContactRelayURL != "",
		"session_ttl", conf.SessionTTL,
		"edit_session_ttl", conf.EditSessionTTL,
		"max_sessions", conf.MaxSessions,
	)

	var be backend
	if remote {
		be, err = newBackend(ctx, conf, &awsc, m)
		if err != nil {
			L.Error(ctx, err, "failed to create remote store", "backend", conf.StoreBackend)
			os.Exit(1)
		}
	} else {
		L.Warn(ctx, "remote store not configured, running local-only", "missing", missing)
	}

	// content manager holds the document the public site serves
	contentMgr := content.NewManager()
	contentMgr.OnPublish = func(s content.Snapshot) {
		m.SetContentHash(s.Meta.Hash)
		m.SetContentSource(string(s.Meta.Source))
		m.SetContentLoadedTimestamp(s.LoadedAt)
	}
	initial := publishInitial(ctx, contentMgr, be.Docs, conf.RemoteTimeout, L)
	L.Info(ctx, "published initial content",
		"content_source", contentMgr.Source(),
		"content_version", contentMgr.ContentVersion(),
		"content_hash", contentMgr.ContentHash(),
	)

	// outlives the signal context so sessions and limiters keep working
	// through the drain period
	appCtx, cancelApp := context.WithCancel(log.WithContext(context.Background(), L))
	defer cancelApp()

	registry := session.NewRegistry(appCtx,
		session.Options{
			Store:    be.Docs,
			Images:   be.Images,
			Remote:   remote,
			Verifier: auth.NewVerifier(conf.AdminPasswordHash),
			OnCommit: func(doc *portfolio.Document, saved bool) {
				src := content.SourceLocal
				if saved {
					src = content.SourceRemote
				}
				contentMgr.Publish(doc, src)
			},
		},
		session.WithTTL(conf.SessionTTL),
		session.WithEditTTL(conf.EditSessionTTL),
		session.WithCapacity(conf.MaxSessions),
		session.WithLogger(L.With("component", "sessions")),
		session.WithOnCount(m.SetSessionsActive),
	)

	counter, closeCounter, err := newCounter(ctx, conf, be.Docs, initial.Logs, L)
	if err != nil {
		L.Error(ctx, err, "failed to connect to redis", "redis_addr", conf.RedisAddr)
		os.Exit(1)
	}

	relay, err := contact.NewRelay(conf.ContactRelayURL, store.NewHTTPClient(conf.RemoteTimeout))
	if err != nil {
		L.Error(ctx, err, "failed to create contact relay")
		os.Exit(1)
	}

	// global limiter for the public listener
	limiter := ratelimit.New(appCtx,
		ratelimit.WithName("global"),
		ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
		ratelimit.WithOnDenied(func(ip string) {
			m.IncRateLimitDenied()
		}),
		// logged once per visitor until it is evicted
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "limiter", "global", "ip", ip)
		}),
	)
	// password guesses: a handful, then one every 10s
	authLimiter := ratelimit.New(appCtx,
		ratelimit.WithName("auth"),
		ratelimit.WithRate(0.1, 5),
		ratelimit.WithTTL(15*time.Minute),
		ratelimit.WithOnDenied(func(ip string) {
			m.IncRateLimitDenied()
		}),
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "limiter", "auth", "ip", ip)
		}),
	)

	api, err := portfoliohttp.NewAPI(portfoliohttp.Options{
		Sessions:      registry,
		Content:       contentMgr,
		Counter:       counter,
		Contact:       relay,
		Remote:        remote,
		ImageMaxBytes: conf.ImageMaxBytes,
		AuthLimiter:   authLimiter.Middleware,
		Metrics:       m,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create api")
		os.Exit(1)
	}

	siteFS, haveSite := webassets.SiteFS()
	if !haveSite {
		L.Warn(ctx, "no site bundle embedded, serving maintenance page")
	}
	siteHandler, err := sitehandler.New(&sitehandler.Options{
		Site:       siteFS,
		FallbackFS: webassets.FallbackFS(),
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site handler")
		os.Exit(1)
	}

	var gate health.ShutdownGate

	// ready once a document is published and until shutdown starts
	readiness := health.Timeout(health.All(
		gate.Readiness(),
		health.CheckFunc(func(ctx context.Context) error {
			return contentMgr.ReadyErr()
		}),
	), 2*time.Second)

	siteHTTPStop, err := httpserver.Start(ctx, httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  limiter.Middleware,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedProxyHops},
		ContentInfo:  contentMgr,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		APIRoutes:    api.RegisterRoutes,
		SiteHandler:  siteHandler,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// ops listener: metrics, health checks and pprof on a private port
	opsHTTPStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:        conf.AdminPort,
		Build:       vi,
		Content:     contentMgr,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      health.Fixed(true, ""),
		Readiness:   readiness,
		OnPanic:     m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		// not fatal, systemd kills us after its own timeout
		L.Debug(ctx, "systemd readiness not sent", "reason", err.Error())
	}

	<-ctx.Done()
	stop()

	L.Info(context.Background(), "shutdown signal received")

	// fail readiness so the load balancer stops sending new requests
	gate.Set("draining")
	L.Info(context.Background(), "shutdown gate closed", "drain", conf.ShutdownDrain)

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(conf.ShutdownDrain):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "app http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}
	registry.Close()
	cancelApp()
	if err := closeCounter(); err != nil {
		L.Warn(context.Background(), "redis close", "error", err)
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}
	stopProf()

	L.Info(context.Background(), "shutdown complete")
}

// printPasswordHash reads one line from stdin and prints the value to use
// for -admin-password-hash.
func printPasswordHash() error {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password from stdin: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return fmt.Errorf("empty password")
	}
	fmt.Println(auth.HashPassword(pw))
	return nil
}

func notifySystemd() error {
	// set by systemd for Type=notify units
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		conn.Close()
		return fmt.Errorf("systemd notify failed: write failed: %w", err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
