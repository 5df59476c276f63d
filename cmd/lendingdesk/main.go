package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"lendingdesk/internal/accounts"
	"lendingdesk/internal/app"
	"lendingdesk/internal/config"
	"lendingdesk/internal/ratelimit"
	"lendingdesk/internal/server"
	"lendingdesk/internal/util"
	"lendingdesk/pkg/notify"
	"lendingdesk/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	durable, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	notifier, closeNotifier, err := buildNotifier(cfg)
	if err != nil {
		log.Fatalf("failed to build notifier: %v", err)
	}
	if closeNotifier != nil {
		defer closeNotifier()
	}

	engine, err := app.New(app.Config{
		Store:    durable,
		Notifier: notifier,
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("failed to init lending engine: %v", err)
	}

	manager, err := accounts.NewManager(durable)
	if err != nil {
		log.Fatalf("failed to init accounts: %v", err)
	}
	sessions, err := accounts.NewSessions(cfg.JWTSecret, cfg.SessionTTL())
	if err != nil {
		log.Fatalf("failed to init sessions: %v", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	loginLimiter := buildLimiter(cfg, cfg.LoginRateLimitPerMinute, "lendingdesk:rl:login")
	writeLimiter := buildLimiter(cfg, cfg.WriteRateLimitPerMinute, "lendingdesk:rl:write")

	httpServer, err := server.New(server.Config{
		Engine:         engine,
		Accounts:       manager,
		Sessions:       sessions,
		LoginLimiter:   loginLimiter,
		WriteLimiter:   writeLimiter,
		TrustedProxies: trusted,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func openStore(cfg config.FileConfig) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		return store.NewGormStore(cfg.DatabaseURL)
	}
	return store.NewFileStore(cfg.DataDir)
}

// buildNotifier fans out over every configured channel. With none
// configured, notifications are disabled and reassignments still happen.
func buildNotifier(cfg config.FileConfig) (notify.Notifier, func(), error) {
	var channels []notify.Notifier
	var closers []func()

	if cfg.SMTPAddr != "" {
		email, err := notify.NewEmailNotifier(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
		if err != nil {
			return nil, nil, err
		}
		channels = append(channels, email)
	}
	if cfg.SMSGatewayURL != "" {
		sms, err := notify.NewSMSNotifier(cfg.SMSGatewayURL)
		if err != nil {
			return nil, nil, err
		}
		channels = append(channels, sms)
	}
	if cfg.AMQPURL != "" {
		amqp, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		channels = append(channels, amqp)
		closers = append(closers, func() { _ = amqp.Close() })
	}

	if len(channels) == 0 {
		return nil, nil, nil
	}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	return notify.NewMulti(channels...), closeAll, nil
}

func buildLimiter(cfg config.FileConfig, perMinute int, prefix string) *ratelimit.Limiter {
	if perMinute <= 0 || cfg.RedisAddr == "" {
		return nil
	}
	limiter, err := ratelimit.New(ratelimit.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Prefix:   prefix,
		Limit:    perMinute,
		Window:   time.Minute,
	})
	if err != nil {
		log.Fatalf("failed to init rate limiter: %v", err)
	}
	return limiter
}
