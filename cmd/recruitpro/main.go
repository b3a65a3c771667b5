package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"recruitpro/internal/content"
	"recruitpro/internal/feed"
	"recruitpro/internal/handlers"
	"recruitpro/internal/nonce"
	"recruitpro/internal/notify"
	"recruitpro/internal/render"
	"recruitpro/internal/state"
	"recruitpro/internal/store"
	"recruitpro/internal/subscribe"
	"recruitpro/internal/telemetry"
	"recruitpro/internal/websocket"
	"recruitpro/pkg/config"
	"recruitpro/web"
)

const (
	serviceName     = "recruitpro"
	tickInterval    = time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Configure logrus
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		logrus.WithError(err).Warn("Tracing disabled")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logrus.WithError(err).Warn("Failed to flush traces")
		}
	}()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open store")
	}
	defer db.Close()

	repo, err := content.Load(cfg.ContentFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load content")
	}

	state.Init(cfg.SiteMode, cfg.LaunchTime(), cfg.MaintenanceEndTime())

	layout, err := handlers.NewLayout(repo)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build layout")
	}
	site := render.NewSite(web.Templates(), layout, render.ModFuncs(repo.Mods()))

	// Feeds
	aggregator := feed.NewAggregator(db, feed.Options{
		TTL:      cfg.FeedTTL,
		MaxItems: cfg.FeedItems,
		MaxWords: cfg.FeedWords,
		Timeout:  cfg.FeedTimeout,
	})
	refresher := feed.NewRefresher(aggregator, cfg.FeedURLs, db, func(report feed.RefreshReport) {
		state.RecordFeedRefresh(report.At, report.OK, report.Failed)
	})
	if len(cfg.FeedURLs) > 0 {
		if err := refresher.Start(ctx, cfg.FeedRefreshSpec); err != nil {
			logrus.WithError(err).Fatal("Failed to start feed refresher")
		}
		defer refresher.Stop()
	}

	// Subscriptions
	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPConfigured() {
		mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	}
	subs := subscribe.NewService(db, mailer, cfg.AdminEmail, layout.SiteName)

	nonces, err := nonce.NewIssuer(cfg.NonceSecret, cfg.NonceTTL, nil)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create nonce issuer")
	}

	// Countdown hub
	hub := websocket.NewHub(state.Target)
	go hub.Run(ctx, tickInterval)

	srv := handlers.New(handlers.Options{
		Content:   repo,
		Site:      site,
		Feeds:     aggregator,
		FeedURLs:  cfg.FeedURLs,
		FeedItems: cfg.FeedItems,
		Subscribe: subs,
		Nonces:    nonces,
		Hub:       hub,
		Static:    web.Static(),
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("Graceful shutdown failed")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"addr":  cfg.Addr,
		"mode":  cfg.SiteMode,
		"feeds": len(cfg.FeedURLs),
		"smtp":  cfg.SMTPConfigured(),
	}).Info("Server starting")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("Server failed")
	}
	logrus.Info("Server stopped")
}
