package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"buyerwatch/internal/infrastructure"
	"buyerwatch/internal/interfaces/http"
	"buyerwatch/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the enabled Telegram and WhatsApp integrations",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.auth.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		logger.Warn("admin account not created, admin routes will reject every login", zap.Error(err))
	}

	var waManager *infrastructure.WhatsAppManager
	if cfg.WhatsApp.Enabled {
		client, err := infrastructure.NewWhatsAppClient(ctx, cfg.WhatsApp.DevicePath, logger.Named("whatsapp"))
		if err != nil {
			return err
		}
		ingestor := infrastructure.NewGroupIngestor(a.store, cfg.WhatsApp.Groups, logger.Named("whatsapp"))
		waManager = infrastructure.NewWhatsAppManager(client, ingestor, cfg.WhatsApp.Groups, logger.Named("whatsapp"))
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), http.RequestLogger(logger.Named("http")))
	http.SetupRoutes(r, http.Services{
		Ask:       a.ask,
		Auth:      a.auth,
		Dashboard: a.dashboard,
		Importer:  a.importer,
		WhatsApp:  waManager,
		Logger:    logger.Named("http"),
	}, http.NewMiddleware(a.auth, usecases.RoleAdmin), rate.Limit(cfg.Server.AskRate), cfg.Server.AskBurst)

	srv := &nethttp.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return a.dataset.Watch(gctx) })

	if cfg.Telegram.Token != "" {
		api, err := infrastructure.NewTelegramBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Warn("telegram disabled", zap.Error(err))
		} else {
			limiter := infrastructure.NewMessageRateLimiter(cfg.Telegram.RatePerSecond, cfg.Telegram.Burst)
			defer limiter.Stop()
			bot := infrastructure.NewCommunityBot(api, a.ask, a.dashboard.SuggestedQuestions,
				infrastructure.NewSessionManager(), limiter, logger.Named("telegram"))
			g.Go(func() error { return bot.Run(gctx) })
		}
	} else {
		logger.Info("telegram disabled (token missing)")
	}

	if waManager != nil {
		g.Go(func() error {
			if err := waManager.Run(gctx); err != nil {
				logger.Error("whatsapp listener failed", zap.Error(err))
			}
			return nil
		})
	}

	return g.Wait()
}
