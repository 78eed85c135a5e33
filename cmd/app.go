package main

import (
	"context"
	"fmt"

	"buyerwatch/internal/config"
	"buyerwatch/internal/infrastructure"
	"buyerwatch/internal/interfaces"
	"buyerwatch/internal/repository"
	"buyerwatch/internal/usecases"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// app holds the components shared by the serve, ask and import commands
type app struct {
	store     interfaces.Store
	dataset   *repository.DashboardRepository
	ask       *usecases.AskUsecase
	auth      *usecases.AuthUsecase
	dashboard *usecases.DashboardUsecase
	importer  *usecases.ChatImporter
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	dataset, err := repository.NewDashboardRepository(cfg.Dashboard.DataPath, logger.Named("dashboard"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load dashboard data: %w", err)
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("auth.jwt_secret not set, using a random secret; tokens will not survive a restart")
	}

	responder := usecases.NewResponder(infrastructure.NewAIClient, logger.Named("responder"))
	return &app{
		store:     store,
		dataset:   dataset,
		ask:       usecases.NewAskUsecase(store, responder, cfg.AnswerConfig(), logger.Named("ask")),
		auth:      usecases.NewAuthUsecase(store, secret),
		dashboard: usecases.NewDashboardUsecase(dataset, store),
		importer:  usecases.NewChatImporter(store, logger.Named("import")),
	}, nil
}

func openStore(ctx context.Context, db config.DatabaseConfig, logger *zap.Logger) (interfaces.Store, error) {
	switch db.Driver {
	case config.DriverPostgres:
		client, err := infrastructure.NewPostgresClient(ctx, db.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("using postgres store")
		return repository.NewPostgresStore(client), nil
	case config.DriverSQLite:
		sqlDB, err := infrastructure.OpenSQLite(ctx, db.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Info("using sqlite store", zap.String("path", db.Path))
		return repository.NewSQLiteStore(sqlDB), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", db.Driver)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
}
