package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/charting"
	"github.com/mamadbah2/flockboard/internal/config"
	"github.com/mamadbah2/flockboard/internal/repository"
	"github.com/mamadbah2/flockboard/internal/repository/memory"
	"github.com/mamadbah2/flockboard/internal/repository/mongodb"
	"github.com/mamadbah2/flockboard/internal/repository/sheets"
	"github.com/mamadbah2/flockboard/internal/scheduler"
	"github.com/mamadbah2/flockboard/internal/server/handlers"
	"github.com/mamadbah2/flockboard/internal/server/router"
	analysissvc "github.com/mamadbah2/flockboard/internal/service/analysis"
	commandsvc "github.com/mamadbah2/flockboard/internal/service/commands"
	flocksvc "github.com/mamadbah2/flockboard/internal/service/flocks"
	healthsvc "github.com/mamadbah2/flockboard/internal/service/health"
	inventorysvc "github.com/mamadbah2/flockboard/internal/service/inventory"
	logsvc "github.com/mamadbah2/flockboard/internal/service/logs"
	reportingsvc "github.com/mamadbah2/flockboard/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/flockboard/internal/service/whatsapp"
	"github.com/mamadbah2/flockboard/pkg/clients/anthropic"
	"github.com/mamadbah2/flockboard/pkg/clients/gemini"
	whatsappclient "github.com/mamadbah2/flockboard/pkg/clients/whatsapp"
	"github.com/mamadbah2/flockboard/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, baseLogger.Named("repo"))
	if err != nil {
		baseLogger.Fatal("failed to init storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close storage", zap.Error(err))
		}
	}()

	var sheetWriter reportingsvc.SheetWriter
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetWriter = sheetsRepo
	} else {
		baseLogger.Warn("google sheets not configured, spreadsheet export disabled")
	}

	analyst, err := newAnalyst(ctx, cfg.AI)
	if err != nil {
		baseLogger.Fatal("failed to init ai client", zap.Error(err))
	}
	if analyst == nil {
		baseLogger.Warn("no ai provider configured, narrative analysis disabled")
	} else {
		baseLogger.Info("ai analysis enabled", zap.String("provider", cfg.AI.Provider))
	}

	program := config.DefaultVaccinationProgram()
	if cfg.Health.ProgramFile != "" {
		program, err = config.LoadVaccinationProgram(cfg.Health.ProgramFile)
		if err != nil {
			baseLogger.Fatal("failed to load vaccination program", zap.Error(err))
		}
	}

	farmTZ, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid reporting timezone", zap.String("timezone", cfg.Reporting.Timezone), zap.Error(err))
	}

	flockSvc := flocksvc.NewService(store, baseLogger.Named("svc.flocks"))
	inventorySvc := inventorysvc.NewService(store, baseLogger.Named("svc.inventory"))
	logSvc := logsvc.NewService(store, store, inventorySvc, logsvc.StockItems{
		FeedItemID: cfg.Inventory.FeedItemID,
		EggItemID:  cfg.Inventory.EggItemID,
	}, baseLogger.Named("svc.logs"), logsvc.WithLocation(farmTZ))
	healthSvc := healthsvc.NewService(store, store, baseLogger.Named("svc.health"))
	reportingSvc := reportingsvc.NewService(flockSvc, store, store, inventorySvc, sheetWriter, baseLogger.Named("svc.reporting"))
	analysisSvc := analysissvc.NewService(analyst, logSvc, baseLogger.Named("svc.analysis"))

	h := router.Handlers{
		Flocks:    handlers.NewFlockHandler(flockSvc, logSvc, analysisSvc, reportingSvc, charting.NewGenerator(), baseLogger.Named("handlers.flocks")),
		Health:    handlers.NewHealthHandler(healthSvc, program, baseLogger.Named("handlers.health")),
		Inventory: handlers.NewInventoryHandler(inventorySvc, baseLogger.Named("handlers.inventory")),
	}

	var notifier scheduler.Notifier
	if cfg.WhatsApp.Enabled() {
		commandDispatcher := commandsvc.NewService(flockSvc, logSvc, inventorySvc, healthSvc, whatsappsvc.NewSessionManager(), baseLogger.Named("svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, baseLogger.Named("svc.whatsapp"))
		h.Webhook = handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp"))
		notifier = messagingSvc
	} else {
		baseLogger.Warn("whatsapp token missing, chat channel and scheduled delivery disabled")
	}

	engine := router.New(h, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(*cfg, reportingSvc, healthSvc, notifier, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}

	repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, logger.Named("mongodb"))
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// newAnalyst returns a nil interface when no provider is configured.
func newAnalyst(ctx context.Context, cfg config.AIConfig) (analysissvc.Analyst, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewClient(cfg.AnthropicKey, anthropic.WithModel(cfg.Model)), nil
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.GeminiKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, nil
	}
}
