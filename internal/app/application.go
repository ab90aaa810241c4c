package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"straddlebot/internal/bybit"
	"straddlebot/internal/domain"
	"straddlebot/internal/handler"
	"straddlebot/internal/notifier"
	"straddlebot/internal/router"
	"straddlebot/internal/service"
	"straddlebot/pkg/config"
	"straddlebot/pkg/logger"
)

type App struct {
	config       *config.Config
	log          *zap.Logger
	exchange     *bybit.Client
	notifier     *notifier.Telegram
	store        *service.CycleStore
	straddle     *service.StraddleManager
	openMonitor  *service.OpenMonitor
	closeMonitor *service.CloseMonitor
	router       *router.Router
	server       *fasthttp.Server
	startedAt    time.Time
}

func NewApplication() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Base.LogLevel, cfg.Base.LogFormat, cfg.Base.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	exchangeClient := bybit.NewExchangeClient(
		cfg.Bybit.APIKey,
		cfg.Bybit.SecretKey,
		cfg.Bybit.Testnet,
	)

	telegram, err := notifier.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
	}

	store := service.NewCycleStore()
	normalizer := service.NewNormalizer(exchangeClient, log)
	straddle := service.NewStraddleManager(exchangeClient, store, normalizer, telegram, cfg.Strategy, log)
	openMonitor := service.NewOpenMonitor(exchangeClient, store, straddle, telegram, log, cfg.Strategy.OpenPollInterval)
	closeMonitor := service.NewCloseMonitor(exchangeClient, store, straddle, telegram, log, cfg.Strategy.ClosePollInterval)

	startedAt := time.Now()
	statusController := handler.NewStatusController(cfg, store, exchangeClient, startedAt)
	appRouter := router.NewRouter(statusController)

	server := &fasthttp.Server{
		Handler:      appRouter.Handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	app := &App{
		config:       cfg,
		log:          log,
		exchange:     exchangeClient,
		notifier:     telegram,
		store:        store,
		straddle:     straddle,
		openMonitor:  openMonitor,
		closeMonitor: closeMonitor,
		router:       appRouter,
		server:       server,
		startedAt:    startedAt,
	}

	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	if err := a.run(ctx); err != nil {
		a.notifier.Notify(notifier.FatalMessage(err))
		return err
	}
	return nil
}

func (a *App) run(ctx context.Context) error {
	strategy := a.config.Strategy
	a.log.Info("starting straddle bot",
		zap.String("environment", a.config.Base.Environment),
		zap.Bool("testnet", a.config.Bybit.Testnet),
		zap.Strings("symbols", strategy.Symbols),
		zap.String("amount_usdt", strategy.AmountUSDT.String()),
		zap.String("narrow_pct", strategy.DistanceNarrowPercent.String()),
		zap.String("wide_pct", strategy.DistanceWidePercent.String()),
		zap.String("stop_loss_pct", strategy.StopLossPercent.String()),
		zap.String("take_profit_pct", strategy.TakeProfitPercent.String()))

	a.notifier.Notify(notifier.StartupMessage(
		strategy.Symbols,
		strategy.AmountUSDT,
		strategy.DistanceNarrowPercent,
		strategy.DistanceWidePercent,
		strategy.StopLossPercent,
		strategy.TakeProfitPercent,
		a.config.Bybit.Testnet,
	))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.log.Info("placing initial straddles")
	for i, symbol := range strategy.Symbols {
		if i > 0 {
			select {
			case <-runCtx.Done():
				return runCtx.Err()
			case <-time.After(domain.StartupPlacementPause):
			}
		}
		if err := a.straddle.PlaceStraddle(runCtx, symbol); err != nil {
			a.log.Error("initial placement failed",
				zap.String("symbol", symbol), zap.Error(err))
		}
	}

	go a.openMonitor.Run(runCtx)
	go a.closeMonitor.Run(runCtx)

	addr := ":" + a.config.Server.Port
	go func() {
		a.log.Info("status server starting", zap.String("addr", addr))
		if err := a.server.ListenAndServe(addr); err != nil {
			a.log.Fatal("failed to start status server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	heartbeat := time.NewTicker(domain.HeartbeatInterval)
	defer heartbeat.Stop()

	a.log.Info("straddle bot started")

	for {
		select {
		case <-ctx.Done():
			a.log.Info("context cancelled, shutting down")
			return a.shutdown()
		case sig := <-quit:
			a.log.Info("received shutdown signal", zap.String("signal", sig.String()))
			return a.shutdown()
		case <-heartbeat.C:
			a.log.Info("bot alive",
				zap.Int("active_cycles", a.store.ActiveCount()))
		}
	}
}

func (a *App) shutdown() error {
	a.log.Info("shutting down straddle bot")
	a.notifier.Notify(notifier.ShutdownMessage())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.server.ShutdownWithContext(ctx); err != nil {
		a.log.Error("failed to shut down status server gracefully", zap.Error(err))
		return err
	}

	a.log.Info("straddle bot shut down")
	return nil
}
