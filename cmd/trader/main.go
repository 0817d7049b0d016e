package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/GoBitflyer/bitflyer-trader/internal/api"
	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
	"github.com/GoBitflyer/bitflyer-trader/internal/config"
	"github.com/GoBitflyer/bitflyer-trader/internal/engine"
	"github.com/GoBitflyer/bitflyer-trader/internal/feed"
	"github.com/GoBitflyer/bitflyer-trader/internal/logging"
	"github.com/GoBitflyer/bitflyer-trader/internal/notify"
	"github.com/GoBitflyer/bitflyer-trader/internal/paper"
	"github.com/GoBitflyer/bitflyer-trader/internal/recorder"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	phase := flag.String("phase", "", "rollout phase preset: paper|shadow|live-small|live")
	modeOverride := flag.String("mode", "", "override trading mode: paper|live")
	productOverride := flag.String("product", "", "override currency pair, e.g. BTC_JPY")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		logrus.WithError(err).Warn("config file not loaded, using defaults")
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if v := strings.ToLower(strings.TrimSpace(*modeOverride)); v != "" {
		cfg.TradingMode = v
	}
	if v := strings.ToUpper(strings.TrimSpace(*productOverride)); v != "" {
		cfg.Product = v
	}
	if err := config.ApplyRolloutPhase(&cfg, *phase); err != nil {
		logrus.WithError(err).Fatal("invalid -phase")
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	logging.Setup(cfg.Logging)

	mode := strings.ToLower(strings.TrimSpace(cfg.TradingMode))
	if mode == "" {
		mode = "paper"
	}

	logrus.WithFields(logrus.Fields{
		"product":  cfg.FXProduct(),
		"mode":     mode,
		"dry_run":  cfg.DryRun,
		"phase":    strings.TrimSpace(*phase),
		"bet":      cfg.Trade.Bet,
		"unit":     cfg.Trade.Size.Unit,
		"max_size": cfg.Risk.MaxSize,
	}).Info("bitflyer-trader starting")

	client := bitflyer.NewClient(cfg.APIKey, cfg.APISecret)

	var (
		source     engine.MarketDataSource
		gateway    engine.OrderGateway
		paperState api.PaperState
	)
	switch mode {
	case "live":
		source = client
		gateway = engine.NewLiveGateway(client, cfg.Order.ExpireMinutes)
	default:
		broker := paper.NewBroker(paper.Config{
			InitialCollateral: cfg.Paper.InitialCollateral,
			KeepRate:          cfg.Paper.KeepRate,
			SlippageBps:       cfg.Paper.SlippageBps,
			MaxOrderSize:      cfg.Paper.MaxOrderSize,
		}, client)
		source = broker
		gateway = broker
		paperState = broker
	}
	if cfg.DryRun {
		gateway = engine.DryRunGateway{}
	}

	eng := engine.New(cfg, source, gateway)

	var notifier *notify.Notifier
	if cfg.Telegram.Enabled {
		notifier = notify.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		eng.SetNotifier(notifier)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logrus.Info("shutdown signal received")
		cancel()
	}()

	if cfg.API.Enabled {
		server := api.NewServer(cfg.API.Addr, eng, paperState, cfg.FXProduct(), mode)
		if err := server.Start(ctx); err != nil {
			logrus.WithError(err).Warn("api server failed to start")
		}
	}

	execFeed := feed.NewExecutions(cfg.Feed.Endpoint, cfg.FXProduct(), time.Duration(cfg.Feed.ReconnectWait))
	go func() {
		if err := execFeed.Run(ctx); err != nil && err != context.Canceled {
			logrus.WithError(err).Error("feed stopped")
		}
	}()

	events := execFeed.C()
	if cfg.Recorder.SQLitePath != "" {
		rec, err := recorder.Open(cfg.Recorder.SQLitePath, "lightning_executions_"+cfg.FXProduct())
		if err != nil {
			logrus.WithError(err).Fatal("recorder open failed")
		}
		defer rec.Close()
		events = teeRecorded(execFeed.C(), rec)
	}

	if notifier != nil {
		_ = notifier.NotifyStartup(ctx, cfg.FXProduct(), mode)
	}

	if err := eng.Run(ctx, events); err != nil && err != context.Canceled {
		logrus.WithError(err).Error("engine stopped")
	}

	if notifier != nil {
		_ = notifier.NotifyShutdown(context.Background(), cfg.FXProduct())
	}
	logrus.Info("session complete")
}

// teeRecorded forwards execution batches to the engine while persisting
// them; recording failures are logged and never block trading.
func teeRecorded(in <-chan []bitflyer.Execution, rec *recorder.Recorder) <-chan []bitflyer.Execution {
	out := make(chan []bitflyer.Execution, 16)
	go func() {
		defer close(out)
		for batch := range in {
			if err := rec.Record(batch); err != nil {
				logrus.WithError(err).Warn("recorder write failed")
			}
			out <- batch
		}
	}()
	return out
}
