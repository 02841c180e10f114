// Command chiptrader runs the local paper-trading app: a virtual chips
// balance traded against live CoinGecko prices, with a web dashboard on
// localhost.
//
// Usage:
//
//	chiptrader --config config.yaml
//	chiptrader --setup (re-run the profile wizard)
//	chiptrader (uses CLI arguments)
//
// Optional environment variables:
//
//	COINGECKO_API_KEY: demo API key sent with market data requests
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/chiptrader/config"
	"github.com/vadiminshakov/chiptrader/internal/clients"
	"github.com/vadiminshakov/chiptrader/internal/services/ledger"
	"github.com/vadiminshakov/chiptrader/internal/services/pricer"
	"github.com/vadiminshakov/chiptrader/internal/services/valuation"
	"github.com/vadiminshakov/chiptrader/internal/setup"
	"github.com/vadiminshakov/chiptrader/internal/storage/ledgerstate"
	"github.com/vadiminshakov/chiptrader/internal/storage/profile"
	"github.com/vadiminshakov/chiptrader/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	profileStore, err := profile.NewStore()
	if err != nil {
		logger.Fatal("failed to init profile store", zap.Error(err))
	}
	prof, err := profileStore.Load()
	if err != nil {
		logger.Fatal("failed to load profile", zap.Error(err))
	}
	if cfg.Setup || prof == nil {
		if err := setup.RunTUI(profileStore); err != nil {
			logger.Fatal("setup wizard failed", zap.Error(err))
		}
	} else if err := setup.Unlock(prof); err != nil {
		logger.Fatal("unlock failed", zap.Error(err))
	}

	market := clients.NewCoinGeckoClient(logger, clients.WithAPIKey(cfg.CoinGeckoAPIKey))

	ledgerStore, err := ledgerstate.NewWALStore(cfg.LedgerDir)
	if err != nil {
		logger.Fatal("failed to init ledger store", zap.Error(err))
	}
	defer ledgerStore.Close()

	book, err := ledger.New(ledgerStore, logger)
	if err != nil {
		// Fatal exits without running the deferred close
		ledgerStore.Close()
		logger.Fatal("failed to init ledger", zap.Error(err))
	}

	valuator := valuation.New(market, book, logger)
	news := clients.NewNewsClient(cfg.NewsURL, logger)

	var executionPricer pricer.Pricer
	switch cfg.PriceProvider {
	case "binance":
		executionPricer = pricer.NewBinancePricer(binance.NewClient("", ""))
	case "bybit":
		executionPricer = pricer.NewBybitPricer(bybit.NewClient())
	default:
		executionPricer = pricer.NewCoinGeckoPricer(market)
	}
	logger.Info("execution price provider selected", zap.String("provider", cfg.PriceProvider))

	server := web.NewServer(cfg.ListenAddr, market, book, valuator, executionPricer, news, profileStore, logger)
	server.PageSize = cfg.MarketPageSize

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return valuator.Run(ctx, cfg.PollInterval)
	})
	g.Go(func() error {
		return server.Start(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutdown with error", zap.Error(err))
	}
}
