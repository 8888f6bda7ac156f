// Command walletcore runs the wallet state service: it tracks asset
// balances, values the portfolio against live market data and serves a
// dashboard with an SSE snapshot stream.
//
// Usage:
//
//	walletcore --config config.yaml
//	walletcore setup (interactive wizard)
//	walletcore (uses CLI arguments)
//
// Required environment variables:
//
//	BINANCE_API_KEY, BINANCE_API_SECRET
//	Optional: BYBIT_API_KEY, BYBIT_API_SECRET (custodial wallet balances)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mercuryex/walletcore/config"
	"github.com/mercuryex/walletcore/internal"
	"github.com/mercuryex/walletcore/internal/clients"
	"github.com/mercuryex/walletcore/internal/domain"
	"github.com/mercuryex/walletcore/internal/events"
	"github.com/mercuryex/walletcore/internal/navigation"
	"github.com/mercuryex/walletcore/internal/observer"
	"github.com/mercuryex/walletcore/internal/services/balance"
	"github.com/mercuryex/walletcore/internal/setup"
	"github.com/mercuryex/walletcore/internal/storage/snapshots"
	"github.com/mercuryex/walletcore/internal/web"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		os.Args = []string{os.Args[0], "--config", "config.gen.yaml"}
	}

	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if conf.Platform != "binance" {
		log.Fatal("unsupported platform")
	}
	apiKey := os.Getenv("BINANCE_API_KEY")
	apiSecret := os.Getenv("BINANCE_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		log.Fatal("BINANCE_API_KEY and BINANCE_API_SECRET environment variables must be set")
	}

	graph := observer.New()
	registry := domain.NewRegistry(graph, logger)

	var pairs []domain.Pair
	for _, a := range conf.Assets {
		registry.Register(&domain.Asset{
			ID:     a.ID,
			Name:   a.Name,
			Symbol: a.Symbol,
			Fee:    a.Fee,
			Pairs:  a.Pairs,
		})
		if a.ID != conf.BaseAsset {
			pairs = append(pairs, domain.Pair{Base: a.ID, Quote: conf.BaseAsset})
		}
	}

	feed := clients.NewBinanceFeed(clients.NewBinanceClient(apiKey, apiSecret), pairs, logger)
	aggregator := balance.New(registry, feed, graph, conf.BaseAsset, logger)
	broadcaster := events.NewPortfolioBroadcaster(64)
	history := navigation.New(navigation.NopBrowser{}, graph, logger, conf.ConfirmTimeout)

	store, err := snapshots.NewWALStore(conf.SnapshotDir)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	session, err := internal.NewSession(internal.SessionParams{
		Graph:           graph,
		Registry:        registry,
		Aggregator:      aggregator,
		History:         history,
		Feed:            feed,
		Broadcaster:     broadcaster,
		Store:           store,
		Logger:          logger,
		BaseAssetID:     conf.BaseAsset,
		BalanceInterval: conf.BalanceInterval,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("session stopped", zap.Error(err))
			cancel()
		}
	}()

	if bybitKey, bybitSecret := os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"); bybitKey != "" && bybitSecret != "" {
		bybitClient := clients.NewBybitClient(bybitKey, bybitSecret)
		for _, a := range conf.Assets {
			if err := session.AttachWallet(ctx, a.ID, clients.NewBybitWallet(bybitClient, a.ID)); err != nil {
				logger.Warn("wallet backend not attached", zap.String("asset", a.ID), zap.Error(err))
			}
		}
	}

	server := web.NewServer(conf.ListenAddr, store, session, logger)
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}
