package app

import (
	"log/slog"
	"time"

	"marketsim/internal/domain"
	"marketsim/internal/engine"
	"marketsim/internal/infra"
	"marketsim/internal/infra/storage"
	"marketsim/internal/news"
	"marketsim/internal/service"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config  *infra.Config
	Engine  *engine.Engine
	Service *service.MarketService
	Journal *storage.Journal
	Metrics *infra.Metrics
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and wires the engine and its collaborators.
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("bootstrapping market simulator",
		slog.String("app", cfg.App.Name), slog.String("version", cfg.App.Version))

	if cfg.Storage.Enabled {
		journal, err := storage.NewJournal(cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.Journal = journal
		slog.Info("event journal opened", slog.String("path", cfg.Storage.Path))
	}

	b.Metrics = infra.NewMetrics()

	engCfg := engine.Config{
		Symbols:           cfg.Simulator.Symbols,
		TickInterval:      time.Duration(cfg.Simulator.TickIntervalMS) * time.Millisecond,
		InitialCondition:  domain.MarketCondition(cfg.Simulator.InitialCondition),
		InitialVolatility: cfg.Simulator.InitialVolatility,
		RegimeChangeProb:  cfg.Simulator.RegimeChangeProb,
		TradeProbability:  cfg.Simulator.TradeProbability,
		DepthProbability:  cfg.Simulator.DepthProbability,
		NewsProbability:   cfg.Simulator.NewsProbability,
		EnableNews:        cfg.Simulator.EnableNews,
		EnableOrderBook:   cfg.Simulator.EnableOrderBook,
		EnableTechnicals:  cfg.Simulator.EnableTechnicals,
		CacheSize:         cfg.Cache.MaxEntries,
		CacheTTL:          time.Duration(cfg.Cache.TTLSec) * time.Second,
		FanOut:            cfg.Simulator.FanOut,
		Seed:              cfg.Simulator.Seed,
	}

	b.Engine = engine.New(engCfg,
		engine.WithLogger(logger),
		engine.WithMetrics(b.Metrics),
		engine.WithNewsProvider(b.buildNewsChain(logger)),
	)
	b.Service = service.NewMarketService()

	return nil
}

// buildNewsChain assembles the provider order: remote first when configured,
// templated generator always last so news can never go silent.
func (b *Bootstrap) buildNewsChain(logger *slog.Logger) news.Provider {
	template := news.NewTemplate(b.Config.Simulator.Seed+1, nil)

	if b.Config.News.URL == "" {
		return news.NewChain(logger, template)
	}
	remote := news.NewRemote(
		b.Config.News.URL,
		b.Config.News.APIKey,
		time.Duration(b.Config.News.TimeoutSec)*time.Second,
	)
	return news.NewChain(logger, remote, template)
}
