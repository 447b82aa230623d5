package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"execution-core/internal/api"
	"execution-core/internal/approval"
	"execution-core/internal/events"
	"execution-core/internal/execution"
	"execution-core/internal/killswitch"
	"execution-core/internal/monitor"
	"execution-core/internal/reconciliation"
	"execution-core/pkg/broker"
	brokerrest "execution-core/pkg/broker/rest"
	"execution-core/pkg/config"
	"execution-core/pkg/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("execution core starting on port %s (broker=%s, db=%s)", cfg.Port, cfg.BrokerMode, cfg.DBPath)

	policies, err := config.LoadSymbols(cfg.SymbolsFile)
	if err != nil {
		log.Fatalf("symbol policy load failed: %v", err)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("db migrations failed: %v", err)
	}

	// Core services
	bus := events.NewBus()
	switches := killswitch.NewManager(database, bus)
	approvals := approval.NewManager(database, bus)

	adapter, symbols := buildBroker(cfg, policies)

	// Disabled symbols are blocked up front through the symbol-level
	// switch, so the engine refuses them before any broker call.
	for _, p := range policies {
		if !p.Enabled {
			switches.Set(killswitch.TypeSymbolLevel, killswitch.StateActive, p.Symbol, "disabled by symbol policy")
		}
	}

	metrics := monitor.NewSystemMetrics()
	recon := reconciliation.NewService(adapter, database, bus)
	execLog := execution.NewLogger(database)
	engine := execution.NewEngine(adapter, switches, recon, execLog, bus, database, metrics)
	for _, p := range policies {
		engine.SetSizeLimit(p.Symbol, p.MaxPositionSize)
	}

	buildVersion := os.Getenv("APP_VERSION")
	if buildVersion == "" {
		buildVersion = "v1.0-dev"
	}

	server := api.NewServer(
		bus,
		database,
		approvals,
		switches,
		engine,
		execLog,
		metrics,
		api.SystemMeta{
			BrokerMode: cfg.BrokerMode,
			Symbols:    symbols,
			Version:    buildVersion,
		},
		cfg.JWTSecret,
	)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
}

// buildBroker selects the configured adapter. Paper mode seeds simulated
// prices from the symbol policy reference prices.
func buildBroker(cfg *config.Config, policies []config.SymbolPolicy) (broker.Adapter, []string) {
	symbols := make([]string, 0, len(policies))
	for _, p := range policies {
		symbols = append(symbols, p.Symbol)
	}

	if cfg.BrokerMode == "rest" {
		return brokerrest.New(brokerrest.Config{
			BaseURL:           cfg.BrokerBaseURL,
			APIKey:            cfg.BrokerAPIKey,
			APISecret:         cfg.BrokerAPISecret,
			RequestsPerSecond: cfg.BrokerRateLimit,
		}), symbols
	}

	prices := make(map[string]float64)
	for _, p := range policies {
		if p.ReferencePrice > 0 {
			prices[p.Symbol] = p.ReferencePrice
		}
	}
	return broker.NewPaper(broker.PaperConfig{
		FillLatency: time.Duration(cfg.PaperFillLatencyMs) * time.Millisecond,
		SlippageBps: cfg.PaperSlippageBps,
		Prices:      prices,
	}), symbols
}
