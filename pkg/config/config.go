// Package config reads environment-driven settings and the per-symbol
// policy file for the execution core.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds environment-driven settings for the execution core.
type Config struct {
	Port string

	// Database
	DBPath string

	// Auth
	JWTSecret string

	// Broker selection: "paper" (simulated) or "rest" (live venue API).
	BrokerMode string

	// REST broker
	BrokerBaseURL    string
	BrokerAPIKey     string
	BrokerAPISecret  string
	BrokerRateLimit  float64 // requests per second

	// Paper broker simulation
	PaperFillLatencyMs int
	PaperSlippageBps   float64

	// Per-symbol policy file (YAML). Empty disables symbol policy.
	SymbolsFile string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the service still starts when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DBPath:             getEnv("DB_PATH", "./data/execution.db"),
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret"),
		BrokerMode:         strings.ToLower(getEnv("BROKER_MODE", "paper")),
		BrokerBaseURL:      os.Getenv("BROKER_BASE_URL"),
		BrokerAPIKey:       os.Getenv("BROKER_API_KEY"),
		BrokerAPISecret:    os.Getenv("BROKER_API_SECRET"),
		BrokerRateLimit:    getEnvFloat("BROKER_RATE_LIMIT", 10),
		PaperFillLatencyMs: getEnvInt("PAPER_FILL_LATENCY_MS", 50),
		PaperSlippageBps:   getEnvFloat("PAPER_SLIPPAGE_BPS", 2),
		SymbolsFile:        getEnv("SYMBOLS_FILE", ""),
	}

	if cfg.BrokerMode != "paper" && cfg.BrokerMode != "rest" {
		return nil, fmt.Errorf("config: unknown BROKER_MODE %q", cfg.BrokerMode)
	}
	if cfg.BrokerMode == "rest" && cfg.BrokerBaseURL == "" {
		return nil, fmt.Errorf("config: BROKER_BASE_URL is required in rest mode")
	}

	return cfg, nil
}

// SymbolPolicy is one entry of the per-symbol policy file. Disabled symbols
// are blocked at startup through a symbol-level kill switch.
type SymbolPolicy struct {
	Symbol          string  `yaml:"symbol"`
	Enabled         bool    `yaml:"enabled"`
	MaxPositionSize float64 `yaml:"max_position_size"`
	ReferencePrice  float64 `yaml:"reference_price"`
}

type symbolsFile struct {
	Symbols []SymbolPolicy `yaml:"symbols"`
}

// LoadSymbols parses the YAML symbol policy file. A missing path returns an
// empty policy set, not an error.
func LoadSymbols(path string) ([]SymbolPolicy, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read symbols file: %w", err)
	}
	var f symbolsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("config: parse symbols file: %w", err)
	}
	for i, p := range f.Symbols {
		if strings.TrimSpace(p.Symbol) == "" {
			return nil, fmt.Errorf("config: symbols[%d] has no symbol name", i)
		}
		f.Symbols[i].Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	}
	return f.Symbols, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
