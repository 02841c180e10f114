package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr     = ":8080"
	defaultPriceProvider  = "coingecko"
	defaultPollInterval   = 30 * time.Second
	defaultMarketPageSize = 100
)

// Config holds the application settings.
type Config struct {
	// ListenAddr address of the local web UI.
	ListenAddr string
	// PriceProvider source of trade execution prices: coingecko, binance or bybit.
	PriceProvider string
	// CoinGeckoAPIKey optional demo API key sent as a request header.
	CoinGeckoAPIKey string
	// PollInterval portfolio re-valuation interval.
	PollInterval time.Duration
	// MarketPageSize number of rows fetched per market listing page.
	MarketPageSize int
	// LedgerDir directory of the ledger WAL.
	LedgerDir string
	// NewsURL override for the news feed endpoint, empty selects the default.
	NewsURL string
	// Setup forces the profile setup wizard to run.
	Setup bool
}

type configTmp struct {
	ListenAddr      string        `yaml:"listen_addr"`
	PriceProvider   string        `yaml:"price_provider"`
	CoinGeckoAPIKey string        `yaml:"coingecko_api_key"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MarketPageSize  int           `yaml:"market_page_size"`
	LedgerDir       string        `yaml:"ledger_dir"`
	NewsURL         string        `yaml:"news_url"`
}

// Get reads the configuration from the yaml file given with --config, or
// from CLI flags when no file is provided. The CoinGecko API key may also
// come from the COINGECKO_API_KEY environment variable.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	listenAddr := flag.String("listen", defaultListenAddr, "web UI listen address")
	provider := flag.String("provider", defaultPriceProvider, "execution price provider: coingecko, binance or bybit")
	pollInterval := flag.Duration("pollinterval", defaultPollInterval, "portfolio re-valuation interval")
	pageSize := flag.Int("pagesize", defaultMarketPageSize, "market listing page size")
	ledgerDir := flag.String("ledgerdir", "", "ledger WAL directory")
	setup := flag.Bool("setup", false, "run the profile setup wizard")
	flag.Parse()

	var cfg Config
	if *configPath != "" {
		loaded, err := getYaml(*configPath)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	} else {
		cfg = Config{
			ListenAddr:     *listenAddr,
			PriceProvider:  *provider,
			PollInterval:   *pollInterval,
			MarketPageSize: *pageSize,
			LedgerDir:      *ledgerDir,
		}
	}
	cfg.Setup = *setup

	if cfg.CoinGeckoAPIKey == "" {
		cfg.CoinGeckoAPIKey = os.Getenv("COINGECKO_API_KEY")
	}
	applyDefaults(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("incorrect yaml config: %w", err)
	}

	return Config{
		ListenAddr:      tmp.ListenAddr,
		PriceProvider:   tmp.PriceProvider,
		CoinGeckoAPIKey: tmp.CoinGeckoAPIKey,
		PollInterval:    tmp.PollInterval,
		MarketPageSize:  tmp.MarketPageSize,
		LedgerDir:       tmp.LedgerDir,
		NewsURL:         tmp.NewsURL,
	}, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.PriceProvider == "" {
		cfg.PriceProvider = defaultPriceProvider
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MarketPageSize <= 0 {
		cfg.MarketPageSize = defaultMarketPageSize
	}
}

func validate(cfg Config) error {
	switch cfg.PriceProvider {
	case "coingecko", "binance", "bybit":
	default:
		return fmt.Errorf("unsupported price provider: %s", cfg.PriceProvider)
	}
	if cfg.MarketPageSize > 250 {
		return fmt.Errorf("market page size %d exceeds the provider maximum of 250", cfg.MarketPageSize)
	}
	return nil
}
