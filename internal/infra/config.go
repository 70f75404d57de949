package infra

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"dutchswap/internal/domain"
)

// Config holds the full application configuration. Sensitive or
// deployment-specific values can be overridden through environment
// variables after the file is loaded.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"feed"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Ledger struct {
		Accounts []SeedAccount `yaml:"accounts"`
	} `yaml:"ledger"`

	Auctions []AuctionConfig `yaml:"auctions"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// SeedAccount is an initial ledger balance, the reimplementation of the
// original deployment's pre-minted token supply. Balance is kept as a
// string in the file and validated as an exact decimal on load.
type SeedAccount struct {
	Asset   string `yaml:"asset"`
	Account string `yaml:"account"`
	Balance string `yaml:"balance"`
}

// BalanceDecimal returns the parsed seed balance. Validate has already
// rejected unparseable values.
func (s SeedAccount) BalanceDecimal() decimal.Decimal {
	return decimal.RequireFromString(s.Balance)
}

// AuctionConfig declares one auction instance to create at boot.
type AuctionConfig struct {
	ID           string `yaml:"id"`
	Variant      string `yaml:"variant"` // FORWARD or REVERSE
	Seller       string `yaml:"seller"`
	SaleAsset    string `yaml:"sale_asset"`
	PaymentAsset string `yaml:"payment_asset"`
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Feed.ListenAddr == "" {
		return fmt.Errorf("feed listen address is required")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}

	seen := make(map[string]bool, len(c.Auctions))
	for _, a := range c.Auctions {
		if a.ID == "" {
			return fmt.Errorf("auction id is required")
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate auction id: %s", a.ID)
		}
		seen[a.ID] = true
		switch domain.Variant(a.Variant) {
		case domain.VariantForward, domain.VariantReverse:
		default:
			return fmt.Errorf("auction %s: unknown variant %q", a.ID, a.Variant)
		}
		if a.Seller == "" || a.SaleAsset == "" || a.PaymentAsset == "" {
			return fmt.Errorf("auction %s: seller, sale_asset and payment_asset are required", a.ID)
		}
	}

	for _, acc := range c.Ledger.Accounts {
		if acc.Asset == "" || acc.Account == "" {
			return fmt.Errorf("ledger seed: asset and account are required")
		}
		balance, err := decimal.NewFromString(acc.Balance)
		if err != nil {
			return fmt.Errorf("ledger seed %s/%s: invalid balance %q", acc.Asset, acc.Account, acc.Balance)
		}
		if balance.IsNegative() {
			return fmt.Errorf("ledger seed %s/%s: balance must not be negative", acc.Asset, acc.Account)
		}
	}
	return nil
}

// overrideWithEnv applies environment variable overrides when present.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("DUTCHSWAP_FEED_ADDR"); addr != "" {
		cfg.Feed.ListenAddr = addr
	}
	if path := os.Getenv("DUTCHSWAP_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if level := os.Getenv("DUTCHSWAP_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
