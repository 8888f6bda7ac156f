package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"os"
)

const (
	defaultListenAddr      = ":8080"
	defaultSnapshotDir     = "./wal/portfolio"
	defaultBalanceInterval = 30 * time.Second
	defaultConfirmTimeout  = 2 * time.Second
)

// Asset describes one currency tracked by the wallet.
type Asset struct {
	ID     string
	Name   string
	Symbol string
	Fee    decimal.Decimal
	Pairs  []string
}

// Config is the resolved wallet configuration.
type Config struct {
	Platform        string
	BaseAsset       string
	ListenAddr      string
	SnapshotDir     string
	BalanceInterval time.Duration
	ConfirmTimeout  time.Duration
	Assets          []Asset
}

type AssetTmp struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Symbol string   `yaml:"symbol"`
	Fee    string   `yaml:"fee"`
	Pairs  []string `yaml:"pairs"`
}

type ConfigTmp struct {
	Platform        string        `yaml:"platform"`
	BaseAsset       string        `yaml:"base_asset"`
	ListenAddr      string        `yaml:"listen_addr,omitempty"`
	SnapshotDir     string        `yaml:"snapshot_dir,omitempty"`
	BalanceInterval time.Duration `yaml:"balance_interval,omitempty"`
	ConfirmTimeout  time.Duration `yaml:"confirm_timeout,omitempty"`
	Assets          []AssetTmp    `yaml:"assets"`
}

// Get resolves the configuration from a YAML file when --config is given,
// falling back to CLI flags with a default asset set otherwise.
func Get() (Config, error) {
	config := flag.String("config", "", "path to yaml config")
	flag.Parse()
	if *config != "" {
		return getYaml(*config)
	}

	return getFromCLI()
}

func getFromCLI() (Config, error) {
	platform := flag.String("platform", "binance", "market data platform: binance")
	base := flag.String("base", "BTC", "asset the portfolio is valued in")
	listen := flag.String("listen", defaultListenAddr, "dashboard listen address")
	assetsFlag := flag.String("assets", "BTC,LTC", "comma-separated asset ids to track")

	flag.Parse()

	ids := strings.Split(*assetsFlag, ",")
	if len(ids) == 0 {
		return Config{}, fmt.Errorf("invalid --assets provided, --assets=%s", *assetsFlag)
	}

	assets := make([]Asset, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return Config{}, fmt.Errorf("invalid --assets provided, --assets=%s", *assetsFlag)
		}
		partners := make([]string, 0, len(ids)-1)
		for _, other := range ids {
			other = strings.TrimSpace(other)
			if !strings.EqualFold(other, id) {
				partners = append(partners, other)
			}
		}
		assets = append(assets, Asset{
			ID:     strings.ToUpper(id),
			Name:   strings.ToUpper(id),
			Symbol: strings.ToUpper(id),
			Fee:    decimal.Zero,
			Pairs:  partners,
		})
	}

	return Config{
		Platform:        *platform,
		BaseAsset:       strings.ToUpper(*base),
		ListenAddr:      *listen,
		SnapshotDir:     defaultSnapshotDir,
		BalanceInterval: defaultBalanceInterval,
		ConfirmTimeout:  defaultConfirmTimeout,
		Assets:          assets,
	}, nil
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	if tmp.Platform == "" {
		tmp.Platform = "binance"
	}
	if tmp.BaseAsset == "" {
		return Config{}, fmt.Errorf("missing 'base_asset' param in yaml config")
	}
	if len(tmp.Assets) == 0 {
		return Config{}, fmt.Errorf("missing 'assets' param in yaml config")
	}
	if tmp.ListenAddr == "" {
		tmp.ListenAddr = defaultListenAddr
	}
	if tmp.SnapshotDir == "" {
		tmp.SnapshotDir = defaultSnapshotDir
	}
	if tmp.BalanceInterval <= 0 {
		tmp.BalanceInterval = defaultBalanceInterval
	}
	if tmp.ConfirmTimeout <= 0 {
		tmp.ConfirmTimeout = defaultConfirmTimeout
	}

	assets := make([]Asset, 0, len(tmp.Assets))
	for _, a := range tmp.Assets {
		if a.ID == "" {
			return Config{}, fmt.Errorf("incorrect 'assets' param in yaml config: asset id is required")
		}
		fee := decimal.Zero
		if a.Fee != "" {
			fee, err = decimal.NewFromString(a.Fee)
			if err != nil {
				return Config{}, fmt.Errorf("incorrect 'fee' param for asset %s in yaml config (must be a decimal), error: %w", a.ID, err)
			}
		}
		name := a.Name
		if name == "" {
			name = strings.ToUpper(a.ID)
		}
		symbol := a.Symbol
		if symbol == "" {
			symbol = strings.ToUpper(a.ID)
		}
		assets = append(assets, Asset{
			ID:     strings.ToUpper(a.ID),
			Name:   name,
			Symbol: symbol,
			Fee:    fee,
			Pairs:  a.Pairs,
		})
	}

	found := false
	for _, a := range assets {
		if strings.EqualFold(a.ID, tmp.BaseAsset) {
			found = true
			break
		}
	}
	if !found {
		return Config{}, fmt.Errorf("incorrect 'base_asset' param in yaml config: %s is not in assets", tmp.BaseAsset)
	}

	return Config{
		Platform:        tmp.Platform,
		BaseAsset:       strings.ToUpper(tmp.BaseAsset),
		ListenAddr:      tmp.ListenAddr,
		SnapshotDir:     tmp.SnapshotDir,
		BalanceInterval: tmp.BalanceInterval,
		ConfirmTimeout:  tmp.ConfirmTimeout,
		Assets:          assets,
	}, nil
}
