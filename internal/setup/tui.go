package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mercuryex/walletcore/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the result
// to config.gen.yaml.
func RunTUI() error {
	var (
		platform    string
		baseAsset   string
		assetsStr   string
		feeStr      string
		listenAddr  string
		intervalStr string
		confirm     bool
	)

	// defaults
	baseAsset = "BTC"
	assetsStr = "BTC,LTC,DOGE"
	feeStr = "0.0001"
	listenAddr = ":8080"
	intervalStr = "30s"

	// step 1: welcome + platform
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("WALLETCORE CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's get your wallet set up.\n"))

	fmt.Println(stepStyle.Render("STEP 1: PLATFORM"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Market Data Platform").
				Options(
					huh.NewOption("Binance", "binance"),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 2: assets
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("WALLETCORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: ASSETS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Tracked Assets").
				Description("Comma-separated ids (e.g. BTC,LTC,DOGE)").
				Value(&assetsStr).
				Validate(validateAssets),
			huh.NewInput().
				Title("Base Asset").
				Description("Asset the portfolio is valued in; must be in the list above").
				Value(&baseAsset).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("base asset cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Minimum Order Fee").
				Description("Dust threshold applied to every asset (e.g. 0.0001)").
				Value(&feeStr).
				Validate(validateFee),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 3: service
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("WALLETCORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: SERVICE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dashboard Listen Address").
				Value(&listenAddr),
			huh.NewInput().
				Title("Balance Refresh Interval").
				Description("Duration string (e.g. 30s, 1m)").
				Value(&intervalStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("WALLETCORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Platform: %s\nAssets: %s\nBase: %s\nFee: %s\nListen: %s\nRefresh: %s\n",
		platform, assetsStr, baseAsset, feeStr, listenAddr, intervalStr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	interval, _ := time.ParseDuration(intervalStr)

	ids := splitAssets(assetsStr)
	assets := make([]config.AssetTmp, 0, len(ids))
	for _, id := range ids {
		partners := make([]string, 0, len(ids)-1)
		for _, other := range ids {
			if !strings.EqualFold(other, id) {
				partners = append(partners, other)
			}
		}
		assets = append(assets, config.AssetTmp{
			ID:    id,
			Fee:   feeStr,
			Pairs: partners,
		})
	}

	cfgTmp := config.ConfigTmp{
		Platform:        platform,
		BaseAsset:       strings.ToUpper(strings.TrimSpace(baseAsset)),
		ListenAddr:      listenAddr,
		BalanceInterval: interval,
		Assets:          assets,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting wallet...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateAssets(s string) error {
	ids := splitAssets(s)
	if len(ids) < 2 {
		return fmt.Errorf("need at least two assets")
	}
	return nil
}

func validateFee(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func splitAssets(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
