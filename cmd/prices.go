package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/matrixise/nolimit-swap/internal/config"
	"github.com/matrixise/nolimit-swap/internal/pricefeed"
	"github.com/spf13/cobra"
)

var jsonOutput bool

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Fetch and print reference prices",
	Long:  `Fetch the USD reference price and 24h change of every configured asset once.`,
	RunE:  runPrices,
}

func init() {
	rootCmd.AddCommand(pricesCmd)
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")
}

// fetchSnapshot refreshes a throwaway cache once, with a spinner on stderr
func fetchSnapshot(cmd *cobra.Command, cfg *config.Config) (*pricefeed.Snapshot, error) {
	client := pricefeed.NewCoinGeckoClient(cfg.PriceFeed.BaseURL, pricefeed.WithTimeout(cfg.FeedTimeout()))
	cache := pricefeed.NewCache(client, pricefeed.AssetsFromConfig(cfg.Assets), slog.Default())

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	if !jsonOutput {
		s.Suffix = " Fetching prices..."
		s.Start()
	}
	cache.Refresh(cmd.Context())
	if !jsonOutput {
		s.Stop()
	}

	if err := cache.LastError(); err != nil {
		slog.Error("Price refresh failed", "error", err)
		return nil, err
	}
	return cache.Snapshot(), nil
}

func runPrices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	snap, err := fetchSnapshot(cmd, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Quotes())
	}

	fmt.Fprintln(out, "\n"+strings.Repeat("=", 50))
	color.New(color.FgGreen).Fprintln(out, "                 REFERENCE PRICES")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintf(out, "\n  %-8s %16s %12s\n", "ASSET", "USD", "24H")

	for _, q := range snap.Quotes() {
		change := fmt.Sprintf("%s%%", q.Change24h.StringFixed(2))
		switch {
		case q.Source == pricefeed.SourcePlaceholder:
			change = color.HiBlackString("%12s", "fixed")
		case q.Change24h.IsNegative():
			change = color.RedString("%12s", change)
		default:
			change = color.GreenString("%12s", "+"+change)
		}
		fmt.Fprintf(out, "  %s %16s %s\n", color.YellowString("%-8s", q.Symbol), q.USDPrice.StringFixed(4), change)
	}

	fmt.Fprintf(out, "\n  Fetched at %s\n\n", snap.FetchedAt().Format(time.RFC3339))
	return nil
}
