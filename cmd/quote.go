package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/matrixise/nolimit-swap/internal/networks"
	"github.com/matrixise/nolimit-swap/internal/quote"
	"github.com/spf13/cobra"
)

var (
	quoteSlippage  string
	quoteReverse   bool
	quoteFromChain string
	quoteToChain   string
)

var quoteCmd = &cobra.Command{
	Use:   "quote FROM TO AMOUNT",
	Short: "Quote a conversion between two assets",
	Long: `Convert AMOUNT of FROM into TO at the current reference prices.

With --reverse the two assets are exchanged after quoting, together with the
displayed amounts, the same way the swap page's reverse button does. Each
side keeps its chain.`,
	Example: `  nolimit-swap quote ETH USDT 1.5
  nolimit-swap quote SOL USDC 10 --slippage 1 --from-chain Solana --to-chain Ethereum`,
	Args: cobra.ExactArgs(3),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteSlippage, "slippage", "", "slippage tolerance in percent (default: default_slippage from config)")
	quoteCmd.Flags().BoolVar(&quoteReverse, "reverse", false, "exchange the two assets after quoting")
	quoteCmd.Flags().StringVar(&quoteFromChain, "from-chain", "", "source network (default: default_network)")
	quoteCmd.Flags().StringVar(&quoteToChain, "to-chain", "", "destination network (default: default_network)")
}

type quoteOutput struct {
	From    quote.Side     `json:"from"`
	To      quote.Side     `json:"to"`
	Amount  string         `json:"amount"`
	Dest    string         `json:"dest_amount"`
	Details *quote.Details `json:"details,omitempty"`
}

func runQuote(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	registry := networks.NewRegistry(cfg.Networks, cfg.DefaultNetwork)

	snap, err := fetchSnapshot(cmd, cfg)
	if err != nil {
		return err
	}

	form := quote.NewForm(registry, snap, registry.Default().Name)
	if quoteFromChain != "" {
		form.SelectFromChain(canonicalNetwork(registry, quoteFromChain))
	}
	if quoteToChain != "" {
		form.SelectToChain(canonicalNetwork(registry, quoteToChain))
	}
	form.SetFromAsset(strings.ToUpper(args[0]))
	form.SetToAsset(strings.ToUpper(args[1]))
	slippage := quoteSlippage
	if slippage == "" {
		slippage = cfg.DefaultSlippage
	}
	form.SetSlippage(slippage)
	form.SetAmount(args[2])

	if quoteReverse {
		form.Reverse()
	}

	res := quoteOutput{
		From:   form.From(),
		To:     form.To(),
		Amount: form.AmountText(),
		Dest:   form.DestText(),
	}
	if d, ok := form.Details(); ok {
		res.Details = &d
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintln(out, "\n"+strings.Repeat("=", 60))
	color.New(color.FgGreen).Fprintln(out, "                     SWAP QUOTE")
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\n  From:              %s %s on %s\n", res.Amount, color.YellowString(res.From.Asset), res.From.Chain)
	if res.Dest == "" {
		fmt.Fprintf(out, "  To:                %s on %s\n", color.YellowString(res.To.Asset), res.To.Chain)
		color.New(color.FgRed).Fprintln(out, "\n  No quote available for this pair")
		fmt.Fprintln(out, "\n"+strings.Repeat("=", 60)+"\n")
		return nil
	}
	fmt.Fprintf(out, "  To:                ~%s %s on %s\n", res.Dest, color.YellowString(res.To.Asset), res.To.Chain)

	if d := res.Details; d != nil {
		fmt.Fprintf(out, "  Rate:              1 %s = %s %s\n", res.From.Asset, d.Rate, res.To.Asset)
		fmt.Fprintf(out, "  Estimated Fee:     %s %s\n", d.EstimatedFee, res.From.Asset)
		fmt.Fprintf(out, "  Slippage:          %s%%\n", d.Slippage)
		fmt.Fprintf(out, "  Minimum Received:  %s %s\n", color.CyanString(d.MinimumReceived), res.To.Asset)
	}

	fmt.Fprintln(out, "\n"+strings.Repeat("=", 60)+"\n")
	return nil
}

// canonicalNetwork returns the configured spelling of name, or name itself
func canonicalNetwork(registry *networks.Registry, name string) string {
	if n, ok := registry.ByName(name); ok {
		return n.Name
	}
	return name
}
