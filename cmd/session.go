package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/matrixise/nolimit-swap/internal/app"
	"github.com/matrixise/nolimit-swap/internal/config"
	"github.com/matrixise/nolimit-swap/internal/session"
	"github.com/spf13/cobra"
)

var sessionNetwork string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Connect the configured key wallets and print balances",
	Long: `Connect a wallet for every configured key (EVM_PRIVATE_KEY for the account
space, SOLANA_PRIVATE_KEY for the address space), prove ownership of the
Solana address, then print the session and token balances.`,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().StringVar(&sessionNetwork, "network", "", "network to select after connecting")
}

type sessionOutput struct {
	Network  string                  `json:"network"`
	Spaces   []session.WalletSession `json:"spaces"`
	Balances map[string]string       `json:"balances"`
	Notices  []session.Notice        `json:"notices,omitempty"`
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// One-shot command, price history is not needed.
	cfg.DatabaseURL = ""

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, app.Options{Logger: slog.Default()})
	if err != nil {
		slog.Error("Failed to initialise application", "error", err)
		return err
	}
	defer a.Close()

	if len(a.Providers) == 0 {
		err := errors.New("no wallet keys configured: set EVM_PRIVATE_KEY or SOLANA_PRIVATE_KEY")
		slog.Error("Nothing to connect", "error", err)
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	if !jsonOutput {
		s.Suffix = " Connecting wallets..."
		s.Start()
	}
	var connectErrs []error
	for _, space := range session.Spaces {
		p, ok := a.Providers[space]
		if !ok {
			continue
		}
		if err := a.Sessions.Connect(ctx, space, p); err != nil {
			connectErrs = append(connectErrs, fmt.Errorf("%s: %w", space, err))
		}
	}
	if sessionNetwork != "" {
		if err := a.Sessions.SelectNetwork(ctx, sessionNetwork); err != nil {
			connectErrs = append(connectErrs, err)
		}
	}
	if !jsonOutput {
		s.Stop()
	}

	res := sessionOutput{
		Network:  a.Sessions.CurrentNetwork().Name,
		Balances: make(map[string]string, len(cfg.Assets)),
		Notices:  a.Sessions.Notices(),
	}
	for _, space := range session.Spaces {
		if ws, err := a.Sessions.Session(space); err == nil {
			res.Spaces = append(res.Spaces, ws)
		}
	}
	for _, as := range cfg.Assets {
		res.Balances[as.Symbol] = a.Sessions.TokenBalance(as.Symbol)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printSession(out, res, cfg.Assets)
	}

	if err := a.Sessions.DisconnectAll(ctx); err != nil {
		slog.Warn("Disconnect failed", "error", err)
	}
	if len(connectErrs) > 0 {
		err := errors.Join(connectErrs...)
		slog.Error("Session incomplete", "error", err)
		return err
	}
	return nil
}

func printSession(out io.Writer, res sessionOutput, assets []config.AssetConfig) {
	fmt.Fprintln(out, "\n"+strings.Repeat("=", 60))
	color.New(color.FgGreen).Fprintln(out, "                    WALLET SESSION")
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\n  Network:           %s\n", res.Network)
	for _, ws := range res.Spaces {
		addr := color.HiBlackString("not connected")
		if a, ok := ws.ConnectedAddress(); ok {
			addr = color.CyanString(session.ShortAddress(a))
		}
		fmt.Fprintf(out, "\n  %-18s %s (%s)\n", fmt.Sprintf("%s space:", ws.Space), addr, stateString(ws.State))
		if ws.Provider != "" {
			fmt.Fprintf(out, "  Wallet:            %s\n", ws.Provider)
		}
		if ws.NativeSymbol != "" {
			fmt.Fprintf(out, "  Native Balance:    %s %s\n", ws.NativeBalance, color.YellowString(ws.NativeSymbol))
		}
	}

	fmt.Fprintln(out, "\n  Balances:")
	for _, as := range assets {
		fmt.Fprintf(out, "    %s %s\n", color.YellowString("%-8s", as.Symbol), res.Balances[as.Symbol])
	}

	for _, n := range res.Notices {
		if n.Level == session.LevelError {
			color.New(color.FgRed).Fprintf(out, "\n  ! %s", n.Text)
		} else {
			fmt.Fprintf(out, "\n  %s", n.Text)
		}
	}
	fmt.Fprintln(out, "\n\n"+strings.Repeat("=", 60)+"\n")
}

func stateString(state session.State) string {
	switch state {
	case session.StateConnected:
		return color.GreenString(string(state))
	case session.StateConnecting:
		return color.YellowString(string(state))
	default:
		return color.HiBlackString(string(state))
	}
}
