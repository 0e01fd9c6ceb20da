package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/matrixise/nolimit-swap/internal/logger"
	"github.com/matrixise/nolimit-swap/internal/solana"
	"github.com/spf13/cobra"
)

var (
	verifyMessage     string
	verifyMessageFile string
)

var verifyCmd = &cobra.Command{
	Use:   "verify-signature ADDRESS SIGNATURE",
	Short: "Verify a Solana wallet ownership signature",
	Long: `Check that SIGNATURE (base58) is a valid ed25519 signature of the message
by the Solana wallet ADDRESS. The message is given with --message or read
from --message-file ("-" for stdin).`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyMessage, "message", "", "signed message text")
	verifyCmd.Flags().StringVar(&verifyMessageFile, "message-file", "", "file holding the signed message, - for stdin")
	verifyCmd.MarkFlagsMutuallyExclusive("message", "message-file")
	verifyCmd.MarkFlagsOneRequired("message", "message-file")
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	message := []byte(verifyMessage)
	if verifyMessageFile != "" {
		var err error
		message, err = readMessage(cmd.InOrStdin(), verifyMessageFile)
		if err != nil {
			slog.Error("Failed to read message", "error", err)
			return err
		}
	}

	out := cmd.OutOrStdout()
	if err := solana.VerifyBase58Signature(args[0], message, args[1]); err != nil {
		color.New(color.FgRed).Fprintf(out, "✗ Signature invalid: %v\n", err)
		return err
	}
	color.New(color.FgGreen).Fprintf(out, "✓ Signature valid for %s\n", args[0])
	return nil
}

func readMessage(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("message file %s not found", path)
	}
	return b, err
}
