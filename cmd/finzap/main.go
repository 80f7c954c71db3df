// finzap - WhatsApp receipt-extraction bot.
//
// Listens on a persistent WhatsApp bridge session, forwards payment
// receipts to a vision-capable model and appends validated transactions to
// a JSON ledger.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lfsouza/finzap/cmd/finzap/internal"
	"github.com/lfsouza/finzap/cmd/finzap/internal/gateway"
	"github.com/lfsouza/finzap/cmd/finzap/internal/version"
)

func NewFinzapCommand() *cobra.Command {
	short := fmt.Sprintf("%s finzap - Bot de Gestão Financeira v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "finzap",
		Short:   short,
		Example: "finzap gateway",
	}

	cmd.AddCommand(
		gateway.NewGatewayCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewFinzapCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
