package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lfsouza/finzap/cmd/finzap/internal"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print finzap version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("finzap %s\n", internal.FormatVersion())
		},
	}
}
