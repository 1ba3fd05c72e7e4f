package root

import (
	"github.com/spf13/cobra"

	"github.com/go-qbf/miniscope/cmd/miniscope"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qbf",
		Short: "Quantifier prefix tooling for quantified boolean formulas",
		Long: `Quantifier prefix tooling for quantified boolean formulas in qdimacs format.
Currently converts prenex prefixes into trees of scopes by miniscoping.`,
		SilenceUsage: true,
	}

	// add sub-commands
	rootCmd.AddCommand(miniscope.NewMiniscopeCommand())

	return rootCmd
}
