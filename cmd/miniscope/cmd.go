package miniscope

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"

	pkgminiscope "github.com/go-qbf/miniscope/pkg/miniscope"
)

func NewMiniscopeCommand() *cobra.Command {
	var (
		collapse  bool
		verbosity int
	)
	cmd := &cobra.Command{
		Use:   "miniscope <path>",
		Short: "Rewrites the prenex prefix of a QBF given in qdimacs format into a tree of scopes",
		Long: `Rewrites the prenex prefix of a QBF given in qdimacs format into a tree
of scopes and prints the result, linearized, in qdimacs format. For instance:
c
c this is a comment
p cnf 5 2
e 1 2 0
a 3 0
e 4 5 0
1 3 4 0
2 3 5 0
c 4 and 5 never meet, so each gets its own copy of 3
`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log := funcr.New(func(prefix, args string) {
				fmt.Fprintln(cmd.ErrOrStderr(), prefix, args)
			}, funcr.Options{Verbosity: verbosity})
			return run(args[0], cmd.OutOrStdout(), log, collapse)
		},
	}
	cmd.Flags().BoolVar(&collapse, "collapse-empty-scopes", false, "merge existential scopes separated by universal scopes left empty")
	cmd.Flags().IntVarP(&verbosity, "verbosity", "v", 0, "log verbosity")
	return cmd
}

func run(path string, out io.Writer, log logr.Logger, collapse bool) error {
	qdimacsFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening qdimacs file (%s): %w", path, err)
	}
	defer qdimacsFile.Close()

	matrix, err := ParseQDimacs(qdimacsFile)
	if err != nil {
		return fmt.Errorf("error parsing qdimacs file (%s): %w", path, err)
	}

	result, err := pkgminiscope.Unprenex(matrix,
		pkgminiscope.WithCollapseEmptyScopes(collapse),
		pkgminiscope.WithLogger(log.WithName("miniscope")),
	)
	if err != nil {
		return fmt.Errorf("error miniscoping (%s): %w", path, err)
	}

	_, err = io.WriteString(out, result.Dimacs())
	return err
}
