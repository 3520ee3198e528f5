package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var createOverwrite bool

var createCmd = &cobra.Command{
	Use:   "create <name> [targetDir]",
	Short: "Copy a registered project into a target directory",
	Long: `Instantiate a registered project. The target defaults to ./<name>.

Remote-backed projects are checked against their origin first: if the
remote's HEAD has moved since the last fetch, the cache is refreshed
before copying. When the origin cannot be reached the cached copy is
used as-is.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().BoolVar(&createOverwrite, "overwrite", false, "Delete the target directory first if it exists")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	targetDir := ""
	if len(args) == 2 {
		targetDir = args[1]
	}

	e, err := openEngine()
	if err != nil {
		return err
	}

	result, err := e.Create(context.Background(), name, targetDir, createOverwrite)
	if err != nil {
		return err
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", warning)
	}

	if result.Refreshed {
		if rec, ok := e.Store().Get(name); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %s to %s\n", name, shortHash(rec))
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", result.Target)
	return nil
}
