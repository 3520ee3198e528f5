package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var addDepth int

var addCmd = &cobra.Command{
	Use:   "add <path-or-url>...",
	Short: "Register projects from local paths or remote repositories",
	Long: `Register one or more projects. Local directory paths are registered in
place; URLs of the form https://<host>/<owner>/<repo>.git are fetched at
their current HEAD commit and cached.

With --depth 1 each input is treated as a container and every immediate
subdirectory becomes its own project.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().IntVar(&addDepth, "depth", 0, "0 registers the input itself, 1 registers each subdirectory")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}

	report, err := e.Add(context.Background(), args, addDepth)
	if err != nil {
		return err
	}

	for _, change := range report.Added {
		fmt.Fprintf(cmd.OutOrStdout(), "+ %s -> %s\n", change.Name, change.Path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d added, %d failed\n", report.Successes, len(report.Failures))
	for _, failure := range report.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", failure)
	}

	if len(report.Failures) > 0 {
		return fmt.Errorf("%d of %d inputs failed", len(report.Failures), len(args))
	}
	return nil
}
