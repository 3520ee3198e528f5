package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stencil-dev/stencil/internal/branding"
	"github.com/stencil-dev/stencil/internal/config"
	"github.com/stencil-dev/stencil/internal/engine"
	"github.com/stencil-dev/stencil/internal/fetch"
	"github.com/stencil-dev/stencil/internal/remote"
	"github.com/stencil-dev/stencil/internal/store"
	"github.com/stencil-dev/stencil/internal/updater"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` keeps a registry of project templates — local directories or
remote repositories cached by commit — and stamps fresh copies of them
into your workspace.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() == "version" {
			return
		}

		// Non-blocking banner from cached version check.
		u := updater.New(buildVersion)
		u.CheckAndPrintBanner(os.Stderr, config.Dir())
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	config.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// openStore loads the registry from the per-user directory.
func openStore() (*store.Store, error) {
	s, err := store.Open(store.DefaultDir())
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}
	return s, nil
}

// openEngine builds a sync engine wired with the configured proxy and
// network timeout.
func openEngine() (*engine.Engine, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}

	fetcher, err := fetch.New(
		fetch.WithProxy(config.Proxy()),
		fetch.WithTimeout(config.Timeout()),
	)
	if err != nil {
		return nil, err
	}

	resolver := func(ctx context.Context, remoteURL string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, config.Timeout())
		defer cancel()
		return remote.HeadHash(ctx, remoteURL)
	}

	return engine.New(s, engine.WithFetcher(fetcher), engine.WithHeadResolver(resolver))
}
