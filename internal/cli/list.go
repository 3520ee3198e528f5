package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stencil-dev/stencil/internal/store"
)

var (
	listPrune bool
	listJSON  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	Long:  `List all projects in the registry, local and remote-backed.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listPrune, "prune", false, "Drop entries whose path no longer exists")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry represents a registered project for display.
type listEntry struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Remote string `json:"remote,omitempty"`
	Hash   string `json:"hash,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}

	if listPrune {
		removed := s.Prune()
		if err := s.Save(); err != nil {
			return err
		}
		for _, name := range removed {
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s\n", name)
		}
	}

	if s.Len() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects registered yet.")
		return nil
	}

	var entries []listEntry
	for _, name := range s.Names() {
		rec, _ := s.Get(name)
		entries = append(entries, listEntry{
			Name:   name,
			Path:   rec.Path,
			Remote: rec.Remote,
			Hash:   rec.Hash,
		})
	}

	if listJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tHASH")
	for _, e := range entries {
		source := e.Path
		if e.Remote != "" {
			source = e.Remote
		}
		hash := "-"
		if e.Hash != "" {
			hash = e.Hash[:7]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, source, hash)
	}
	return w.Flush()
}

// shortHash is a display helper shared with create output.
func shortHash(rec store.Record) string {
	if len(rec.Hash) >= 7 {
		return rec.Hash[:7]
	}
	return rec.Hash
}
