package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusidx/internal/collection"
	"github.com/Aman-CERP/corpusidx/internal/generator"
)

type registryListing struct {
	Collections []string `json:"collections"`
	Generators  []string `json:"generators"`
}

// newCollectionsCmd lists the corpus formats and generators that can be
// named in --collection and --generator.
func newCollectionsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List supported corpus formats and document generators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listing := registryListing{
				Collections: collection.Names(),
				Generators:  generator.Names(),
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(listing)
			}

			_, _ = fmt.Fprintln(out, "Collections:")
			for _, name := range listing.Collections {
				_, _ = fmt.Fprintf(out, "  %s\n", name)
			}
			_, _ = fmt.Fprintln(out, "Generators:")
			for _, name := range listing.Generators {
				_, _ = fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
