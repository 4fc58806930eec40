package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusidx/internal/collection"
	"github.com/Aman-CERP/corpusidx/internal/generator"
	"github.com/Aman-CERP/corpusidx/pkg/version"
)

// versionReport is the build info plus what this binary can index.
type versionReport struct {
	version.BuildInfo
	Collections []string `json:"collections"`
	Generators  []string `json:"generators"`
}

func newVersionReport() versionReport {
	return versionReport{
		BuildInfo:   version.GetInfo(),
		Collections: collection.Names(),
		Generators:  generator.Names(),
	}
}

func newVersionCmd() *cobra.Command {
	var jsonOutput, shortOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version, build, and supported formats",
		Long: `Print the corpusidx version with its build details and the corpus
formats and document generators compiled into this binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch {
			case shortOutput:
				_, err := fmt.Fprintln(out, version.Short())
				return err
			case jsonOutput:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(newVersionReport())
			}

			r := newVersionReport()
			_, _ = fmt.Fprintln(out, version.String())
			_, _ = fmt.Fprintf(out, "  collections: %s\n", strings.Join(r.Collections, ", "))
			_, err := fmt.Fprintf(out, "  generators:  %s\n", strings.Join(r.Generators, ", "))
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Output the version number only")

	return cmd
}
