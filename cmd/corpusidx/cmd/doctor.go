package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusidx/internal/config"
	"github.com/Aman-CERP/corpusidx/internal/preflight"
)

type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func newDoctorCmd(g *globalFlags) *cobra.Command {
	var (
		jsonOutput bool
		input      string
		indexDir   string
		threads    int
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that an indexing run can start",
		Long: `Check the machine before an indexing run:
  - the corpus root exists and is readable
  - the index location is writable
  - there is enough free disk space next to the index
  - the open file limit covers the worker pool

Paths and threads default to the configuration file.`,
		Example: `  corpusidx doctor --input ./corpus --index ./idx --threads 16
  corpusidx doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(".", g.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("input") {
				cfg.Input = input
			}
			if cmd.Flags().Changed("index") {
				cfg.Index = indexDir
			}
			if cmd.Flags().Changed("threads") {
				cfg.Indexing.Threads = threads
			}

			checker := preflight.New(
				preflight.WithOutput(cmd.OutOrStdout()),
				preflight.WithVerbose(g.verbose))
			results := checker.RunAll(cmd.Context(), preflight.Target{
				Input:   cfg.Input,
				Index:   cfg.Index,
				Threads: cfg.Indexing.Threads,
			})

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(doctorReport{Status: checker.SummaryStatus(results), Checks: results}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return fmt.Errorf("%d check(s) failed", len(checker.Failures(results)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Corpus root directory")
	cmd.Flags().StringVarP(&indexDir, "index", "o", "", "Index directory")
	cmd.Flags().IntVarP(&threads, "threads", "t", 0, "Partition worker pool size")
	return cmd
}
