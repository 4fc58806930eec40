// Package cmd provides the CLI commands for corpusidx.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
	"github.com/Aman-CERP/corpusidx/pkg/version"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	quiet      bool
	logFormat  string
	logFile    string
	debug      bool
}

// NewRootCmd creates the root command for the corpusidx CLI.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "corpusidx",
		Short: "Build full-text indexes from document corpora",
		Long: `corpusidx turns document corpora (JSON, tweets, TREC, Parquet) into a
full-text index. Partitions are processed in parallel; every record is
counted as indexed, unindexable, empty, skipped, or an error.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("corpusidx version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Configuration file (default ./.corpusidx.yaml when present)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Log at debug level and print every finished partition")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "Log warnings and errors only")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&g.logFile, "log-file", "", "Also write logs to this file (rotated)")
	pf.BoolVar(&g.debug, "debug", false, "Show error details and causes")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newIndexCmd(g))
	cmd.AddCommand(newCollectionsCmd())
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newDoctorCmd(g))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context, which
// interrupts a running index cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		debug, _ := root.PersistentFlags().GetBool("debug")
		if debug {
			_, _ = fmt.Fprintln(os.Stderr, cerrors.FormatForUser(err, true))
		} else {
			_, _ = fmt.Fprint(os.Stderr, cerrors.FormatForCLI(err))
		}
	}
	return err
}
