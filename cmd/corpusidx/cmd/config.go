package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/corpusidx/configs"
	"github.com/Aman-CERP/corpusidx/internal/config"
	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the corpusidx configuration file",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(g))
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write an annotated example configuration",
		Long: `Write an annotated example configuration to path (default ./` + config.FileName + `).

An existing file is left alone unless --force is given, in which case it is
backed up first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) == 1 {
				path = args[0]
			}
			out := cmd.OutOrStdout()

			if _, err := os.Stat(path); err == nil {
				if !force {
					return cerrors.ConfigError(fmt.Sprintf("%s already exists", path), nil).
						WithSuggestion("Use --force to overwrite it (a backup is kept)")
				}
				backup, err := config.Backup(path)
				if err != nil {
					return cerrors.IOError("failed to back up existing config", err)
				}
				_, _ = fmt.Fprintf(out, "Backed up %s to %s\n", path, backup)
			}

			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return cerrors.IOError("failed to create config directory", err)
				}
			}
			if err := os.WriteFile(path, []byte(configs.ExampleConfig), 0o644); err != nil {
				return cerrors.IOError("failed to write config", err).WithDetail("path", path)
			}
			_, _ = fmt.Fprintf(out, "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file after backing it up")
	return cmd
}

func newConfigShowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file, and
CORPUSIDX_* environment overrides are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(".", g.configPath)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return cerrors.InternalError("failed to encode config", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
