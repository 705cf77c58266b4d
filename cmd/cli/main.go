package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gollh/internal"
	"gollh/internal/config"
	apperrors "gollh/internal/errors"
)

var version = "dev"

// rootOptions carries the configuration shared by all subcommands.
type rootOptions struct {
	configPath string
	cfg        *config.Config
	log        *internal.Logger
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", apperrors.GetCode(err), err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:          "gollh-cli",
		Short:        "Pseudo-experiment trials and detector yields for point-source likelihood analyses",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			level, _ := internal.ParseLogLevel(cfg.Logging.Level)
			opts.cfg = cfg
			opts.log = internal.NewLogger(level).WithComponent("cli")
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file")

	rootCmd.AddCommand(
		newBkgTrialsCmd(opts),
		newGridCmd(opts),
		newYieldsCmd(opts),
		newMigrateCmd(opts),
	)
	return rootCmd
}
