package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/tsbridge/config"
	"github.com/caffeineduck/tsbridge/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "tsbridge",
	Short: "Compile TypeScript clients and serve their typed command channel",
	Long: `tsbridge - Compile TypeScript client modules to JavaScript, embed them in
server-rendered pages, and dispatch the commands they send to Go handlers.

Configuration is read from tsbridge.toml in the project directory, then
.env, then TSBRIDGE_* environment variables, then flags.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("dir", "C", ".", "Project directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: <dir>/tsbridge.toml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text, json")
}

// loadConfig reads the project configuration, applies the persistent
// flags and installs the configured logger as the slog default.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	flags := cmd.Root().PersistentFlags()
	dir, _ := flags.GetString("dir")
	path, _ := flags.GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return nil, nil, err
	}

	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func fatal(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	os.Exit(1)
}
