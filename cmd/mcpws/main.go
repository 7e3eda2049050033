// Package main is the mcpws CLI entry point.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/mcpws/internal/cli"
	"github.com/hyperjump/mcpws/internal/config"
	"github.com/hyperjump/mcpws/internal/gateway"
	"github.com/hyperjump/mcpws/internal/upstream"
	"github.com/hyperjump/mcpws/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigName = "config.yaml"

type rootOptions struct {
	configPath string
	envFile    string
	debug      bool
	output     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for upstream HTTP status failures and 1 otherwise.
func exitCode(err error) int {
	var httpErr *gateway.HTTPError
	var statusErr *upstream.StatusError
	if errors.As(err, &httpErr) || errors.As(err, &statusErr) {
		return 2
	}
	return 1
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "mcpws",
		Short:         "MCP-style tool servers and clients with a document RAG pipeline",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(opts.envFile)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path (default: ./config.yaml when present)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before config; missing file is ignored")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	pf.StringVarP(&opts.output, "output", "o", "text", "output format: text or json")

	root.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newToolsCmd(opts),
		newCallCmd(opts),
		newAskCmd(opts),
		newIngestCmd(opts),
		newParseCmd(opts),
		newProbeCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcpws version %s\n", version)
		},
	}
}

// loadEnvFile loads KEY=VALUE pairs without overriding variables already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadConfig loads config from path. With no path, config.yaml in the current
// directory is used when it exists; otherwise defaults plus environment apply.
// Returns the config and the path that was actually loaded ("" for none).
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			candidate := filepath.Join(cwd, defaultConfigName)
			if _, statErr := os.Stat(candidate); statErr == nil {
				path = candidate
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || o.debug
	logger, err := utils.NewLogger(debug, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, logger, nil
}

func (o *rootOptions) format() (cli.OutputFormat, error) {
	return cli.ParseFormat(o.output)
}
