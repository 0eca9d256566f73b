// Package app wires the matrix-hub CLI: cobra command tree, viper
// configuration binding, and exit-code mapping, grounded on the
// teacher's cmd/thv/app.NewRootCmd (persistent flags bound through
// viper, PersistentPreRun initializing the logger) and
// cmd/thv-registry-api/app/serve.go (the serve subcommand's shape).
package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agent-matrix/matrix-hub/internal/logger"
)

// misconfigurationError marks an error that should exit with status 2
// (spec.md §6) rather than 1, distinguishing a bad configuration from
// an operational failure encountered while otherwise correctly
// configured.
type misconfigurationError struct {
	cause error
}

func (e *misconfigurationError) Error() string { return e.cause.Error() }
func (e *misconfigurationError) Unwrap() error { return e.cause }

func newMisconfigurationError(cause error) error {
	return &misconfigurationError{cause: cause}
}

// NewRootCmd builds the root "matrix-hub" command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "matrix-hub",
		DisableAutoGenTag: true,
		Short:             "matrix-hub is a catalog, search, and install service for MCP manifests",
		Long: `matrix-hub ingests MCP server/tool/agent manifests from remote
catalogs, indexes them for hybrid lexical/semantic search, plans and
executes local installs, and registers served tools against an
external gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.Initialize()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("database-url", "", "Database URL (sqlite path or dsn)")

	bindPFlag(rootCmd, "config", "config")
	bindPFlag(rootCmd, "database_url", "database-url")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newInstallCmd())

	return rootCmd
}

func bindPFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		logger.Errorf("error binding %s flag: %v", flag, err)
	}
}

// Run executes the CLI and returns a process exit code: 0 on success,
// 1 on operational error, 2 on misconfiguration (spec.md §6).
func Run() int {
	err := NewRootCmd().Execute()
	if err == nil {
		return 0
	}

	var misconfig *misconfigurationError
	if errors.As(err, &misconfig) {
		fmt.Fprintf(os.Stderr, "matrix-hub: configuration error: %v\n", misconfig.cause)
		return 2
	}

	fmt.Fprintf(os.Stderr, "matrix-hub: %v\n", err)
	return 1
}
