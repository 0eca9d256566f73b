package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agent-matrix/matrix-hub/internal/config"
	"github.com/agent-matrix/matrix-hub/internal/install"
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [uid]",
		Short: "Resolve and execute an install plan for a catalog entity",
		Args:  cobra.ExactArgs(1),
		RunE:  runInstall,
	}

	cmd.Flags().String("target", "", "Destination directory for the install")
	if err := cmd.MarkFlagRequired("target"); err != nil {
		panic(err)
	}

	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return newMisconfigurationError(fmt.Errorf("loading configuration: %w", err))
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return newMisconfigurationError(err)
	}
	defer closeStore()

	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return newMisconfigurationError(err)
	}

	registrar := newRegistrar(cfg, store)
	var executorOpts []install.ExecutorOption
	if registrar != nil {
		executorOpts = append(executorOpts, install.WithGateway(registrar))
	}
	installer := install.NewInstaller(store, install.NewExecutor(executorOpts...))

	result, err := installer.Install(ctx, install.Request{UID: args[0], Target: target})
	if err != nil {
		return fmt.Errorf("installing %s: %w", args[0], err)
	}

	return json.NewEncoder(os.Stdout).Encode(result)
}
