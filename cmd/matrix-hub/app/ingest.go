package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agent-matrix/matrix-hub/internal/config"
	"github.com/agent-matrix/matrix-hub/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [remote-url]",
		Short: "Run a one-shot ingest cycle against one or all configured remotes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runIngest,
	}
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	registrar := newRegistrar(cfg, store)
	var engineOpts []ingest.Option
	if registrar != nil {
		engineOpts = append(engineOpts, ingest.WithGatewayRegistrar(registrar))
	}
	engine := ingest.New(store, cfg.IngestWorkerPool, cfg.DeriveToolsFromMCP, engineOpts...)

	var outcomes []*ingest.Outcome
	if len(args) == 1 {
		outcome, err := engine.IngestOne(ctx, args[0])
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", args[0], err)
		}
		outcomes = []*ingest.Outcome{outcome}
	} else {
		if err := seedRemotes(ctx, store, cfg.Remotes); err != nil {
			return newMisconfigurationError(err)
		}
		outcomes, err = engine.IngestAll(ctx)
		if err != nil {
			return fmt.Errorf("ingesting configured remotes: %w", err)
		}
	}

	return json.NewEncoder(os.Stdout).Encode(map[string]any{"outcomes": outcomes})
}
