package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"contentforge/internal/blueprint"
	"contentforge/internal/engineinit"
	"contentforge/internal/execution"
	"contentforge/internal/observability"
	"contentforge/internal/plan"
	"contentforge/internal/producer"
	"contentforge/internal/storage"
)

var (
	runInputsPath string
	runSimulated  bool
)

var runCmd = &cobra.Command{
	Use:   "run <blueprint-path>",
	Short: "Build a plan and execute it against the registered producer handlers",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runInputsPath, "inputs", "", "path to a JSON file of input values")
	runCmd.Flags().BoolVar(&runSimulated, "simulated", true, "run every producer in simulated mode (no real provider calls)")
	runCmd.Flags().String("movie", "", "movie id to build")
	mustBindPFlag("run.movie", runCmd.Flags().Lookup("movie"))
}

func runRun(cmd *cobra.Command, args []string) error {
	movieID := viper.GetString("run.movie")
	if movieID == "" {
		return fmt.Errorf("--movie is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.Logging)

	tree, err := loadBlueprintTree(args[0])
	if err != nil {
		return fmt.Errorf("loading blueprint tree: %w", err)
	}

	inputs, err := loadInputs(runInputsPath)
	if err != nil {
		return err
	}

	ws, err := engineinit.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}

	manifest, err := loadCurrentManifest(cfg, movieID)
	if err != nil {
		return err
	}

	execPlan, err := plan.BuildPlan(tree, inputs, storage.AsBaseManifest(manifest), plan.Full())
	if err != nil {
		return fmt.Errorf("building plan: %w", err)
	}

	registry, err := buildRegistry(tree, runSimulated)
	if err != nil {
		return fmt.Errorf("building handler registry: %w", err)
	}

	conditionStore := &storage.ManifestStore{Manifest: manifest, BlobStore: ws.BlobStore, MovieID: movieID}

	executor := execution.NewExecutor(execPlan, registry, conditionStore, ws.EventLog, ws.BlobStore, movieID)
	executor.Ledger = ws.Ledger
	executor.Logger = logger
	executor.Concurrency = cfg.Execution.Concurrency
	executor.RetryPolicy = execution.RetryPolicy{
		BaseDelay:  cfg.Execution.RetryBaseDelay,
		MaxDelay:   cfg.Execution.RetryMaxDelay,
		Factor:     cfg.Execution.RetryFactor,
		MaxRetries: cfg.Execution.DefaultMaxRetries,
	}
	if runSimulated {
		executor.Mode = producer.ModeSimulated
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	summary, err := executor.Execute(ctx, ctx.Done())
	if err != nil {
		return fmt.Errorf("executing plan: %w", err)
	}

	if _, err := ws.Materializer.Materialize(movieID, summary.Revision, inputs); err != nil {
		return fmt.Errorf("materializing manifest: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "build %s: %s (%d succeeded, %d failed, %d skipped)\n",
		movieID, summary.Status, summary.Succeeded, summary.Failed, summary.Skipped)

	switch summary.Status {
	case "failed":
		os.Exit(2)
	case "partial":
		os.Exit(1)
	}
	return nil
}

// buildRegistry registers a producer.NewSimulatedHandler(&producer.NoopHandler{})
// for every alias the tree imports, giving a simulated run a handler for
// every producer without requiring a concrete provider integration. A
// non-simulated run still needs real handlers registered here before
// AliasPath resolution below this grows beyond the simulated case.
func buildRegistry(tree *blueprint.BlueprintTree, simulated bool) (*execution.Registry, error) {
	registry := execution.NewRegistry()

	var walkErr error
	tree.Walk(func(n *blueprint.BlueprintNode) bool {
		if n.AliasPath == "" {
			return true
		}
		if !simulated {
			return true
		}
		handler := producer.NewSimulatedHandler(&producer.NoopHandler{Schema: []byte(`{}`), Retries: 0})
		if err := registry.Register(n.AliasPath, handler, map[string]any{}); err != nil {
			walkErr = err
			return false
		}
		return true
	})
	return registry, walkErr
}
