package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"contentforge/internal/plan"
	"contentforge/internal/storage"
)

var planInputsPath string

var planCmd = &cobra.Command{
	Use:   "plan <blueprint-path>",
	Short: "Expand a blueprint tree into a layered execution plan and print its shape",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planInputsPath, "inputs", "", "path to a JSON file of input values")
	planCmd.Flags().String("movie", "", "movie id the plan is for")
	mustBindPFlag("plan.movie", planCmd.Flags().Lookup("movie"))
}

func runPlan(cmd *cobra.Command, args []string) error {
	movieID := viper.GetString("plan.movie")
	if movieID == "" {
		return fmt.Errorf("--movie is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tree, err := loadBlueprintTree(args[0])
	if err != nil {
		return fmt.Errorf("loading blueprint tree: %w", err)
	}

	inputs, err := loadInputs(planInputsPath)
	if err != nil {
		return err
	}

	manifest, err := loadCurrentManifest(cfg, movieID)
	if err != nil {
		return err
	}

	execPlan, err := plan.BuildPlan(tree, inputs, storage.AsBaseManifest(manifest), plan.Full())
	if err != nil {
		return fmt.Errorf("building plan: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "revision %d, %d layer(s)\n", execPlan.Revision, len(execPlan.Layers))
	for i, layer := range execPlan.Layers {
		fmt.Fprintf(out, "layer %d (%d job(s)):\n", i, len(layer))
		for _, job := range layer {
			status := ""
			if job.Skipped {
				status = " [skipped]"
			}
			fmt.Fprintf(out, "  %s %s%s -> %d artifact(s)\n", job.JobID, job.AliasPath, status, len(job.Produces))
		}
	}
	return nil
}

