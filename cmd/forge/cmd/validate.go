package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentforge/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <blueprint-path>",
	Short: "Check a blueprint tree for structural errors and warnings",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	tree, err := loadBlueprintTree(args[0])
	if err != nil {
		return fmt.Errorf("loading blueprint tree: %w", err)
	}

	result := validate.Validate(tree)

	for _, f := range result.Warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning [%s] %s: %s\n", f.Code, f.AliasPath, f.Message)
	}
	for _, f := range result.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "error [%s] %s: %s\n", f.Code, f.AliasPath, f.Message)
	}

	if !result.OK() {
		return fmt.Errorf("blueprint failed validation with %d error(s)", len(result.Errors))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "blueprint is valid (%d warning(s))\n", len(result.Warnings))
	return nil
}
