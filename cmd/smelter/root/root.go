package root

import (
	"context"

	"github.com/flarebyte/smelter/cmd/smelter/run"
	"github.com/flarebyte/smelter/cmd/smelter/version"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the smelter command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smelter",
		Short: "Run batch file steps inside a streaming pipeline",
		Long: "smelter reads a source tree, passes it through batch steps and streaming\n" +
			"stages as configured in a CUE file, and prints a manifest of the result.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(run.NewCmd(), version.NewCmd())
	return cmd
}

// Execute runs the command tree with args under ctx.
func Execute(ctx context.Context, args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
