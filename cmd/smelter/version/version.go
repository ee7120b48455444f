package version

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/flarebyte/smelter/internal/buildinfo"
	"github.com/spf13/cobra"
)

// Info is the payload printed by `smelter version --json`.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	BuiltBy string `json:"built_by"`
	Go      string `json:"go"`
	OS      string `json:"go_os"`
	Arch    string `json:"go_arch"`
}

// Current collects the build metadata of the running binary.
func Current() Info {
	return Info{
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
		Date:    buildinfo.Date,
		BuiltBy: buildinfo.BuiltBy,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
}

// NewCmd creates the `smelter version` command.
func NewCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !asJSON {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "smelter %s\n", buildinfo.Summary())
				return err
			}
			return writeJSON(cmd.OutOrStdout(), Current())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build metadata as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
