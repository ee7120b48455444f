package run

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/flarebyte/smelter/internal/bridge"
	"github.com/flarebyte/smelter/internal/config"
	"github.com/flarebyte/smelter/internal/logger"
	"github.com/flarebyte/smelter/internal/manifest"
	"github.com/flarebyte/smelter/internal/source"
	"github.com/spf13/cobra"
)

type options struct {
	config string
	root   string
	format string
}

// NewCmd creates the `smelter run` command.
func NewCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "run",
		Short:         "Discover the source tree, run the configured steps and print a manifest",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.config == "" {
				return configError(fmt.Errorf("missing required flag: --config"))
			}
			return execute(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "Path to config file (.cue)")
	cmd.Flags().StringVar(&opts.root, "root", "", "Override the configured working directory")
	cmd.Flags().StringVar(&opts.format, "format", "", "Manifest format: yaml or json")
	return cmd
}

func execute(ctx context.Context, w io.Writer, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(opts.config)
	if err != nil {
		return configError(err)
	}
	logger.SetLevel(cfg.Log.Level)

	format := cfg.Output.Format
	if opts.format != "" {
		format = opts.format
	}
	if format != manifest.FormatYAML && format != manifest.FormatJSON {
		return configError(fmt.Errorf("unsupported output format: %s", format))
	}
	steps, err := config.BuildSteps(cfg)
	if err != nil {
		return configError(err)
	}

	p := bridge.New(workDir(opts, cfg)).Src(cfg.Source).SetMetadata(cfg.Metadata)
	defer func() { _ = p.Close() }()
	for _, s := range steps {
		p.Use(s)
	}

	files, err := source.Discover(ctx, p.Engine().Source(), source.Options{NoGitignore: cfg.Discovery.NoGitignore})
	if err != nil {
		return execError(err)
	}
	logger.Info("run: discovered %d files under %s", len(files), p.Engine().Source())
	out, err := p.Process(ctx, files)
	if err != nil {
		return execError(err)
	}
	logger.Info("run: %d files out", len(out))
	if err := manifest.Render(w, out, p.Metadata(), format); err != nil {
		return execError(err)
	}
	return nil
}

// workDir resolves the engine directory. A relative configured directory
// is taken from the config file location.
func workDir(opts options, cfg *config.Config) string {
	if opts.root != "" {
		return opts.root
	}
	if filepath.IsAbs(cfg.Directory) {
		return cfg.Directory
	}
	return filepath.Join(filepath.Dir(opts.config), cfg.Directory)
}
