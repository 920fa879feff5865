// Package cli implements the cocoviz command-line interface.
//
// The root command renders every image of a COCO annotation file into an
// output directory; serve renders previews on demand over HTTP. Per-image
// status lines go to stdout, diagnostics to the charmbracelet logger on
// stderr.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/model-collapse/cocoviz/internal/annotate"
	"github.com/model-collapse/cocoviz/internal/coco"
	"github.com/model-collapse/cocoviz/internal/config"
	"github.com/model-collapse/cocoviz/internal/render"
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	stdout io.Writer
}

// New creates a CLI writing status lines to stdout and logs to stderr.
func New(stdout, stderr io.Writer) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Level:           log.InfoLevel,
		}),
		stdout: stdout,
	}
}

// Execute parses os.Args and runs the selected command.
func (c *CLI) Execute(ctx context.Context) error {
	return c.RootCommand().ExecuteContext(ctx)
}

type options struct {
	configPath string
	verbose    bool
	cfg        config.Config
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	opts := &options{cfg: config.Default()}

	root := &cobra.Command{
		Use:           "cocoviz",
		Short:         "Draw COCO polygon annotations onto their images",
		Long:          `cocoviz draws the segmentation polygons of a COCO annotation file onto the source images, with a translucent fill, an outline and a category label per polygon, and writes annotated_<name> copies to an output directory.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				c.Logger.SetLevel(log.DebugLevel)
			}
			return opts.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd.Context(), opts.cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log per-image details")
	flags.StringVar(&opts.configPath, "config", "", "JSON or TOML config file")
	flags.StringVar(&opts.cfg.Annotations, "annotations", opts.cfg.Annotations, "path to the COCO annotations JSON file")
	flags.StringVar(&opts.cfg.Images, "images", opts.cfg.Images, "folder containing the images")
	flags.StringVar(&opts.cfg.Backend, "backend", opts.cfg.Backend, fmt.Sprintf("drawing backend %v", render.Backends()))
	root.Flags().StringVarP(&opts.cfg.Output, "output", "o", opts.cfg.Output, "directory for annotated images")

	root.AddCommand(c.serveCommand(opts))

	return root
}

// resolve loads the config file, if any, and reapplies flags the user set
// explicitly so they win over file values.
func (o *options) resolve(cmd *cobra.Command) error {
	if o.configPath == "" {
		return nil
	}

	flagged := o.cfg
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("annotations", &cfg.Annotations, flagged.Annotations)
	set("images", &cfg.Images, flagged.Images)
	set("backend", &cfg.Backend, flagged.Backend)
	set("output", &cfg.Output, flagged.Output)
	set("addr", &cfg.Addr, flagged.Addr)

	o.cfg = cfg
	return nil
}

func (c *CLI) runner(cfg config.Config, outputDir string) (*coco.Dataset, *annotate.Runner, error) {
	backend, err := render.Lookup(cfg.Backend)
	if err != nil {
		return nil, nil, err
	}

	ds, err := coco.Load(cfg.Annotations)
	if err != nil {
		return nil, nil, err
	}
	c.Logger.Debug("loaded annotations",
		"path", cfg.Annotations,
		"categories", len(ds.Categories),
		"images", len(ds.Images),
		"annotations", len(ds.Annotations))

	r := annotate.New(ds, cfg.Images, outputDir,
		annotate.WithStyle(cfg.Style),
		annotate.WithBackend(backend),
		annotate.WithOutput(c.stdout),
		annotate.WithLogger(c.Logger))

	return ds, r, nil
}

func (c *CLI) runBatch(ctx context.Context, cfg config.Config) error {
	out, err := annotate.PrepareOutput(cfg.Output)
	if err != nil {
		return err
	}

	_, r, err := c.runner(cfg, out)
	if err != nil {
		return err
	}

	start := time.Now()
	sum, err := r.Run(ctx)
	if err != nil {
		return err
	}

	c.Logger.Info("Annotated",
		"images", sum.Processed,
		"missing", sum.Missing,
		"unreadable", sum.Unreadable,
		"output", out,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return nil
}
