package cli

import (
	"github.com/spf13/cobra"

	"github.com/model-collapse/cocoviz/internal/serve"
)

func (c *CLI) serveCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve annotated previews over HTTP",
		Long: `serve loads the annotation file once and renders images on request:

  GET /images              list of file names in the dataset
  GET /render?image=NAME   annotated image as JPEG`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, r, err := c.runner(opts.cfg, opts.cfg.Output)
			if err != nil {
				return err
			}
			return serve.New(ds, r, c.Logger).ListenAndServe(cmd.Context(), opts.cfg.Addr)
		},
	}

	cmd.Flags().StringVar(&opts.cfg.Addr, "addr", opts.cfg.Addr, "listen address")

	return cmd
}
