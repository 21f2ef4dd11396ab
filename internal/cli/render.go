package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/render"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
)

type renderOpts struct {
	output   string
	format   string
	detailed bool
}

func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <pipeline.json|->",
		Short: "Draw a pipeline as Graphviz DOT or SVG",
		Long: `Draw a pipeline document left to right, one box per node in its type's
accent colour. Nodes of unknown types are drawn dashed.

With --detailed, every field value is listed inside its node.`,
		Example: `  pipewright render pipeline.json -o pipeline.svg
  pipewright render pipeline.json --format dot | dot -Tpng > pipeline.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatDOT && opts.format != formatSVG {
				return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want %s or %s)", opts.format, formatDOT, formatSVG)
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			types, err := c.catalogue(cfg)
			if err != nil {
				return err
			}
			p, err := readPipeline(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runRender(cmd.Context(), cmd.OutOrStdout(), p, types, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&opts.format, "format", formatSVG, "output format: dot or svg")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "list field values inside nodes")

	return cmd
}

func runRender(ctx context.Context, stdout io.Writer, p graph.Pipeline, types render.Catalogue, opts renderOpts) error {
	prog := newProgress(loggerFromContext(ctx))

	out := []byte(render.ToDOT(p, types, render.Options{Detailed: opts.detailed}))
	if opts.format == formatSVG {
		svg, err := render.RenderSVG(ctx, string(out))
		if err != nil {
			return err
		}
		out = svg
	}

	if opts.output == "" {
		_, err := stdout.Write(out)
		return err
	}
	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	prog.done(fmt.Sprintf("Rendered %d nodes", len(p.Nodes)))
	printFile(stdout, opts.output)
	return nil
}
