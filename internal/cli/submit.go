package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pipewright/pkg/config"
	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/submit"
)

type submitOpts struct {
	url     string
	timeout time.Duration
}

func (c *CLI) submitCommand() *cobra.Command {
	var opts submitOpts

	cmd := &cobra.Command{
		Use:   "submit <pipeline.json|->",
		Short: "Send a pipeline to the validation service",
		Long: `Send a pipeline document ({"nodes": [...], "edges": [...]}) to the
validation service and report whether it is a DAG.

The command fails if the service cannot be reached, answers with an error
status or sends an unreadable response. A DAG or non-DAG answer both
succeed.`,
		Example: `  pipewright submit pipeline.json
  cat pipeline.json | pipewright submit -
  pipewright submit pipeline.json --url http://validator:8000/pipelines/parse`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("url") {
				if err := errors.ValidateURL(opts.url); err != nil {
					return err
				}
				cfg.Service.URL = opts.url
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Service.Timeout = config.Duration(opts.timeout)
			}

			p, err := readPipeline(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			client := submit.NewClient(cfg.Service.URL,
				submit.WithTimeout(cfg.Service.Timeout.Std()),
				submit.WithLogger(loggerFromContext(cmd.Context())))
			return runSubmit(cmd.Context(), cmd.OutOrStdout(), client, p)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", submit.DefaultEndpoint, "validation service endpoint")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout (0 for none)")

	return cmd
}

func runSubmit(ctx context.Context, w io.Writer, client submit.Submitter, p graph.Pipeline) error {
	spinner := newSpinner(ctx, w, "Submitting pipeline...")
	spinner.Start()
	res, err := client.Submit(ctx, p)
	spinner.Stop()

	out := submit.Interpret(res, err)
	printOutcome(w, out)
	if out.Failed() {
		return errors.Wrap(out.Code, err, "%s", out.Message)
	}
	return nil
}

// readPipeline reads a pipeline document from path, or from stdin for "-".
func readPipeline(path string, stdin io.Reader) (graph.Pipeline, error) {
	if path == "-" {
		return graph.Read(stdin)
	}
	return graph.ReadFile(path)
}
