package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pipewright/pkg/canvas"
	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/nodetype"
	"github.com/matzehuels/pipewright/pkg/session"
	"github.com/matzehuels/pipewright/pkg/store"
	"github.com/matzehuels/pipewright/pkg/submit"
)

func (c *CLI) sessionCommand() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "session <script|->",
		Short: "Run an editing script against an in-memory canvas",
		Long: `Replay canvas gestures from a script, one command per line:

  add <type> <x> <y>              drop a node at a screen point
  set <node> <field> <value...>   edit a field
  connect <node[:handle]> <node[:handle]>
  disconnect <edge-id>
  remove <node>
  move <node> <x> <y>             move a node (graph coordinates)
  pan <x> <y> [zoom]              change the viewport
  handles <node>                  list a node's handles
  show                            list nodes and edges
  submit                          validate the current graph
  export [file]                   write the pipeline as JSON

Lines starting with # are comments. Rejected connections and bad field
values are reported and the script continues; any other error stops it.`,
		Example: `  pipewright session demo.pw
  printf 'add llm 100 100\nshow\n' | pipewright session -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("url") {
				if err := errors.ValidateURL(url); err != nil {
					return err
				}
				cfg.Service.URL = url
			}
			types, err := c.catalogue(cfg)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			logger := loggerFromContext(cmd.Context())
			client := submit.NewClient(cfg.Service.URL,
				submit.WithTimeout(cfg.Service.Timeout.Std()),
				submit.WithLogger(logger))
			s := session.New(types, client, session.Options{Logger: logger, SnapGrid: cfg.Canvas.SnapGrid})
			defer s.Close()

			return newScriptRunner(s, cmd.OutOrStdout()).Run(cmd.Context(), in)
		},
	}

	cmd.Flags().StringVar(&url, "url", submit.DefaultEndpoint, "validation service endpoint")
	return cmd
}

// scriptRunner applies script lines to a session.
type scriptRunner struct {
	s   *session.Session
	out io.Writer
}

func newScriptRunner(s *session.Session, out io.Writer) *scriptRunner {
	return &scriptRunner{s: s, out: out}
}

// Run executes every line of in. Recoverable editing errors are logged as
// warnings; anything else stops the run with the offending line number.
func (r *scriptRunner) Run(ctx context.Context, in io.Reader) error {
	logger := loggerFromContext(ctx)
	sc := bufio.NewScanner(in)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		err := r.exec(ctx, line)
		if err == nil {
			continue
		}
		if recoverable(err) {
			logger.Warn(errors.UserMessage(err), "line", lineNo)
			printWarning(r.out, "line %d: %s", lineNo, errors.UserMessage(err))
			continue
		}
		return fmt.Errorf("line %d: %w", lineNo, err)
	}
	return sc.Err()
}

func recoverable(err error) bool {
	return errors.Is(err, errors.ErrCodeInvalidInput) || errors.Is(err, errors.ErrCodeConnectionRejected)
}

func (r *scriptRunner) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "add":
		return r.add(args)
	case "set":
		if len(args) < 3 {
			return usage("set <node> <field> <value...>")
		}
		value := restOfLine(line, 3)
		if err := r.s.SetField(args[0], args[1], value); err != nil {
			return err
		}
		printDetail(r.out, "%s.%s = %s", args[0], args[1], value)
		return nil
	case "connect":
		return r.connect(args)
	case "disconnect":
		if len(args) != 1 {
			return usage("disconnect <edge-id>")
		}
		if !r.s.Disconnect(args[0]) {
			return errors.New(errors.ErrCodeInvalidInput, "edge %q not found", args[0])
		}
		printSuccess(r.out, "Removed edge %s", args[0])
		return nil
	case "remove":
		if len(args) != 1 {
			return usage("remove <node>")
		}
		if !r.s.Remove(args[0]) {
			return errors.New(errors.ErrCodeInvalidInput, "node %q not found", args[0])
		}
		printSuccess(r.out, "Removed %s", args[0])
		return nil
	case "move":
		if len(args) != 3 {
			return usage("move <node> <x> <y>")
		}
		x, y, err := parsePoint(args[1], args[2])
		if err != nil {
			return err
		}
		if !r.s.Move(args[0], graph.Position{X: x, Y: y}) {
			return errors.New(errors.ErrCodeInvalidInput, "node %q not found", args[0])
		}
		return nil
	case "pan":
		return r.pan(args)
	case "handles":
		if len(args) != 1 {
			return usage("handles <node>")
		}
		layout, err := r.s.Handles(args[0])
		if err != nil {
			return err
		}
		for _, l := range formatLayout(layout) {
			printDetail(r.out, "%s", l)
		}
		return nil
	case "show":
		r.show()
		return nil
	case "submit":
		r.submit(ctx)
		return nil
	case "export":
		return r.export(args)
	default:
		return errors.New(errors.ErrCodeInvalidPayload, "unknown command %q", cmd)
	}
}

func usage(s string) error {
	return errors.New(errors.ErrCodeInvalidPayload, "usage: %s", s)
}

func (r *scriptRunner) add(args []string) error {
	if len(args) != 3 {
		return usage("add <type> <x> <y>")
	}
	x, y, err := parsePoint(args[1], args[2])
	if err != nil {
		return err
	}
	node, ok, err := r.s.Drop(canvas.Point{X: x, Y: y}, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "nothing dropped")
	}
	printSuccess(r.out, "Added %s at (%g, %g)", node.ID, node.Position.X, node.Position.Y)
	return nil
}

// parseEndpoint splits "node[:suffix]" into a node id and handle id.
func parseEndpoint(s string) (nodeID, handleID string) {
	nodeID, suffix, _ := strings.Cut(s, ":")
	return nodeID, nodetype.ResolveHandleID(nodeID, suffix)
}

func (r *scriptRunner) connect(args []string) error {
	if len(args) != 2 {
		return usage("connect <node[:handle]> <node[:handle]>")
	}
	src, srcHandle := parseEndpoint(args[0])
	dst, dstHandle := parseEndpoint(args[1])
	e, err := r.s.Connect(store.Connection{
		Source:       src,
		SourceHandle: srcHandle,
		Target:       dst,
		TargetHandle: dstHandle,
	})
	if err != nil {
		return err
	}
	printSuccess(r.out, "Connected %s", e.ID)
	return nil
}

func (r *scriptRunner) pan(args []string) error {
	if len(args) != 2 && len(args) != 3 {
		return usage("pan <x> <y> [zoom]")
	}
	x, y, err := parsePoint(args[0], args[1])
	if err != nil {
		return err
	}
	vp := r.s.Viewport()
	vp.X, vp.Y = x, y
	if len(args) == 3 {
		z, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidPayload, "bad zoom %q", args[2])
		}
		vp.Zoom = z
	}
	return r.s.SetViewport(vp)
}

func (r *scriptRunner) show() {
	snap := r.s.Snapshot()
	st := r.s.Stats()
	printInfo(r.out, "%d nodes, %d edges", st.Nodes, st.Edges)
	for _, n := range snap.Nodes {
		printKeyValue(r.out, n.ID, fmt.Sprintf("%s @ (%g, %g)", n.Type, n.Position.X, n.Position.Y))
		for _, k := range slices.Sorted(maps.Keys(n.Data)) {
			if k == graph.DataKeyID || k == graph.DataKeyType {
				continue
			}
			printDetail(r.out, "%s = %v", k, n.Data[k])
		}
	}
	for _, e := range snap.Edges {
		printDetail(r.out, "%s %s %s", e.SourceHandle, iconArrow, e.TargetHandle)
	}
}

// submit validates the current graph and waits for the outcome.
func (r *scriptRunner) submit(ctx context.Context) {
	var out submit.Outcome
	surface := r.s.NewSurface(func(o submit.Outcome) { out = o })
	spinner := newSpinner(ctx, r.out, "Submitting pipeline...")
	spinner.Start()
	r.s.Submit(ctx, surface)
	r.s.Wait()
	spinner.Stop()
	surface.Close()
	printOutcome(r.out, out)
}

func (r *scriptRunner) export(args []string) error {
	snap := r.s.Snapshot()
	if len(args) == 0 {
		return graph.Write(snap, r.out)
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := graph.Write(snap, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	printFile(r.out, args[0])
	return nil
}

func parsePoint(xs, ys string) (x, y float64, err error) {
	if x, err = strconv.ParseFloat(xs, 64); err != nil {
		return 0, 0, errors.New(errors.ErrCodeInvalidPayload, "bad coordinate %q", xs)
	}
	if y, err = strconv.ParseFloat(ys, 64); err != nil {
		return 0, 0, errors.New(errors.ErrCodeInvalidPayload, "bad coordinate %q", ys)
	}
	return x, y, nil
}

// restOfLine drops the first n fields of line and returns the remainder with
// its inner spacing intact.
func restOfLine(line string, n int) string {
	s := line
	for range n {
		s = strings.TrimLeft(s, " \t")
		i := strings.IndexAny(s, " \t")
		if i < 0 {
			return ""
		}
		s = s[i:]
	}
	return strings.TrimSpace(s)
}
