package cli

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pipewright/pkg/canvas"
	"github.com/matzehuels/pipewright/pkg/nodetype"
)

func (c *CLI) typesCommand() *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the node-type catalogue",
		Long: `List every registered node type with its fields: the built-ins followed
by types loaded from HCL files.

With --pick, choose a type from an interactive palette and print its
drag payload, ready to pass to "session" scripts or a canvas drop.`,
		Example: `  pipewright types
  pipewright types --types ./extra.hcl
  pipewright types --pick`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			reg, err := c.catalogue(cfg)
			if err != nil {
				return err
			}
			configs, err := catalogueConfigs(reg)
			if err != nil {
				return err
			}
			if pick {
				return runPalette(cmd.InOrStdin(), cmd.OutOrStdout(), configs)
			}
			fmt.Fprintln(cmd.OutOrStdout(), typesTable(configs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&pick, "pick", false, "pick a type interactively and print its drag payload")
	return cmd
}

// catalogueConfigs returns every registered config in registration order.
func catalogueConfigs(reg *nodetype.Registry) ([]nodetype.Config, error) {
	keys := reg.Types()
	out := make([]nodetype.Config, 0, len(keys))
	for _, k := range keys {
		cfg, err := reg.Get(k)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func paletteEntries(configs []nodetype.Config) []PaletteEntry {
	out := make([]PaletteEntry, len(configs))
	for i, cfg := range configs {
		out[i] = PaletteEntry{
			Key:         cfg.Key,
			Title:       cfg.Title,
			Badge:       cfg.Badge,
			Description: cfg.Description,
			Accent:      cfg.AccentColor,
		}
	}
	return out
}

func runPalette(in io.Reader, out io.Writer, configs []nodetype.Config) error {
	model := NewTypePaletteModel(paletteEntries(configs))
	final, err := tea.NewProgram(model, tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	m := final.(TypePaletteModel)
	if m.Selected == nil {
		return nil
	}
	fmt.Fprintln(out, canvas.EncodeDropPayload(m.Selected.Key))
	return nil
}
