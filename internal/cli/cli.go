// Package cli implements the pipewright command-line interface.
//
// The CLI hosts the editor core outside a browser: it runs the validation
// service, submits and renders pipeline documents, lists the node-type
// catalogue and drives scripted editing sessions. It is built on cobra and
// logs through charmbracelet/log.
//
// # Commands
//
//   - serve: run the validation service
//   - submit: send a pipeline document to the validation service
//   - render: draw a pipeline document as DOT or SVG
//   - types: list the node-type catalogue, or pick one interactively
//   - session: run an editing script against an in-memory canvas
//
// # Configuration
//
// --config points at a TOML file (see package config). --types adds HCL
// node-type files on top of the configured ones.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pipewright/pkg/buildinfo"
	"github.com/matzehuels/pipewright/pkg/config"
	"github.com/matzehuels/pipewright/pkg/nodetype"
)

const appName = "pipewright"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	typeFiles  []string
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Pipewright edits and validates node pipelines",
		Long:          `Pipewright is the core of a visual pipeline editor: a node-type catalogue, a graph store with connection rules, and a validation service that reports whether a pipeline is a DAG.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a TOML config file")
	root.PersistentFlags().StringSliceVar(&c.typeFiles, "types", nil, "extra HCL node-type files (repeatable)")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.submitCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.typesCommand())
	root.AddCommand(c.sessionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads --config, or the defaults when it is unset.
func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// catalogue builds the sealed node-type registry: built-ins, then the
// configured catalogue files, then --types.
func (c *CLI) catalogue(cfg config.Config) (*nodetype.Registry, error) {
	reg := nodetype.NewRegistry()
	if err := nodetype.RegisterBuiltins(reg); err != nil {
		return nil, err
	}

	loader := nodetype.NewHCLLoader(c.Logger)
	files := append(append([]string{}, cfg.Catalogue.Files...), c.typeFiles...)
	for _, path := range files {
		keys, err := loader.LoadFile(reg, path)
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("loaded node types", "file", path, "types", keys)
	}
	reg.Seal()
	return reg, nil
}
