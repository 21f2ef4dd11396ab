package nodetype

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
)

// Catalogue files declare extra node types in HCL:
//
//	node_type "summarize" {
//	  title        = "Summarize"
//	  badge        = "Transform"
//	  accent_color = "#F97316"
//
//	  field "maxWords" {
//	    label   = "Max words"
//	    input   = "number"
//	    step    = 1
//	    min     = 1
//	    default = 100
//	  }
//
//	  field "summaryName" {
//	    input           = "text"
//	    indexed_default = "summary_"
//	  }
//
//	  handle "in"  { direction = "target" }
//	  handle "out" { direction = "source" }
//	}
//
// Handles default to the left side for targets and the right side for sources.

type hclCatalogue struct {
	NodeTypes []*hclNodeType `hcl:"node_type,block"`
	Remain    hcl.Body       `hcl:",remain"`
}

type hclNodeType struct {
	Key         string       `hcl:"key,label"`
	Title       string       `hcl:"title"`
	Badge       string       `hcl:"badge,optional"`
	Description string       `hcl:"description,optional"`
	AccentColor string       `hcl:"accent_color,optional"`
	Fields      []*hclField  `hcl:"field,block"`
	Handles     []*hclHandle `hcl:"handle,block"`
}

type hclField struct {
	Key            string         `hcl:"key,label"`
	Label          string         `hcl:"label,optional"`
	Input          string         `hcl:"input"`
	Default        hcl.Expression `hcl:"default,optional"`
	IndexedDefault string         `hcl:"indexed_default,optional"`
	Options        []string       `hcl:"options,optional"`
	Step           *float64       `hcl:"step,optional"`
	Min            *float64       `hcl:"min,optional"`
	Max            *float64       `hcl:"max,optional"`
	Rows           int            `hcl:"rows,optional"`
	Placeholder    string         `hcl:"placeholder,optional"`
	HelperText     string         `hcl:"helper_text,optional"`
}

type hclHandle struct {
	Suffix    string  `hcl:"suffix,label"`
	Direction string  `hcl:"direction"`
	Side      string  `hcl:"side,optional"`
	Ratio     float64 `hcl:"ratio,optional"`
	Label     string  `hcl:"label,optional"`
}

// HCLLoader reads node type catalogues from HCL files.
type HCLLoader struct {
	Logger *log.Logger
	parser *hclparse.Parser
}

// NewHCLLoader creates a loader. A nil logger uses log.Default().
func NewHCLLoader(logger *log.Logger) *HCLLoader {
	if logger == nil {
		logger = log.Default()
	}
	return &HCLLoader{Logger: logger, parser: hclparse.NewParser()}
}

// LoadFile parses path and registers every node type it declares.
// It returns the registered keys.
func (l *HCLLoader) LoadFile(reg *Registry, path string) ([]string, error) {
	file, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, diags, "parse catalogue %s", path)
	}
	return l.register(reg, file, path)
}

// Load parses src (named filename in diagnostics) and registers its node types.
func (l *HCLLoader) Load(reg *Registry, src []byte, filename string) ([]string, error) {
	file, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, diags, "parse catalogue %s", filename)
	}
	return l.register(reg, file, filename)
}

func (l *HCLLoader) register(reg *Registry, file *hcl.File, name string) ([]string, error) {
	configs, err := decodeCatalogue(file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "catalogue %s", name)
	}

	keys := make([]string, 0, len(configs))
	for _, cfg := range configs {
		if err := reg.Register(cfg.Key, cfg); err != nil {
			return keys, err
		}
		keys = append(keys, cfg.Key)
		l.Logger.Debug("registered node type", "type", cfg.Key, "fields", len(cfg.Fields), "file", name)
	}
	l.Logger.Info("loaded node type catalogue", "file", name, "types", len(keys))
	return keys, nil
}

func decodeCatalogue(file *hcl.File) ([]Config, error) {
	var root hclCatalogue
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, diags
	}

	out := make([]Config, 0, len(root.NodeTypes))
	for _, nt := range root.NodeTypes {
		cfg, err := translateNodeType(nt)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func translateNodeType(nt *hclNodeType) (Config, error) {
	cfg := Config{
		Key:         nt.Key,
		Title:       nt.Title,
		Badge:       nt.Badge,
		Description: nt.Description,
		AccentColor: nt.AccentColor,
	}

	for _, f := range nt.Fields {
		field, err := translateField(f)
		if err != nil {
			return Config{}, fmt.Errorf("node type %q: field %q: %w", nt.Key, f.Key, err)
		}
		cfg.Fields = append(cfg.Fields, field)
	}

	handles := make(StaticHandles, 0, len(nt.Handles))
	for _, h := range nt.Handles {
		spec, err := translateHandle(h)
		if err != nil {
			return Config{}, fmt.Errorf("node type %q: handle %q: %w", nt.Key, h.Suffix, err)
		}
		handles = append(handles, spec)
	}
	cfg.Handles = handles
	return cfg, nil
}

func translateField(f *hclField) (Field, error) {
	field := Field{Key: f.Key, Label: f.Label, HelperText: f.HelperText}
	if field.Label == "" {
		field.Label = f.Key
	}

	var want cty.Type
	switch InputKind(f.Input) {
	case KindText:
		field.Input, want = TextInput{Placeholder: f.Placeholder}, cty.String
	case KindTextarea:
		field.Input, want = TextareaInput{Placeholder: f.Placeholder, Rows: f.Rows}, cty.String
	case KindNumber:
		in := NumberInput{Min: f.Min, Max: f.Max}
		if f.Step != nil {
			in.Step = *f.Step
		}
		field.Input, want = in, cty.Number
	case KindSelect:
		if len(f.Options) == 0 {
			return Field{}, fmt.Errorf("select input needs options")
		}
		field.Input, want = SelectInput{Options: Options(f.Options...)}, cty.String
	case KindCheckbox:
		field.Input, want = CheckboxInput{}, cty.Bool
	default:
		return Field{}, fmt.Errorf("unknown input kind %q", f.Input)
	}

	if f.IndexedDefault != "" {
		field.Default = IndexedName(f.IndexedDefault)
		return field, nil
	}

	def, err := evalDefault(f.Default, want)
	if err != nil {
		return Field{}, err
	}
	if def != nil {
		if sel, ok := field.Input.(SelectInput); ok && !sel.Has(def.(string)) {
			return Field{}, fmt.Errorf("default %q is not an option", def)
		}
		field.Default = Literal(def)
	}
	return field, nil
}

// evalDefault evaluates a default expression without variables and converts
// it to the Go value stored in node data. A missing or null default is nil.
func evalDefault(expr hcl.Expression, want cty.Type) (any, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid default: %w", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("default must be a constant")
	}

	val, err := convert.Convert(val, want)
	if err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	switch want {
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case cty.Bool:
		return val.True(), nil
	default:
		return val.AsString(), nil
	}
}

func translateHandle(h *hclHandle) (HandleSpec, error) {
	dir := graph.Direction(h.Direction)
	if !dir.Valid() {
		return HandleSpec{}, fmt.Errorf("direction must be %q or %q", graph.DirSource, graph.DirTarget)
	}

	side := Side(h.Side)
	switch side {
	case SideLeft, SideRight:
	case "":
		side = SideRight
		if dir == graph.DirTarget {
			side = SideLeft
		}
	default:
		return HandleSpec{}, fmt.Errorf("side must be %q or %q", SideLeft, SideRight)
	}

	if h.Ratio < 0 || h.Ratio > 1 {
		return HandleSpec{}, fmt.Errorf("ratio must be within [0, 1]")
	}
	return HandleSpec{Direction: dir, Side: side, IDSuffix: h.Suffix, Ratio: h.Ratio, Label: h.Label}, nil
}
