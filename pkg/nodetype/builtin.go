package nodetype

import (
	"fmt"
	"math"

	"github.com/matzehuels/pipewright/pkg/graph"
)

// Built-in type keys.
const (
	TypeInput    = "customInput"
	TypeLLM      = "llm"
	TypeOutput   = "customOutput"
	TypeText     = "text"
	TypeMath     = "math"
	TypeDecision = "decision"
)

// Name prefixes for gap-filled display names.
const (
	InputNamePrefix  = "input_"
	OutputNamePrefix = "output_"
)

// Decision node modes.
const (
	DecisionBinary = "binary"
	DecisionSwitch = "switch"

	maxDecisionCases = 16
)

// Builtins returns the built-in catalogue in palette order.
func Builtins() []Config {
	return []Config{
		{
			Key:         TypeInput,
			Title:       "Input",
			Badge:       "Source",
			Description: "Pass values of various data types into your pipeline",
			AccentColor: "#0EA5E9",
			Fields: []Field{
				{
					Key:        "inputName",
					Label:      "Name",
					Input:      TextInput{},
					Default:    IndexedName(InputNamePrefix),
					HelperText: "Unique identifier surfaced to downstream nodes.",
				},
				{
					Key:     "inputType",
					Label:   "Type",
					Input:   SelectInput{Options: Options("Text", "File", "Number")},
					Default: Literal("Text"),
				},
			},
			Handles: StaticHandles{
				{Direction: graph.DirSource, Side: SideRight, IDSuffix: "value", Ratio: 0.5},
			},
		},
		{
			Key:         TypeLLM,
			Title:       "LLM",
			Badge:       "Model",
			Description: "Send a prompt to a language model.",
			AccentColor: "#8B5CF6",
			Fields: []Field{
				{
					Key:   "model",
					Label: "Model",
					Input: SelectInput{Options: []Option{
						{Label: "GPT-4o", Value: "gpt-4o"},
						{Label: "GPT-4o mini", Value: "gpt-4o-mini"},
						{Label: "Claude", Value: "claude"},
					}},
					Default: Literal("gpt-4o-mini"),
				},
				{
					Key:     "temperature",
					Label:   "Temperature",
					Input:   NumberInput{Step: 0.1, Min: Float(0), Max: Float(2)},
					Default: Literal(0.7),
				},
			},
			Handles: StaticHandles{
				{Direction: graph.DirTarget, Side: SideLeft, IDSuffix: "system", Ratio: 1.0 / 3, Label: "System"},
				{Direction: graph.DirTarget, Side: SideLeft, IDSuffix: "prompt", Ratio: 2.0 / 3, Label: "Prompt"},
				{Direction: graph.DirSource, Side: SideRight, IDSuffix: "response", Ratio: 0.5, Label: "Response"},
			},
		},
		{
			Key:         TypeOutput,
			Title:       "Output",
			Badge:       "Sink",
			Description: "Pass data out of your pipeline",
			AccentColor: "#10B981",
			Fields: []Field{
				{
					Key:        "outputName",
					Label:      "Output",
					Input:      TextInput{},
					Default:    IndexedName(OutputNamePrefix),
					HelperText: "Readable label for this pipeline output.",
				},
				{
					Key:     "outputType",
					Label:   "Format",
					Input:   SelectInput{Options: Options("Text", "Image", "JSON")},
					Default: Literal("Text"),
				},
				{
					Key:        "isPrimary",
					Label:      "Mark as primary",
					Input:      CheckboxInput{},
					Default:    Literal(false),
					HelperText: "Primary outputs surface first in API responses.",
				},
			},
			Handles: StaticHandles{
				{Direction: graph.DirTarget, Side: SideLeft, IDSuffix: "value", Ratio: 0.5},
			},
		},
		{
			Key:         TypeText,
			Title:       "Text",
			Badge:       "Utility",
			Description: "Combine variables into a static or templated string.",
			AccentColor: "#F59E0B",
			Fields: []Field{
				{Key: "text", Label: "Text", Input: TextareaInput{Rows: 3}, Default: Literal("{{input}}")},
				{Key: "trimWhitespace", Label: "Trim whitespace", Input: CheckboxInput{}, Default: Literal(false)},
			},
			Handles: StaticHandles{
				{Direction: graph.DirSource, Side: SideRight, IDSuffix: "output", Label: "Output"},
			},
		},
		{
			Key:         TypeMath,
			Title:       "Math",
			Badge:       "Transform",
			Description: "Perform basic numeric operations on inputs.",
			AccentColor: "#EC4899",
			Fields: []Field{
				{
					Key:   "operation",
					Label: "Operation",
					Input: SelectInput{Options: []Option{
						{Label: "Add", Value: "add"},
						{Label: "Subtract", Value: "subtract"},
						{Label: "Multiply", Value: "multiply"},
						{Label: "Divide", Value: "divide"},
					}},
					Default: Literal("add"),
				},
				{Key: "operand", Label: "Operand", Input: NumberInput{Step: 0.5}, Default: Literal(1.0)},
				{Key: "roundResult", Label: "Round result", Input: CheckboxInput{}, Default: Literal(false)},
			},
			Handles: StaticHandles{
				{Direction: graph.DirTarget, Side: SideLeft, IDSuffix: "primary", Ratio: 0.4},
				{Direction: graph.DirTarget, Side: SideLeft, IDSuffix: "secondary", Ratio: 0.7},
				{Direction: graph.DirSource, Side: SideRight, IDSuffix: "result", Ratio: 0.5},
			},
		},
		{
			Key:         TypeDecision,
			Title:       "Branch",
			Badge:       "Logic",
			Description: "Evaluate a condition and split the flow.",
			AccentColor: "#6366F1",
			Fields: []Field{
				{
					Key:        "expression",
					Label:      "Condition",
					Input:      TextareaInput{Rows: 2},
					Default:    Literal("{{$input.score}} > 0.7"),
					HelperText: "Use JavaScript-style expressions with pipeline variables.",
				},
				{Key: "fallback", Label: "Fallback value", Input: TextInput{}, Default: Literal("false")},
				{
					Key:     "mode",
					Label:   "Mode",
					Input:   SelectInput{Options: []Option{{Label: "True / false", Value: DecisionBinary}, {Label: "Switch", Value: DecisionSwitch}}},
					Default: Literal(DecisionBinary),
				},
				{
					Key:        "cases",
					Label:      "Cases",
					Input:      NumberInput{Step: 1, Min: Float(1), Max: Float(maxDecisionCases)},
					Default:    Literal(2.0),
					HelperText: "Number of case outputs in switch mode.",
				},
			},
			Handles: HandleFunc(decisionHandles),
		},
	}
}

// RegisterBuiltins registers every built-in type.
func RegisterBuiltins(r *Registry) error {
	for _, cfg := range Builtins() {
		if err := r.Register(cfg.Key, cfg); err != nil {
			return err
		}
	}
	return nil
}

// decisionHandles lays out one input and either a true/false pair or
// case-0..case-{n-1} plus a default output, spread evenly down the right side.
func decisionHandles(ctx HandleContext) []HandleSpec {
	handles := []HandleSpec{
		{Direction: graph.DirTarget, Side: SideLeft, IDSuffix: "input", Ratio: 0.5},
	}

	mode, _ := ctx.Value("mode")
	if mode != DecisionSwitch {
		return append(handles,
			HandleSpec{Direction: graph.DirSource, Side: SideRight, IDSuffix: "true", Ratio: 0.35, Label: "True"},
			HandleSpec{Direction: graph.DirSource, Side: SideRight, IDSuffix: "false", Ratio: 0.65, Label: "False"},
		)
	}

	n := caseCount(ctx)
	outs := n + 1
	for i := range n {
		handles = append(handles, HandleSpec{
			Direction: graph.DirSource,
			Side:      SideRight,
			IDSuffix:  fmt.Sprintf("case-%d", i),
			Ratio:     float64(i+1) / float64(outs+1),
			Label:     fmt.Sprintf("Case %d", i),
		})
	}
	return append(handles, HandleSpec{
		Direction: graph.DirSource,
		Side:      SideRight,
		IDSuffix:  "default",
		Ratio:     float64(outs) / float64(outs+1),
		Label:     "Default",
	})
}

func caseCount(ctx HandleContext) int {
	v, _ := ctx.Value("cases")
	var n int
	switch c := v.(type) {
	case float64:
		n = int(math.Round(c))
	case int:
		n = c
	default:
		n = 2
	}
	return max(1, min(n, maxDecisionCases))
}
