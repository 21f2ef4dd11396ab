package nodetype

import (
	"fmt"
	"testing"

	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
)

func TestResolveHandleID(t *testing.T) {
	tests := []struct {
		nodeID, suffix, want string
	}{
		{"customInput-0", "value", "customInput-0-value"},
		{"llm-3", "", "llm-3"},
		{"decision-1", "case-0", "decision-1-case-0"},
		{"a-b-c", "d", "a-b-c-d"},
	}
	for _, tt := range tests {
		if got := ResolveHandleID(tt.nodeID, tt.suffix); got != tt.want {
			t.Errorf("ResolveHandleID(%q, %q) = %q, want %q", tt.nodeID, tt.suffix, got, tt.want)
		}
	}
}

func TestHandleIDRoundTrip(t *testing.T) {
	nodeIDs := []string{"llm-0", "customInput-12", "decision-3", "a-b", "x"}
	suffixes := []string{"", "value", "case-1", "true", "a-b"}

	for _, id := range nodeIDs {
		for _, suffix := range suffixes {
			got, ok := OwnerNodeID(ResolveHandleID(id, suffix), suffix)
			if !ok || got != id {
				t.Errorf("round trip (%q, %q) = %q, %v", id, suffix, got, ok)
			}
		}
	}
}

func TestOwnerNodeIDMismatch(t *testing.T) {
	if _, ok := OwnerNodeID("llm-0-prompt", "response"); ok {
		t.Error("OwnerNodeID() matched a foreign suffix")
	}
	if _, ok := OwnerNodeID("-value", "value"); ok {
		t.Error("OwnerNodeID() accepted an empty node id")
	}
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		t.Fatalf("RegisterBuiltins() error: %v", err)
	}

	cfg, err := r.Get(TypeInput)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if cfg.Key != TypeInput || cfg.Title != "Input" {
		t.Errorf("Get() = %+v", cfg)
	}

	_, err = r.Get("nope")
	if !errors.Is(err, errors.ErrCodeUnknownNodeType) {
		t.Errorf("Get(unknown) error = %v, want UNKNOWN_NODE_TYPE", err)
	}
}

func TestRegistryTypesOrder(t *testing.T) {
	r := NewRegistry()
	_ = RegisterBuiltins(r)
	want := []string{TypeInput, TypeLLM, TypeOutput, TypeText, TypeMath, TypeDecision}
	got := r.Types()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}
}

func TestRegistrySealed(t *testing.T) {
	r := NewRegistry()
	r.Seal()
	err := r.Register("late", Config{Title: "Late"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Register() after Seal error = %v", err)
	}
	if !r.Sealed() {
		t.Error("Sealed() = false")
	}
}

func TestRegistryRejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		cfg  Config
	}{
		{name: "BadKey", key: "bad key", cfg: Config{}},
		{name: "ReservedField", key: "t", cfg: Config{Fields: []Field{{Key: "id", Input: TextInput{}}}}},
		{
			name: "DuplicateField",
			key:  "t",
			cfg:  Config{Fields: []Field{{Key: "a", Input: TextInput{}}, {Key: "a", Input: TextInput{}}}},
		},
		{name: "NoInput", key: "t", cfg: Config{Fields: []Field{{Key: "a"}}}},
		{name: "EmptySelect", key: "t", cfg: Config{Fields: []Field{{Key: "a", Input: SelectInput{}}}}},
		{
			name: "DuplicateHandle",
			key:  "t",
			cfg: Config{Handles: StaticHandles{
				{Direction: graph.DirSource, IDSuffix: "x"},
				{Direction: graph.DirTarget, IDSuffix: "x"},
			}},
		},
		{name: "BadDirection", key: "t", cfg: Config{Handles: StaticHandles{{Direction: "sideways"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewRegistry().Register(tt.key, tt.cfg); err == nil {
				t.Error("Register() succeeded, want error")
			}
		})
	}
}

func TestRegistryDuplicateType(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("t", Config{}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := r.Register("t", Config{}); err == nil {
		t.Error("Register(dup) succeeded")
	}
}

func TestRegistryDecorativeField(t *testing.T) {
	r := NewRegistry()
	cfg := Config{Fields: []Field{{Label: "Section"}, {Key: "a", Input: TextInput{}}}}
	if err := r.Register("t", cfg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	got, _ := r.Get("t")
	if n := len(got.KeyedFields()); n != 1 {
		t.Errorf("KeyedFields() len = %d, want 1", n)
	}
	if _, ok := got.Field(""); ok {
		t.Error("Field(\"\") found a decorative entry")
	}
}

func TestInputCoerce(t *testing.T) {
	sel := SelectInput{Options: []Option{{Label: "Add", Value: "add"}, {Label: "Divide", Value: "divide"}}}
	num := NumberInput{Step: 1, Min: Float(0), Max: Float(10)}

	tests := []struct {
		name    string
		in      Input
		raw     string
		want    any
		wantErr bool
	}{
		{name: "Text", in: TextInput{}, raw: " a b ", want: " a b "},
		{name: "Textarea", in: TextareaInput{}, raw: "x\ny", want: "x\ny"},
		{name: "Number", in: num, raw: "2.5", want: 2.5},
		{name: "NumberTrim", in: num, raw: " 3 ", want: 3.0},
		{name: "NumberBad", in: num, raw: "abc", wantErr: true},
		{name: "NumberBelow", in: num, raw: "-1", wantErr: true},
		{name: "NumberAbove", in: num, raw: "11", wantErr: true},
		{name: "SelectValue", in: sel, raw: "divide", want: "divide"},
		{name: "SelectLabel", in: sel, raw: "add", want: "add"},
		{name: "SelectLabelCase", in: sel, raw: "Divide", want: "divide"},
		{name: "SelectUnknown", in: sel, raw: "modulo", wantErr: true},
		{name: "CheckboxTrue", in: CheckboxInput{}, raw: "true", want: true},
		{name: "CheckboxZero", in: CheckboxInput{}, raw: "0", want: false},
		{name: "CheckboxBad", in: CheckboxInput{}, raw: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Coerce(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidInput) {
					t.Errorf("Coerce() error = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Coerce() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Coerce() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestIndexedNameDefault(t *testing.T) {
	nodes := []graph.Node{
		{ID: "customInput-0", Data: graph.Data{"inputName": "input_0"}},
		{ID: "customInput-1", Data: graph.Data{"inputName": "input_2"}},
	}
	got := IndexedName(InputNamePrefix).Resolve(DefaultContext{NodeID: "customInput-2", Nodes: nodes})
	if got != "input_1" {
		t.Errorf("Resolve() = %v, want input_1", got)
	}
}

func TestDecisionHandles(t *testing.T) {
	cfg := findBuiltin(t, TypeDecision)

	tests := []struct {
		name     string
		values   map[string]any
		data     graph.Data
		suffixes []string
	}{
		{name: "DefaultBinary", suffixes: []string{"input", "true", "false"}},
		{name: "Switch", values: map[string]any{"mode": "switch", "cases": 3.0}, suffixes: []string{"input", "case-0", "case-1", "case-2", "default"}},
		{name: "SwitchFromData", data: graph.Data{"mode": "switch", "cases": 1.0}, suffixes: []string{"input", "case-0", "default"}},
		{name: "ValuesWin", values: map[string]any{"mode": "binary"}, data: graph.Data{"mode": "switch"}, suffixes: []string{"input", "true", "false"}},
		{name: "ClampLow", values: map[string]any{"mode": "switch", "cases": 0.0}, suffixes: []string{"input", "case-0", "default"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := cfg.Handles.Handles(HandleContext{NodeID: "decision-0", Data: tt.data, Values: tt.values})
			var got []string
			for _, h := range hs {
				got = append(got, h.IDSuffix)
				if h.Top() <= 0 || h.Top() > 1 {
					t.Errorf("handle %q ratio %v out of range", h.IDSuffix, h.Top())
				}
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.suffixes) {
				t.Errorf("suffixes = %v, want %v", got, tt.suffixes)
			}
		})
	}
}

func TestStaticHandlesCopy(t *testing.T) {
	cfg := findBuiltin(t, TypeMath)
	hs := cfg.Handles.Handles(HandleContext{})
	hs[0].IDSuffix = "mutated"
	if cfg.Handles.Handles(HandleContext{})[0].IDSuffix != "primary" {
		t.Error("StaticHandles exposes its backing array")
	}
}

func findBuiltin(t *testing.T, key string) Config {
	t.Helper()
	for _, cfg := range Builtins() {
		if cfg.Key == key {
			return cfg
		}
	}
	t.Fatalf("builtin %q not found", key)
	return Config{}
}
