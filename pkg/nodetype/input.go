package nodetype

import (
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/pipewright/pkg/errors"
)

// InputKind names the editing widget of a field.
type InputKind string

const (
	KindText     InputKind = "text"
	KindTextarea InputKind = "textarea"
	KindNumber   InputKind = "number"
	KindSelect   InputKind = "select"
	KindCheckbox InputKind = "checkbox"
)

// Input is the closed set of field input variants.
//
// Coerce converts a raw textual edit into the value stored in node data:
// strings for text, textarea and select, float64 for number, bool for checkbox.
type Input interface {
	Kind() InputKind
	Coerce(raw string) (any, error)

	input()
}

// TextInput is a single-line text box.
type TextInput struct {
	Placeholder string
}

// TextareaInput is a multi-line text box.
type TextareaInput struct {
	Placeholder string
	Rows        int
}

// NumberInput is a numeric spinner. A zero Step means any precision.
// Min and Max are optional bounds.
type NumberInput struct {
	Step float64
	Min  *float64
	Max  *float64
}

// Option is one choice of a [SelectInput].
type Option struct {
	Label string
	Value string
}

// SelectInput is a drop-down restricted to its options.
type SelectInput struct {
	Options []Option
}

// CheckboxInput is a boolean toggle.
type CheckboxInput struct{}

func (TextInput) Kind() InputKind     { return KindText }
func (TextareaInput) Kind() InputKind { return KindTextarea }
func (NumberInput) Kind() InputKind   { return KindNumber }
func (SelectInput) Kind() InputKind   { return KindSelect }
func (CheckboxInput) Kind() InputKind { return KindCheckbox }

func (TextInput) input()     {}
func (TextareaInput) input() {}
func (NumberInput) input()   {}
func (SelectInput) input()   {}
func (CheckboxInput) input() {}

// Coerce returns raw unchanged.
func (TextInput) Coerce(raw string) (any, error) { return raw, nil }

// Coerce returns raw unchanged.
func (TextareaInput) Coerce(raw string) (any, error) { return raw, nil }

// Coerce parses raw as a float and checks the bounds.
func (in NumberInput) Coerce(raw string) (any, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "not a number: %q", raw)
	}
	if in.Min != nil && v < *in.Min {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%v is below minimum %v", v, *in.Min)
	}
	if in.Max != nil && v > *in.Max {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%v is above maximum %v", v, *in.Max)
	}
	return v, nil
}

// Coerce accepts an option value, or an option label as a convenience.
func (in SelectInput) Coerce(raw string) (any, error) {
	for _, o := range in.Options {
		if o.Value == raw {
			return o.Value, nil
		}
	}
	for _, o := range in.Options {
		if strings.EqualFold(o.Label, raw) {
			return o.Value, nil
		}
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "%q is not one of %s", raw, strings.Join(in.Values(), ", "))
}

// Values returns the option values in order.
func (in SelectInput) Values() []string {
	out := make([]string, len(in.Options))
	for i, o := range in.Options {
		out[i] = o.Value
	}
	return out
}

// Has reports whether v is one of the option values.
func (in SelectInput) Has(v string) bool {
	return slices.Contains(in.Values(), v)
}

// Coerce parses raw as a boolean ("true", "false", "1", "0", ...).
func (CheckboxInput) Coerce(raw string) (any, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "not a boolean: %q", raw)
	}
	return v, nil
}

// Options builds select options whose label equals their value.
func Options(values ...string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Label: v, Value: v}
	}
	return out
}

// Float returns a pointer to v, for [NumberInput] bounds.
func Float(v float64) *float64 { return &v }
