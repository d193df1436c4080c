package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Field type tags as they appear in catalog files and API responses.
const (
	FieldTypeNumber = "number"
	FieldTypeText   = "text"
	FieldTypeSelect = "select"
)

// FieldKind is the closed set of input kinds a product field can have.
// Each kind carries the rule applied to a present value.
type FieldKind interface {
	Type() string
	// Check returns the error message for value, or "" when value is acceptable.
	// It is only called for non-blank values.
	Check(label, value string) string
	isFieldKind()
}

// NumberKind accepts digits only. Game user and zone ids are numeric but
// may carry leading zeros, so they are kept as strings.
type NumberKind struct{}

func (NumberKind) Type() string { return FieldTypeNumber }

func (NumberKind) Check(label, value string) string {
	for _, r := range value {
		if r < '0' || r > '9' {
			return label + " must contain only numbers"
		}
	}
	return ""
}

func (NumberKind) isFieldKind() {}

// TextKind accepts any value.
type TextKind struct{}

func (TextKind) Type() string { return FieldTypeText }

func (TextKind) Check(string, string) string { return "" }

func (TextKind) isFieldKind() {}

// Option is one choice of a select field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// SelectKind restricts the value to one of Options. An empty option list
// accepts anything; some catalogs fill options client-side.
type SelectKind struct {
	Options []Option
}

func (SelectKind) Type() string { return FieldTypeSelect }

func (k SelectKind) Check(label, value string) string {
	if len(k.Options) == 0 {
		return ""
	}
	if slices.ContainsFunc(k.Options, func(o Option) bool { return o.Value == value }) {
		return ""
	}
	return label + " must be one of the available options"
}

func (SelectKind) isFieldKind() {}

// ParseFieldKind builds the kind for a type tag. An empty tag means text.
func ParseFieldKind(typ string, options []Option) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case FieldTypeNumber:
		return NumberKind{}, nil
	case FieldTypeText, "":
		return TextKind{}, nil
	case FieldTypeSelect:
		return SelectKind{Options: options}, nil
	default:
		return nil, fmt.Errorf("unknown field type %q", typ)
	}
}

// FieldDescriptor describes one input a product asks for.
type FieldDescriptor struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
}

// FieldSpec is the serialized form of a FieldDescriptor.
type FieldSpec struct {
	Name     string   `json:"name" yaml:"name"`
	Label    string   `json:"label" yaml:"label"`
	Type     string   `json:"type" yaml:"type"`
	Required bool     `json:"required" yaml:"required"`
	Options  []Option `json:"options,omitempty" yaml:"options,omitempty"`
}

// Descriptor converts the serialized field into a descriptor. The label defaults to the name.
func (s FieldSpec) Descriptor() (FieldDescriptor, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return FieldDescriptor{}, fmt.Errorf("field name is required")
	}
	kind, err := ParseFieldKind(s.Type, s.Options)
	if err != nil {
		return FieldDescriptor{}, fmt.Errorf("field %s: %w", name, err)
	}
	label := strings.TrimSpace(s.Label)
	if label == "" {
		label = name
	}
	return FieldDescriptor{Name: name, Label: label, Kind: kind, Required: s.Required}, nil
}

// Spec returns the serialized form of d.
func (d FieldDescriptor) Spec() FieldSpec {
	spec := FieldSpec{Name: d.Name, Label: d.Label, Type: FieldTypeText, Required: d.Required}
	if d.Kind != nil {
		spec.Type = d.Kind.Type()
	}
	if sel, ok := d.Kind.(SelectKind); ok {
		spec.Options = sel.Options
	}
	return spec
}

func (d FieldDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Spec())
}

func (d *FieldDescriptor) UnmarshalJSON(data []byte) error {
	var spec FieldSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	desc, err := spec.Descriptor()
	if err != nil {
		return err
	}
	*d = desc
	return nil
}

// FieldNames returns the names of fields in declaration order.
func FieldNames(fields []FieldDescriptor) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}
