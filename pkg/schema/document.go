package schema

import "encoding/json"

// DefaultSchemaVersion is the dialect URI stamped onto freshly created
// documents.
const DefaultSchemaVersion = "https://json-schema.org/draft/2020-12/schema"

// PropertyType enumerates the closed set of parameter types the editor
// supports. Anything else is rejected by Validate.
type PropertyType string

const (
	TypeString  PropertyType = "string"
	TypeNumber  PropertyType = "number"
	TypeInteger PropertyType = "integer"
	TypeBoolean PropertyType = "boolean"
)

// Valid reports whether t is one of the supported property types.
func (t PropertyType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean:
		return true
	default:
		return false
	}
}

// Numeric reports whether t admits numeric constraints (minimum, maximum,
// multipleOf).
func (t PropertyType) Numeric() bool {
	return t == TypeNumber || t == TypeInteger
}

// Member is a single pass-through wire field the model does not interpret.
type Member struct {
	Key   string
	Value json.RawMessage
}

// Extra holds pass-through members in their original wire order.
type Extra []Member

// Clone returns a deep copy of the pass-through members.
func (e Extra) Clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for i, m := range e {
		out[i] = Member{Key: m.Key, Value: append(json.RawMessage(nil), m.Value...)}
	}
	return out
}

// SchemaDocument is the canonical in-memory form of a pipeline parameter
// schema. Section order is significant and survives every partial update.
type SchemaDocument struct {
	SchemaVersion string
	Title         string
	Description   string
	Sections      Sections
	Extra         Extra

	// defsKey remembers whether the source document grouped sections under
	// "$defs" or the legacy "definitions" so saves keep the same spelling.
	defsKey string
}

// NewDocument returns an empty document on the default dialect.
func NewDocument(title string) SchemaDocument {
	return SchemaDocument{
		SchemaVersion: DefaultSchemaVersion,
		Title:         title,
	}
}

// Clone returns a deep copy; mutating the copy never affects the receiver.
func (d SchemaDocument) Clone() SchemaDocument {
	out := d
	out.Sections = d.Sections.Clone()
	out.Extra = d.Extra.Clone()
	return out
}

// Equal reports whether two documents serialize to the same wire form,
// which by construction compares sections, properties, ordering, and
// pass-through members.
func (d SchemaDocument) Equal(other SchemaDocument) bool {
	a, errA := d.MarshalWire()
	b, errB := other.MarshalWire()
	if errA != nil || errB != nil {
		return errA == nil && errB == nil
	}
	return string(a) == string(b)
}

// Section is a named, ordered group of properties. The section key is its
// stable identity; Title is free display text and may change independently.
type Section struct {
	Title       string
	Description string
	Icon        string
	Properties  Properties
	Required    []string
	Extra       Extra
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := s
	out.Properties = s.Properties.Clone()
	out.Required = append([]string(nil), s.Required...)
	out.Extra = s.Extra.Clone()
	return out
}

// IsRequired reports whether name is in the section's required set.
func (s Section) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Property is a single parameter definition.
type Property struct {
	Type        PropertyType
	Title       string
	Description string
	HelpText    string
	Icon        string
	Default     any
	Enum        []any
	Pattern     string
	Format      string
	Minimum     *float64
	Maximum     *float64
	MultipleOf  *float64
	Hidden      bool
	Extra       Extra
}

// Clone returns a deep copy of the property.
func (p Property) Clone() Property {
	out := p
	out.Enum = append([]any(nil), p.Enum...)
	out.Minimum = cloneFloat(p.Minimum)
	out.Maximum = cloneFloat(p.Maximum)
	out.MultipleOf = cloneFloat(p.MultipleOf)
	out.Extra = p.Extra.Clone()
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
