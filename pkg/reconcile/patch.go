// Package reconcile merges partial edits (patches) into a schema document
// while preserving unrelated siblings, insertion order, and renamed-key
// continuity. Merges are all-or-nothing: the result is validated as a whole
// document and the input is never modified.
package reconcile

import "github.com/goliatone/go-schemabuild/pkg/schema"

// Opt is a three-state patch field: absent (leave the current value alone),
// set (overwrite with a new value), or clear (remove the value). The zero
// value is absent.
type Opt[T any] struct {
	present bool
	cleared bool
	value   T
}

// Set returns an Opt carrying a replacement value.
func Set[T any](v T) Opt[T] {
	return Opt[T]{present: true, value: v}
}

// Clear returns an Opt that removes the current value.
func Clear[T any]() Opt[T] {
	return Opt[T]{present: true, cleared: true}
}

// IsSet reports whether the field carries a replacement value.
func (o Opt[T]) IsSet() bool { return o.present && !o.cleared }

// IsClear reports whether the field requests removal.
func (o Opt[T]) IsClear() bool { return o.present && o.cleared }

// Value returns the replacement value; meaningful only when IsSet.
func (o Opt[T]) Value() T { return o.value }

// apply resolves the three states against the current value.
func (o Opt[T]) apply(current T) T {
	switch {
	case o.IsSet():
		return o.value
	case o.IsClear():
		var zero T
		return zero
	default:
		return current
	}
}

// SectionPatch is a partial update to a section. NewKey renames the section,
// keeping its ordinal position in the document.
type SectionPatch struct {
	NewKey      string
	Title       Opt[string]
	Description Opt[string]
	Icon        Opt[string]
}

// PropertyPatch is a partial update to a property. NewName renames the
// property, keeping its ordinal position in the section and its membership
// slot in the required list. Required toggles membership in the enclosing
// section's required set.
type PropertyPatch struct {
	NewName     string
	Type        Opt[schema.PropertyType]
	Title       Opt[string]
	Description Opt[string]
	HelpText    Opt[string]
	Icon        Opt[string]
	Default     Opt[any]
	Enum        Opt[[]any]
	Pattern     Opt[string]
	Format      Opt[string]
	Minimum     Opt[float64]
	Maximum     Opt[float64]
	MultipleOf  Opt[float64]
	Hidden      Opt[bool]
	Required    Opt[bool]
}
