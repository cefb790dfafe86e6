package reconcile

import (
	"fmt"

	"github.com/goliatone/go-schemabuild/pkg/schema"
)

// MergeSectionUpdate merges patch into the section addressed by key and
// returns a new document. The input document is never modified. A rename via
// patch.NewKey keeps the section's ordinal position; a collision with an
// existing key fails with DuplicateKeyError. The merged document is validated
// as a whole; any violation rejects the merge in full.
func MergeSectionUpdate(doc schema.SchemaDocument, key string, patch SectionPatch) (schema.SchemaDocument, error) {
	out := doc.Clone()
	sec, ok := out.Sections.Get(key)
	if !ok {
		return schema.SchemaDocument{}, notFound(key)
	}

	if patch.NewKey != "" && patch.NewKey != key {
		if _, exists := out.Sections.Get(patch.NewKey); exists {
			return schema.SchemaDocument{}, &DuplicateKeyError{Key: patch.NewKey}
		}
		if err := out.Sections.Rename(key, patch.NewKey); err != nil {
			return schema.SchemaDocument{}, err
		}
	}

	sec.Title = patch.Title.apply(sec.Title)
	sec.Description = patch.Description.apply(sec.Description)
	sec.Icon = patch.Icon.apply(sec.Icon)

	if v := schema.Validate(out); v != nil {
		return schema.SchemaDocument{}, fmt.Errorf("reconcile: invalid document: %w", v)
	}
	return out, nil
}

// MergePropertyUpdate merges patch into the property addressed by sectionKey
// and name and returns a new document. Renames keep the property's ordinal
// position in the section and its slot in the required list. When the patch
// moves the property's type out of its previous class, the now-meaningless
// constraints are cleared rather than carried along.
func MergePropertyUpdate(doc schema.SchemaDocument, sectionKey, name string, patch PropertyPatch) (schema.SchemaDocument, error) {
	out := doc.Clone()
	sec, ok := out.Sections.Get(sectionKey)
	if !ok {
		return schema.SchemaDocument{}, notFound(sectionKey)
	}
	prop, ok := sec.Properties.Get(name)
	if !ok {
		return schema.SchemaDocument{}, notFound(sectionKey + "/" + name)
	}

	current := name
	if patch.NewName != "" && patch.NewName != name {
		if _, exists := sec.Properties.Get(patch.NewName); exists {
			return schema.SchemaDocument{}, &DuplicateKeyError{Key: patch.NewName}
		}
		if err := sec.Properties.Rename(name, patch.NewName); err != nil {
			return schema.SchemaDocument{}, err
		}
		for i, r := range sec.Required {
			if r == name {
				sec.Required[i] = patch.NewName
			}
		}
		current = patch.NewName
	}

	previousType := prop.Type
	prop.Type = patch.Type.apply(prop.Type)
	prop.Title = patch.Title.apply(prop.Title)
	prop.Description = patch.Description.apply(prop.Description)
	prop.HelpText = patch.HelpText.apply(prop.HelpText)
	prop.Icon = patch.Icon.apply(prop.Icon)
	prop.Pattern = patch.Pattern.apply(prop.Pattern)
	prop.Format = patch.Format.apply(prop.Format)
	prop.Hidden = patch.Hidden.apply(prop.Hidden)
	prop.Default = patch.Default.apply(prop.Default)
	if patch.Enum.IsSet() {
		prop.Enum = append([]any(nil), patch.Enum.Value()...)
	} else if patch.Enum.IsClear() {
		prop.Enum = nil
	}
	applyBound(&prop.Minimum, patch.Minimum)
	applyBound(&prop.Maximum, patch.Maximum)
	applyBound(&prop.MultipleOf, patch.MultipleOf)

	if prop.Type != previousType {
		clearIncompatible(prop, patch)
	}

	switch {
	case patch.Required.IsSet() && patch.Required.Value():
		if !sec.IsRequired(current) {
			sec.Required = append(sec.Required, current)
		}
	case patch.Required.IsSet() || patch.Required.IsClear():
		sec.Required = removeName(sec.Required, current)
	}

	if v := schema.Validate(out); v != nil {
		return schema.SchemaDocument{}, fmt.Errorf("reconcile: invalid document: %w", v)
	}
	return out, nil
}

func applyBound(dst **float64, o Opt[float64]) {
	switch {
	case o.IsSet():
		v := o.Value()
		*dst = &v
	case o.IsClear():
		*dst = nil
	}
}

// clearIncompatible drops fields that are meaningless for the property's new
// type. Defaults and enums that no longer fit the type are cleared too,
// unless the patch supplied replacements.
func clearIncompatible(prop *schema.Property, patch PropertyPatch) {
	if prop.Type != schema.TypeString {
		prop.Pattern = ""
	}
	if !prop.Type.Numeric() {
		prop.Minimum = nil
		prop.Maximum = nil
		prop.MultipleOf = nil
	}
	if !patch.Default.IsSet() && prop.Default != nil && !schema.ValueMatches(prop.Type, prop.Default) {
		prop.Default = nil
	}
	if !patch.Enum.IsSet() && prop.Enum != nil {
		for _, v := range prop.Enum {
			if !schema.ValueMatches(prop.Type, v) {
				prop.Enum = nil
				break
			}
		}
	}
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
