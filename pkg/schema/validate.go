package schema

import (
	"fmt"
	"math"
	"regexp"
)

// ViolationKind classifies the invariant a document breaks.
type ViolationKind string

const (
	ViolationEmptyKey         ViolationKind = "empty_key"
	ViolationUnknownType      ViolationKind = "unknown_type"
	ViolationRequiredUnknown  ViolationKind = "required_unknown"
	ViolationPatternNonString ViolationKind = "pattern_non_string"
	ViolationBadPattern       ViolationKind = "bad_pattern"
	ViolationPatternMismatch  ViolationKind = "pattern_mismatch"
	ViolationNumericNonNumber ViolationKind = "numeric_constraint_non_numeric"
	ViolationBoundsInverted   ViolationKind = "bounds_inverted"
	ViolationNotMultiple      ViolationKind = "not_multiple"
	ViolationValueMismatch    ViolationKind = "value_type_mismatch"
	ViolationNotInteger       ViolationKind = "not_integer"
)

// Violation reports the first invariant a document fails, with the key path
// of the offending entity.
type Violation struct {
	Kind   ViolationKind
	Path   string
	Detail string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("schema: %s at %s: %s", v.Kind, v.Path, v.Detail)
}

func violationf(kind ViolationKind, path, format string, args ...any) *Violation {
	return &Violation{Kind: kind, Path: path, Detail: fmt.Sprintf(format, args...)}
}

// Validate checks every document invariant and returns the first violation
// found, or nil. A document either satisfies all invariants or is rejected;
// there is no partial success.
func Validate(doc SchemaDocument) *Violation {
	for _, key := range doc.Sections.Keys() {
		if key == "" {
			return violationf(ViolationEmptyKey, "$", "section key must not be empty")
		}
		sec, _ := doc.Sections.Get(key)
		if v := validateSection(key, *sec); v != nil {
			return v
		}
	}
	return nil
}

func validateSection(key string, sec Section) *Violation {
	for _, name := range sec.Required {
		if _, ok := sec.Properties.Get(name); !ok {
			return violationf(ViolationRequiredUnknown, key,
				"required name %q has no matching property", name)
		}
	}
	for _, name := range sec.Properties.Keys() {
		if name == "" {
			return violationf(ViolationEmptyKey, key, "property name must not be empty")
		}
		prop, _ := sec.Properties.Get(name)
		if v := validateProperty(key+"/"+name, *prop); v != nil {
			return v
		}
	}
	return nil
}

func validateProperty(path string, prop Property) *Violation {
	if !prop.Type.Valid() {
		return violationf(ViolationUnknownType, path, "unsupported type %q", prop.Type)
	}

	if prop.Pattern != "" {
		if prop.Type != TypeString {
			return violationf(ViolationPatternNonString, path,
				"pattern is only valid on string properties, type is %q", prop.Type)
		}
		re, err := regexp.Compile(prop.Pattern)
		if err != nil {
			return violationf(ViolationBadPattern, path, "invalid pattern: %v", err)
		}
		if s, ok := prop.Default.(string); ok && !re.MatchString(s) {
			return violationf(ViolationPatternMismatch, path,
				"default %q does not match pattern %q", s, prop.Pattern)
		}
		for _, v := range prop.Enum {
			if s, ok := v.(string); ok && !re.MatchString(s) {
				return violationf(ViolationPatternMismatch, path,
					"enum value %q does not match pattern %q", s, prop.Pattern)
			}
		}
	}

	if v := validateNumericConstraints(path, prop); v != nil {
		return v
	}

	if prop.Default != nil {
		if v := validateValue(path, "default", prop.Type, prop.Default); v != nil {
			return v
		}
	}
	for _, e := range prop.Enum {
		if v := validateValue(path, "enum value", prop.Type, e); v != nil {
			return v
		}
	}
	return nil
}

func validateNumericConstraints(path string, prop Property) *Violation {
	hasNumeric := prop.Minimum != nil || prop.Maximum != nil || prop.MultipleOf != nil
	if !hasNumeric {
		return nil
	}
	if !prop.Type.Numeric() {
		return violationf(ViolationNumericNonNumber, path,
			"numeric constraints are only valid on number/integer properties, type is %q", prop.Type)
	}
	if prop.Minimum != nil && prop.Maximum != nil && *prop.Minimum > *prop.Maximum {
		return violationf(ViolationBoundsInverted, path,
			"minimum %v is greater than maximum %v", *prop.Minimum, *prop.Maximum)
	}
	if prop.MultipleOf != nil {
		if *prop.MultipleOf <= 0 {
			return violationf(ViolationNotMultiple, path, "multipleOf must be positive")
		}
		if prop.Minimum != nil && !isMultiple(*prop.Minimum, *prop.MultipleOf) {
			return violationf(ViolationNotMultiple, path,
				"minimum %v is not a multiple of %v", *prop.Minimum, *prop.MultipleOf)
		}
		if prop.Maximum != nil && !isMultiple(*prop.Maximum, *prop.MultipleOf) {
			return violationf(ViolationNotMultiple, path,
				"maximum %v is not a multiple of %v", *prop.Maximum, *prop.MultipleOf)
		}
	}
	if prop.Type == TypeInteger {
		for _, bound := range []*float64{prop.Minimum, prop.Maximum} {
			if bound != nil && *bound != math.Trunc(*bound) {
				return violationf(ViolationNotInteger, path,
					"integer bound %v must be a whole number", *bound)
			}
		}
	}
	return nil
}

func validateValue(path, what string, t PropertyType, v any) *Violation {
	switch t {
	case TypeString:
		if _, ok := v.(string); !ok {
			return violationf(ViolationValueMismatch, path, "%s %v is not a string", what, v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return violationf(ViolationValueMismatch, path, "%s %v is not a boolean", what, v)
		}
	case TypeNumber:
		if _, ok := asFloat(v); !ok {
			return violationf(ViolationValueMismatch, path, "%s %v is not a number", what, v)
		}
	case TypeInteger:
		f, ok := asFloat(v)
		if !ok {
			return violationf(ViolationValueMismatch, path, "%s %v is not a number", what, v)
		}
		if f != math.Trunc(f) {
			return violationf(ViolationNotInteger, path, "%s %v is not an integer", what, v)
		}
	}
	return nil
}

// ValueMatches reports whether v is an acceptable value for a property of
// type t (an integer value must additionally be whole).
func ValueMatches(t PropertyType, v any) bool {
	return validateValue("", "value", t, v) == nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func isMultiple(value, base float64) bool {
	if base == 0 {
		return false
	}
	q := value / base
	return q == math.Trunc(q)
}
