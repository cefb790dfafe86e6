package schema

import "testing"

func float(v float64) *float64 { return &v }

func docWithProperty(prop Property) SchemaDocument {
	doc := NewDocument("test")
	var sec Section
	sec.Title = "General"
	sec.Properties.Set("param", prop)
	doc.Sections.Set("general", sec)
	return doc
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  func() SchemaDocument
		want ViolationKind
	}{
		{
			name: "valid document",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeString, Pattern: `^\d+$`, Default: "42"})
			},
		},
		{
			name: "required name without property",
			doc: func() SchemaDocument {
				doc := docWithProperty(Property{Type: TypeString})
				sec, _ := doc.Sections.Get("general")
				sec.Required = []string{"missing"}
				return doc
			},
			want: ViolationRequiredUnknown,
		},
		{
			name: "unknown type",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: "object"})
			},
			want: ViolationUnknownType,
		},
		{
			name: "pattern on number",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeNumber, Pattern: `^\d+$`})
			},
			want: ViolationPatternNonString,
		},
		{
			name: "invalid pattern",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeString, Pattern: `([`})
			},
			want: ViolationBadPattern,
		},
		{
			name: "default violates pattern",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeString, Pattern: `^\d+$`, Default: "abc"})
			},
			want: ViolationPatternMismatch,
		},
		{
			name: "enum entry violates pattern",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeString, Pattern: `^\d+$`, Enum: []any{"1", "x"}})
			},
			want: ViolationPatternMismatch,
		},
		{
			name: "numeric constraint on boolean",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeBoolean, Minimum: float(1)})
			},
			want: ViolationNumericNonNumber,
		},
		{
			name: "minimum above maximum",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeNumber, Minimum: float(10), Maximum: float(5)})
			},
			want: ViolationBoundsInverted,
		},
		{
			// minimum 2 with multipleOf 4: 2 is not a multiple of 4.
			name: "minimum not multiple of multipleOf",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeNumber, Minimum: float(2), MultipleOf: float(4)})
			},
			want: ViolationNotMultiple,
		},
		{
			name: "maximum multiple of multipleOf passes",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeNumber, Minimum: float(4), Maximum: float(12), MultipleOf: float(4)})
			},
		},
		{
			name: "default wrong type",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeBoolean, Default: "yes"})
			},
			want: ViolationValueMismatch,
		},
		{
			name: "integer default with fraction",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeInteger, Default: 2.5})
			},
			want: ViolationNotInteger,
		},
		{
			name: "integer bound with fraction",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeInteger, Minimum: float(1.5)})
			},
			want: ViolationNotInteger,
		},
		{
			name: "enum entry wrong type",
			doc: func() SchemaDocument {
				return docWithProperty(Property{Type: TypeNumber, Enum: []any{1.0, "two"}})
			},
			want: ViolationValueMismatch,
		},
		{
			name: "empty section key",
			doc: func() SchemaDocument {
				doc := NewDocument("test")
				doc.Sections.Set("", Section{Title: "Anonymous"})
				return doc
			},
			want: ViolationEmptyKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(tt.doc())
			if tt.want == "" {
				if v != nil {
					t.Fatalf("unexpected violation: %v", v)
				}
				return
			}
			if v == nil {
				t.Fatalf("expected %s violation, got none", tt.want)
			}
			if v.Kind != tt.want {
				t.Fatalf("violation kind = %s, want %s (%v)", v.Kind, tt.want, v)
			}
		})
	}
}

func TestValidateReportsPath(t *testing.T) {
	doc := docWithProperty(Property{Type: TypeNumber, Minimum: float(2), MultipleOf: float(4)})
	v := Validate(doc)
	if v == nil {
		t.Fatal("expected violation")
	}
	if v.Path != "general/param" {
		t.Errorf("path = %q, want %q", v.Path, "general/param")
	}
}

func TestAddressOf(t *testing.T) {
	doc := docWithProperty(Property{Type: TypeString})

	loc, ok := AddressOf(doc, "general", "")
	if !ok || loc.SectionIndex != 0 || loc.IsProperty() {
		t.Fatalf("section locator = %+v ok=%v", loc, ok)
	}
	if loc.Path() != "general" {
		t.Errorf("path = %q", loc.Path())
	}

	loc, ok = AddressOf(doc, "general", "param")
	if !ok || !loc.IsProperty() || loc.PropertyIndex != 0 {
		t.Fatalf("property locator = %+v ok=%v", loc, ok)
	}
	if loc.Path() != "general/param" {
		t.Errorf("path = %q", loc.Path())
	}

	if _, ok := AddressOf(doc, "nope", ""); ok {
		t.Error("expected miss for unknown section")
	}
	if _, ok := AddressOf(doc, "general", "nope"); ok {
		t.Error("expected miss for unknown property")
	}
}
