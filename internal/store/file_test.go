package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-schemabuild/pkg/schema"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nextflow_schema.json")
	s := New(path)

	doc := DefaultDocument("example")
	if err := s.Save(doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !s.Exists() {
		t.Fatal("file missing after save")
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !doc.Equal(loaded) {
		t.Error("loaded document differs from saved document")
	}
	sec, ok := loaded.Sections.Get("input_output_options")
	if !ok {
		t.Fatal("default section missing")
	}
	if got := sec.Properties.Keys(); !cmp.Equal(got, []string{"input", "outdir"}) {
		t.Errorf("property order = %v", got)
	}
}

func TestSaveDoesNotLeaveTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "schema.json"))
	if err := s.Save(DefaultDocument("example")); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "schema.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v", names)
	}
}

func TestLoadYAMLPreservesOrder(t *testing.T) {
	const src = `
"$schema": "https://json-schema.org/draft/2020-12/schema"
title: yaml pipeline parameters
$defs:
  zeta_options:
    title: Zeta
    type: object
    properties:
      z_param:
        type: string
      a_param:
        type: integer
        default: 3
  alpha_options:
    title: Alpha
    type: object
    properties: {}
allOf:
  - $ref: "#/$defs/zeta_options"
  - $ref: "#/$defs/alpha_options"
`
	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	doc, err := New(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := doc.Sections.Keys(); !cmp.Equal(got, []string{"zeta_options", "alpha_options"}) {
		t.Fatalf("section order = %v", got)
	}
	sec, _ := doc.Sections.Get("zeta_options")
	if got := sec.Properties.Keys(); !cmp.Equal(got, []string{"z_param", "a_param"}) {
		t.Errorf("property order = %v", got)
	}
	prop, _ := sec.Properties.Get("a_param")
	if prop.Type != schema.TypeInteger || prop.Default != float64(3) {
		t.Errorf("a_param = %+v", prop)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope.json"))
	if s.Exists() {
		t.Error("Exists() true for missing file")
	}
	if _, err := s.Load(); err == nil {
		t.Fatal("expected load error")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(path, []byte(`{"$defs": [1]}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := New(path).Load()
	if err == nil || !strings.Contains(err.Error(), "parse") {
		t.Fatalf("err = %v", err)
	}
}

func TestDefaultDocumentValidates(t *testing.T) {
	if v := schema.Validate(DefaultDocument("example")); v != nil {
		t.Fatalf("default document invalid: %v", v)
	}
}
