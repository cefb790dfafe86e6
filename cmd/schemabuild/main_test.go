package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-schemabuild/internal/store"
	"github.com/goliatone/go-schemabuild/pkg/schema"
)

func TestValidateSchemaAcceptsValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nextflow_schema.json")
	s := store.New(path)
	if err := s.Save(store.DefaultDocument("demo")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := validateSchema(s); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestValidateSchemaReportsViolation(t *testing.T) {
	const src = `{
  "$defs": {
    "general": {
      "type": "object",
      "properties": {},
      "required": ["missing"]
    }
  }
}`
	path := filepath.Join(t.TempDir(), "nextflow_schema.json")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	err := validateSchema(store.New(path))
	if err == nil {
		t.Fatal("expected a violation")
	}
	var v *schema.Violation
	if !errors.As(err, &v) {
		t.Fatalf("err = %v, want a violation", err)
	}
	if v.Kind != schema.ViolationRequiredUnknown {
		t.Errorf("violation kind = %s", v.Kind)
	}
}

func TestValidateSchemaReportsMissingFile(t *testing.T) {
	s := store.New(filepath.Join(t.TempDir(), "nope.json"))
	if err := validateSchema(s); err == nil {
		t.Fatal("expected a load error")
	}
}

func TestPipelineName(t *testing.T) {
	if got := pipelineName(filepath.Join("workdir", "rnaseq", "nextflow_schema.json")); got != "rnaseq" {
		t.Errorf("pipelineName = %q", got)
	}
}
