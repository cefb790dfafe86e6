package schema_test

import (
	"path/filepath"
	"testing"

	"github.com/goliatone/go-schemabuild/pkg/schema"
	"github.com/goliatone/go-schemabuild/pkg/testsupport"
)

// The fixture doubles as its own golden: it is stored in canonical wire form,
// so parsing and re-marshalling it must reproduce the file byte for byte.
func TestMarshalWireGolden(t *testing.T) {
	golden := filepath.Join("testdata", "nextflow_schema.json")
	doc := testsupport.LoadDocument(t, golden)

	out, err := doc.MarshalWire()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out = append(out, '\n')

	if testsupport.WriteMaybeGolden(t, golden, out) {
		return
	}
	want := testsupport.MustReadGolden(t, golden)
	if diff := testsupport.Diff(string(want), string(out)); diff != "" {
		t.Errorf("wire form drifted from golden (-want +got):\n%s", diff)
	}
}

func TestGoldenDocumentShape(t *testing.T) {
	doc := testsupport.LoadDocument(t, filepath.Join("testdata", "nextflow_schema.json"))

	if v := schema.Validate(doc); v != nil {
		t.Fatalf("fixture invalid: %v", v)
	}
	wantSections := []string{"input_output_options", "max_job_request_options"}
	if diff := testsupport.Diff(wantSections, doc.Sections.Keys()); diff != "" {
		t.Errorf("section order (-want +got):\n%s", diff)
	}
	sec, _ := doc.Sections.Get("input_output_options")
	if !sec.IsRequired("input") || sec.IsRequired("email") {
		t.Errorf("required flags wrong: %v", sec.Required)
	}
	email, _ := sec.Properties.Get("email")
	if !email.Hidden || email.Pattern == "" {
		t.Errorf("email = %+v", email)
	}
}
