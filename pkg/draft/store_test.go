package draft

import (
	"errors"
	"testing"

	"github.com/goliatone/go-schemabuild/pkg/schema"
)

func testDocument() schema.SchemaDocument {
	doc := schema.NewDocument("test")
	var sec schema.Section
	sec.Title = "General"
	sec.Properties.Set("input", schema.Property{Type: schema.TypeString})
	doc.Sections.Set("general", sec)
	return doc
}

func TestSnapshotIsIndependent(t *testing.T) {
	store := New()
	store.Load(testDocument())

	snap := store.Snapshot()
	sec, _ := snap.Sections.Get("general")
	sec.Title = "mutated"
	sec.Properties.Set("extra", schema.Property{Type: schema.TypeBoolean})

	fresh := store.Snapshot()
	got, _ := fresh.Sections.Get("general")
	if got.Title != "General" {
		t.Errorf("store title = %q, snapshot mutation leaked", got.Title)
	}
	if got.Properties.Len() != 1 {
		t.Errorf("store properties = %d, snapshot mutation leaked", got.Properties.Len())
	}
}

func TestApplyReconciledSwapsValidDocument(t *testing.T) {
	store := New()
	store.Load(testDocument())

	next := store.Snapshot()
	sec, _ := next.Sections.Get("general")
	sec.Title = "Basic options"
	if err := store.ApplyReconciled(next); err != nil {
		t.Fatalf("apply: %v", err)
	}

	applied := store.Snapshot()
	got, _ := applied.Sections.Get("general")
	if got.Title != "Basic options" {
		t.Errorf("title = %q after apply", got.Title)
	}
}

func TestApplyReconciledRejectsInvalidDocument(t *testing.T) {
	store := New()
	store.Load(testDocument())

	bad := store.Snapshot()
	sec, _ := bad.Sections.Get("general")
	sec.Required = []string{"missing"}

	err := store.ApplyReconciled(bad)
	if err == nil {
		t.Fatal("expected rejection")
	}
	var v *schema.Violation
	if !errors.As(err, &v) {
		t.Fatalf("error %v does not wrap a violation", err)
	}
	if v.Kind != schema.ViolationRequiredUnknown {
		t.Errorf("violation kind = %s", v.Kind)
	}

	kept := store.Snapshot()
	got, _ := kept.Sections.Get("general")
	if len(got.Required) != 0 {
		t.Error("rejected document replaced prior state")
	}
}
