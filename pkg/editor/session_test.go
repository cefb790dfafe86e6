package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-schemabuild/pkg/reconcile"
	"github.com/goliatone/go-schemabuild/pkg/schema"
	"github.com/goliatone/go-schemabuild/pkg/syncchan"
)

type fakeTransport struct {
	mu        sync.Mutex
	requested []schema.SchemaDocument
	saved     []schema.SchemaDocument
	finished  int
	saveErr   error
	finishErr error
	results   chan syncchan.SaveResult
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{results: make(chan syncchan.SaveResult, 16)}
}

func (f *fakeTransport) Fetch(context.Context) (schema.SchemaDocument, error) {
	return schema.NewDocument("remote"), nil
}

func (f *fakeTransport) RequestSave(doc schema.SchemaDocument) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, doc)
	return uint64(len(f.requested))
}

func (f *fakeTransport) Save(_ context.Context, doc schema.SchemaDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, doc)
	return nil
}

func (f *fakeTransport) Finish(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finishErr != nil {
		return f.finishErr
	}
	f.finished++
	return nil
}

func (f *fakeTransport) Results() <-chan syncchan.SaveResult {
	return f.results
}

func (f *fakeTransport) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requested)
}

func seedDocument() schema.SchemaDocument {
	doc := schema.NewDocument("pipeline")
	var sec schema.Section
	sec.Title = "General"
	sec.Properties.Set("name", schema.Property{Type: schema.TypeString})
	doc.Sections.Set("general", sec)
	return doc
}

func newSession(t *testing.T, transport Transport) *Session {
	t.Helper()
	sess := NewSession()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sess.Attach(ctx, transport)
	sess.HandleFetched(seedDocument())
	return sess
}

func waitStatus(t *testing.T, sess *Session, want SaveState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sess.Status().State == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("status never became %s, last %+v", want, sess.Status())
}

func TestCommitTriggersAutosaveWithLatestSnapshot(t *testing.T) {
	transport := newFakeTransport()
	sess := newSession(t, transport)

	err := sess.CommitSectionEdit("general", reconcile.SectionPatch{Title: reconcile.Set("Basic")})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := transport.requestCount(); got != 1 {
		t.Fatalf("save requests = %d", got)
	}

	transport.mu.Lock()
	sent := transport.requested[0]
	transport.mu.Unlock()
	sec, _ := sent.Sections.Get("general")
	if sec.Title != "Basic" {
		t.Errorf("autosaved snapshot title = %q", sec.Title)
	}
	if sess.Status().State != SavePending {
		t.Errorf("status = %+v, want pending", sess.Status())
	}
}

func TestRejectedCommitLeavesDraftAndSkipsSave(t *testing.T) {
	transport := newFakeTransport()
	sess := newSession(t, transport)

	err := sess.CommitPropertyEdit("general", "name", reconcile.PropertyPatch{
		Pattern: reconcile.Set("(["),
	})
	if err == nil {
		t.Fatal("expected rejection")
	}
	var v *schema.Violation
	if !errors.As(err, &v) {
		t.Fatalf("error %v does not wrap a violation", err)
	}
	if transport.requestCount() != 0 {
		t.Error("rejected edit reached the sync channel")
	}
	doc := sess.Document()
	sec, _ := doc.Sections.Get("general")
	prop, _ := sec.Properties.Get("name")
	if prop.Pattern != "" {
		t.Error("rejected edit mutated the draft")
	}
}

func TestSaveFailureSurfacesWithoutRollback(t *testing.T) {
	transport := newFakeTransport()
	sess := newSession(t, transport)

	if err := sess.CommitSectionEdit("general", reconcile.SectionPatch{Title: reconcile.Set("Basic")}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	transport.results <- syncchan.SaveResult{Gen: 1, Err: errors.New("store unreachable"), At: time.Now()}
	waitStatus(t, sess, SaveFailed)

	doc := sess.Document()
	sec, _ := doc.Sections.Get("general")
	if sec.Title != "Basic" {
		t.Error("failed save rolled the draft back")
	}

	// The next edit carries the latest state; no rollback, just retry.
	if err := sess.CommitSectionEdit("general", reconcile.SectionPatch{Icon: reconcile.Set("fas fa-dna")}); err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if transport.requestCount() != 2 {
		t.Errorf("save requests = %d", transport.requestCount())
	}
}

func TestFetchedCopyDoesNotClobberUnsavedEdits(t *testing.T) {
	transport := newFakeTransport()
	sess := newSession(t, transport)

	if err := sess.CommitSectionEdit("general", reconcile.SectionPatch{Title: reconcile.Set("Local edit")}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// A reconnect fetch arrives while the save is still unacknowledged.
	sess.HandleFetched(seedDocument())
	doc := sess.Document()
	sec, _ := doc.Sections.Get("general")
	if sec.Title != "Local edit" {
		t.Error("fetched copy clobbered unsaved local edits")
	}

	// Once the save is acknowledged, fetched copies load again.
	transport.results <- syncchan.SaveResult{Gen: 1, At: time.Now()}
	waitStatus(t, sess, SaveOK)
	sess.HandleFetched(seedDocument())
	doc = sess.Document()
	sec, _ = doc.Sections.Get("general")
	if sec.Title != "General" {
		t.Error("clean session ignored fetched copy")
	}
}

func TestSupersededAckDoesNotReleaseDraft(t *testing.T) {
	transport := newFakeTransport()
	sess := newSession(t, transport)

	if err := sess.CommitSectionEdit("general", reconcile.SectionPatch{Title: reconcile.Set("First")}); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := sess.CommitSectionEdit("general", reconcile.SectionPatch{Title: reconcile.Set("Second")}); err != nil {
		t.Fatalf("second commit: %v", err)
	}

	// The first save is acknowledged while the second is still outstanding.
	transport.results <- syncchan.SaveResult{Gen: 1, At: time.Now()}
	time.Sleep(50 * time.Millisecond)
	if got := sess.Status().State; got != SavePending {
		t.Fatalf("status = %s after superseded ack, want pending", got)
	}

	sess.HandleFetched(seedDocument())
	doc := sess.Document()
	sec, _ := doc.Sections.Get("general")
	if sec.Title != "Second" {
		t.Errorf("draft title = %q, unacknowledged edit lost to fetched copy", sec.Title)
	}

	// The latest generation's acknowledgment releases the draft.
	transport.results <- syncchan.SaveResult{Gen: 2, At: time.Now()}
	waitStatus(t, sess, SaveOK)
	sess.HandleFetched(seedDocument())
	doc = sess.Document()
	sec, _ = doc.Sections.Get("general")
	if sec.Title != "General" {
		t.Error("acknowledged session ignored fetched copy")
	}
}

func TestFinishSavesThenSignals(t *testing.T) {
	transport := newFakeTransport()
	sess := newSession(t, transport)

	if err := sess.Finish(context.Background()); err != nil {
		t.Fatalf("finish: %v", err)
	}
	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.saved) != 1 {
		t.Errorf("final saves = %d", len(transport.saved))
	}
	if transport.finished != 1 {
		t.Errorf("finish signals = %d", transport.finished)
	}
}

func TestFinishFailedSaveDoesNotSignal(t *testing.T) {
	transport := newFakeTransport()
	transport.saveErr = errors.New("disk full")
	sess := newSession(t, transport)

	err := sess.Finish(context.Background())
	if err == nil {
		t.Fatal("expected finish failure")
	}
	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.finished != 0 {
		t.Error("finish signaled despite failed final save")
	}
	if sess.Status().State != SaveFailed {
		t.Errorf("status = %+v", sess.Status())
	}
}
