// Package editor ties the draft store, the reconciliation engine, and the
// sync channel into one editing session. All document mutation funnels
// through Commit* methods under a single lock, so edits apply in the order
// they were committed; concurrency exists only at the I/O boundary.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-schemabuild/pkg/draft"
	"github.com/goliatone/go-schemabuild/pkg/reconcile"
	"github.com/goliatone/go-schemabuild/pkg/schema"
	"github.com/goliatone/go-schemabuild/pkg/syncchan"
)

// Transport is the slice of the sync channel the session depends on.
// *syncchan.Channel satisfies it.
type Transport interface {
	Fetch(ctx context.Context) (schema.SchemaDocument, error)
	RequestSave(doc schema.SchemaDocument) uint64
	Save(ctx context.Context, doc schema.SchemaDocument) error
	Finish(ctx context.Context) error
	Results() <-chan syncchan.SaveResult
}

// SaveState is the user-visible autosave status.
type SaveState string

const (
	SaveIdle    SaveState = "idle"
	SavePending SaveState = "pending"
	SaveOK      SaveState = "saved"
	SaveFailed  SaveState = "failed"
)

// SaveStatus reports the outcome of the most recent save attempt.
type SaveStatus struct {
	State SaveState
	Err   string
	At    time.Time
}

// ErrNoTransport is returned by operations requiring an attached channel.
var ErrNoTransport = errors.New("editor: no transport attached")

// Option configures a Session.
type Option func(*Session)

// WithLogger injects a logger; the default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// Session owns the working draft for one connected client.
type Session struct {
	store *draft.Store
	log   *zap.Logger

	// mu serializes commits and Finish, giving the ordering guarantee that
	// later edits to the same entity win.
	mu        sync.Mutex
	transport Transport

	statusMu sync.Mutex
	status   SaveStatus
	dirty    bool
	// pendingGen is the generation of the newest requested save. Results for
	// older generations acknowledge a superseded snapshot and must not clear
	// dirty, or a reconnect fetch could erase the edits still in flight.
	pendingGen uint64
}

// NewSession returns a session holding an empty draft.
func NewSession(opts ...Option) *Session {
	s := &Session{
		store:  draft.New(),
		log:    zap.NewNop(),
		status: SaveStatus{State: SaveIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach wires the sync channel in and starts consuming its save results.
// The watcher exits when ctx is cancelled.
func (s *Session) Attach(ctx context.Context, transport Transport) {
	s.mu.Lock()
	s.transport = transport
	s.mu.Unlock()
	go s.watchResults(ctx, transport.Results())
}

// HandleFetched receives the authoritative document the channel fetches on
// every (re)connect. A fetched copy never clobbers committed edits that have
// not been acknowledged yet; the local draft stays the source of truth until
// the queued save lands.
func (s *Session) HandleFetched(doc schema.SchemaDocument) {
	s.statusMu.Lock()
	dirty := s.dirty
	s.statusMu.Unlock()
	if dirty {
		s.log.Info("keeping local draft over fetched copy, unsaved edits pending")
		return
	}
	s.store.Load(doc)
	s.log.Debug("loaded authoritative document", zap.Int("sections", doc.Sections.Len()))
}

// Document returns a snapshot of the working draft.
func (s *Session) Document() schema.SchemaDocument {
	return s.store.Snapshot()
}

// Status returns the last save outcome.
func (s *Session) Status() SaveStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

// CommitSectionEdit merges patch into the named section and, on success,
// triggers an autosave carrying the new snapshot. On failure the draft is
// untouched and the caller keeps the in-flight edit for correction.
func (s *Session) CommitSectionEdit(key string, patch reconcile.SectionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged, err := reconcile.MergeSectionUpdate(s.store.Snapshot(), key, patch)
	if err != nil {
		return err
	}
	return s.apply(merged)
}

// CommitPropertyEdit merges patch into the named property and, on success,
// triggers an autosave carrying the new snapshot.
func (s *Session) CommitPropertyEdit(sectionKey, name string, patch reconcile.PropertyPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged, err := reconcile.MergePropertyUpdate(s.store.Snapshot(), sectionKey, name, patch)
	if err != nil {
		return err
	}
	return s.apply(merged)
}

func (s *Session) apply(doc schema.SchemaDocument) error {
	if s.transport == nil {
		return ErrNoTransport
	}
	if err := s.store.ApplyReconciled(doc); err != nil {
		return err
	}
	// Holding statusMu across RequestSave keeps the result watcher from
	// observing the new generation's acknowledgment before pendingGen is set.
	s.statusMu.Lock()
	s.pendingGen = s.transport.RequestSave(s.store.Snapshot())
	s.status = SaveStatus{State: SavePending, At: time.Now()}
	s.dirty = true
	s.statusMu.Unlock()
	return nil
}

// Finish performs one final synchronous save and then signals the backing
// store to finalize. A failure in either step is returned to the caller and
// never retried automatically; the session stays editable.
func (s *Session) Finish(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil {
		return ErrNoTransport
	}
	if err := s.transport.Save(ctx, s.store.Snapshot()); err != nil {
		s.setStatus(SaveStatus{State: SaveFailed, Err: err.Error(), At: time.Now()}, true)
		return fmt.Errorf("editor: final save: %w", err)
	}
	s.setStatus(SaveStatus{State: SaveOK, At: time.Now()}, false)
	if err := s.transport.Finish(ctx); err != nil {
		return fmt.Errorf("editor: finish: %w", err)
	}
	return nil
}

func (s *Session) watchResults(ctx context.Context, results <-chan syncchan.SaveResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			s.statusMu.Lock()
			if res.Gen < s.pendingGen {
				s.statusMu.Unlock()
				s.log.Debug("ignoring result for superseded save", zap.Uint64("gen", res.Gen))
				continue
			}
			if res.Err != nil {
				s.status = SaveStatus{State: SaveFailed, Err: res.Err.Error(), At: res.At}
				s.dirty = true
				s.statusMu.Unlock()
				s.log.Warn("last save failed", zap.Error(res.Err))
				continue
			}
			s.status = SaveStatus{State: SaveOK, At: res.At}
			s.dirty = false
			s.statusMu.Unlock()
		}
	}
}

func (s *Session) setStatus(status SaveStatus, dirty bool) {
	s.statusMu.Lock()
	s.status = status
	s.dirty = dirty
	s.statusMu.Unlock()
}
