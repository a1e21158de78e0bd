package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/codemates/mates"
)

const defaultBlobTimeout = 15 * time.Second

// callerKinds are commit errors the API maps to specific responses; wrapping
// them as persistence failures would turn a 403 or 404 into a 500.
var callerKinds = []error{
	mates.ErrNotFound,
	mates.ErrForbidden,
	mates.ErrValidationFailed,
	mates.ErrUnauthenticated,
}

// Orchestrator sequences blob uploads, document commits and old-blob
// deletions so that a committed document never references a missing blob and
// a failed commit never leaves a new blob behind for longer than necessary.
//
// A mutation ends in one of exactly two states: document updated with the old
// blob scheduled for removal, or document untouched with the new blob
// scheduled for removal. The one unavoidable window is "new blob uploaded,
// commit never confirmed": that can only produce an orphaned blob, which
// wastes storage but is never visible to readers. Cleanup deletions are
// detached and best-effort; their failures surface in logs only, a periodic
// reconciliation sweep would be the production answer for the leftovers.
type Orchestrator struct {
	Store Store
	Log   *log.Logger

	// Timeout bounds every individual blob-store call; the external store
	// is treated as unreliable.
	Timeout time.Duration

	cleanups sync.WaitGroup
}

func NewOrchestrator(store Store, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(os.Stderr, "[mates-media] ", log.LstdFlags)
	}
	return &Orchestrator{
		Store:   store,
		Log:     logger,
		Timeout: defaultBlobTimeout,
	}
}

// Replace performs a blob-bearing mutation. The new media is uploaded first;
// commit must atomically persist the document update referencing the new blob
// and return the blob ref the document carried before (zero if none).
//
// Upload failure aborts before any document mutation. Commit failure triggers
// a rollback delete of the just-uploaded blob; the rollback's own outcome
// never masks the commit error. A commit error that already carries a
// caller-addressable kind (missing document, wrong owner, bad input) passes
// through unchanged, anything else surfaces as a persistence failure. On
// success the old blob is deleted after the commit, so no reader can observe
// a document pointing at an already-deleted blob.
func (o *Orchestrator) Replace(ctx context.Context, folder string, data []byte, contentType string, commit func(BlobRef) (old BlobRef, err error)) (BlobRef, error) {
	uctx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	newRef, err := o.Store.Upload(uctx, data, contentType, folder)
	if err != nil {
		return BlobRef{}, fmt.Errorf("%w: blob upload: %v", mates.ErrUpstreamUnavailable, err)
	}

	old, err := commit(newRef)
	if err != nil {
		o.deleteDetached(newRef, "rollback")
		for _, kind := range callerKinds {
			if errors.Is(err, kind) {
				return BlobRef{}, err
			}
		}
		return BlobRef{}, fmt.Errorf("%w: %v", mates.ErrPersistenceFailed, err)
	}

	o.deleteDetached(old, "replaced")
	return newRef, nil
}

// DeleteOwned removes a blob-owning document: remove must delete the document
// record and return the blob ref it carried. The record goes first, so once
// it's gone no reader can re-derive the blob URL and a failed blob delete
// leaves only unreachable garbage, never a dangling reference.
func (o *Orchestrator) DeleteOwned(ctx context.Context, remove func() (BlobRef, error)) error {
	ref, err := remove()
	if err != nil {
		return err
	}
	o.deleteDetached(ref, "orphaned")
	return nil
}

// Wait blocks until all detached cleanup deletions have finished. Called on
// shutdown and by tests.
func (o *Orchestrator) Wait() {
	o.cleanups.Wait()
}

// deleteDetached fires a background best-effort delete. Refs without a
// storage key (no media, or a default placeholder URL) are skipped.
func (o *Orchestrator) deleteDetached(ref BlobRef, reason string) {
	if ref.StorageKey == "" {
		return
	}
	o.cleanups.Add(1)
	go func() {
		defer o.cleanups.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout())
		defer cancel()
		if err := o.Store.Delete(ctx, ref.StorageKey); err != nil {
			o.Log.Printf("failed to delete %s blob %s: %v\n", reason, ref.StorageKey, err)
		}
	}()
}

func (o *Orchestrator) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return defaultBlobTimeout
}
