// ABOUTME: Optimistic create, update and delete on top of the engine's overlay.
// ABOUTME: Each command edits the overlay first and rolls back only its own edit on failure.
package board

import (
	"context"

	"github.com/2389-research/adboard/internal/models"
)

// Create submits a new listing. On success the record is shown at the top
// of page 1 until the server's own list includes it, and the view jumps to
// page 1.
func (e *Engine) Create(ctx context.Context, in models.AdCreate) (models.Ad, error) {
	ad, err := e.api.CreateAd(ctx, in)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		es := classifyMutation(OpCreate, err)
		e.err = es
		e.logger.Warn("create failed", "kind", es.Kind.String(), "error", err)
		e.notifyLocked()
		return models.Ad{}, es
	}

	if ad.ID != "" {
		e.overlay.PrependCreated(ad)
	}
	e.query.Page = 1
	e.clearErrLocked(OpCreate)
	e.logger.Info("listing created", "id", ad.ID)
	e.refreshLocked()
	e.notifyLocked()
	return ad, nil
}

// Update applies in to the displayed record at once, then submits it. If
// the server rejects it, the record's overlay entry goes back to exactly
// what it was before; other records are untouched.
func (e *Engine) Update(ctx context.Context, id string, in models.AdUpdate) (models.AdPatch, error) {
	local := in.Patch()

	e.mu.Lock()
	prev, existed := e.overlay.FieldOverlay(id)
	e.overlay.ApplyFieldOverlay(id, local)
	e.inflight[id]++
	e.notifyLocked()
	e.mu.Unlock()

	echoed, err := e.api.UpdateAd(ctx, id, in)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[id]--; e.inflight[id] <= 0 {
		delete(e.inflight, id)
	}

	if err != nil {
		e.overlay.restoreFieldOverlay(id, prev, existed)
		es := classifyMutation(OpUpdate, err)
		e.err = es
		e.logger.Warn("update failed, local edit rolled back", "id", id, "kind", es.Kind.String(), "error", err)
		e.notifyLocked()
		return models.AdPatch{}, es
	}

	// Fields the server leaves out of its echo fall back to what was sent.
	confirmed := echoed.Or(local)
	e.overlay.ReplaceFieldOverlay(id, confirmed)
	e.overlay.PatchCreated(id, confirmed)
	e.clearErrLocked(OpUpdate)
	e.logger.Info("listing updated", "id", id)
	e.refreshLocked()
	e.notifyLocked()
	return confirmed.Clone(), nil
}

// Delete hides the record at once, then submits the delete. On failure the
// record reappears unless it was already hidden before this call.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	wasHidden := e.overlay.IsHidden(id)
	e.overlay.Hide(id)
	e.notifyLocked()
	e.mu.Unlock()

	err := e.api.DeleteAd(ctx, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		if !wasHidden {
			e.overlay.Unhide(id)
		}
		es := classifyMutation(OpDelete, err)
		e.err = es
		e.logger.Warn("delete failed, record restored", "id", id, "kind", es.Kind.String(), "error", err)
		e.notifyLocked()
		return es
	}

	e.overlay.RemoveCreated(id)
	e.clearErrLocked(OpDelete)
	e.logger.Info("listing deleted", "id", id)
	e.refreshLocked()
	e.notifyLocked()
	return nil
}
