// ABOUTME: Local optimistic deltas: hidden ids, field overlays, pending creations.
// ABOUTME: Pure in-memory structure; the engine serializes access to it.
package board

import (
	"github.com/2389-research/adboard/internal/models"
)

// OverlayState is a read-only copy of the overlay, as handed to Merge.
type OverlayState struct {
	Hidden  map[string]struct{}
	Fields  map[string]models.AdPatch
	Created []models.Ad
}

// Overlay holds local deltas not yet reflected by the authoritative page:
// hidden (deleted) ids, per-record field overlays, and records created in
// this session. Every operation is synchronous and cannot fail, so rollback
// through it cannot fail either. Overlay is not safe for concurrent use; the
// engine guards it.
type Overlay struct {
	hidden  map[string]struct{}
	fields  map[string]models.AdPatch
	created []models.Ad
}

// NewOverlay returns an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{
		hidden: make(map[string]struct{}),
		fields: make(map[string]models.AdPatch),
	}
}

// Hide marks id as locally deleted.
func (o *Overlay) Hide(id string) {
	o.hidden[id] = struct{}{}
}

// Unhide reverses Hide.
func (o *Overlay) Unhide(id string) {
	delete(o.hidden, id)
}

// IsHidden reports whether id is locally deleted.
func (o *Overlay) IsHidden(id string) bool {
	_, ok := o.hidden[id]
	return ok
}

// ApplyFieldOverlay merges patch onto the entry for id, field by field.
// Fields not named in patch keep their current overlay value.
func (o *Overlay) ApplyFieldOverlay(id string, patch models.AdPatch) {
	o.fields[id] = o.fields[id].Merge(patch.Clone())
}

// ReplaceFieldOverlay swaps the whole entry for id with snapshot.
func (o *Overlay) ReplaceFieldOverlay(id string, snapshot models.AdPatch) {
	o.fields[id] = snapshot.Clone()
}

// FieldOverlay returns the entry for id and whether one exists.
func (o *Overlay) FieldOverlay(id string) (models.AdPatch, bool) {
	p, ok := o.fields[id]
	return p.Clone(), ok
}

// restoreFieldOverlay puts back an entry captured with FieldOverlay.
func (o *Overlay) restoreFieldOverlay(id string, prev models.AdPatch, existed bool) {
	if !existed {
		delete(o.fields, id)
		return
	}
	o.fields[id] = prev
}

// retainFields drops every field overlay whose id fails keep.
func (o *Overlay) retainFields(keep func(id string) bool) {
	for id := range o.fields {
		if !keep(id) {
			delete(o.fields, id)
		}
	}
}

// PrependCreated puts ad at the front of the pending list, replacing any
// earlier copy with the same id.
func (o *Overlay) PrependCreated(ad models.Ad) {
	o.RemoveCreated(ad.ID)
	o.created = append([]models.Ad{ad}, o.created...)
}

// RemoveCreated drops id from the pending list.
func (o *Overlay) RemoveCreated(id string) {
	kept := o.created[:0:0]
	for _, c := range o.created {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	o.created = kept
}

// PatchCreated applies patch to the pending record with id, if any.
func (o *Overlay) PatchCreated(id string, patch models.AdPatch) {
	for i, c := range o.created {
		if c.ID == id {
			o.created[i] = patch.Apply(c)
		}
	}
}

// isCreated reports whether id is in the pending list.
func (o *Overlay) isCreated(id string) bool {
	for _, c := range o.created {
		if c.ID == id {
			return true
		}
	}
	return false
}

// State returns a deep copy of the overlay.
func (o *Overlay) State() OverlayState {
	st := OverlayState{
		Hidden:  make(map[string]struct{}, len(o.hidden)),
		Fields:  make(map[string]models.AdPatch, len(o.fields)),
		Created: make([]models.Ad, len(o.created)),
	}
	for id := range o.hidden {
		st.Hidden[id] = struct{}{}
	}
	for id, p := range o.fields {
		st.Fields[id] = p.Clone()
	}
	copy(st.Created, o.created)
	return st
}
