package live

import (
	"github.com/google/uuid"
)

// Reconciler merges optimistic local ledger entries with authoritative server
// state. A client appends a tentative entry under a temporary identifier, then
// either confirms it with the created record from the server or rolls it back
// when the write fails. Pure data structure, independent of any network code.
type Reconciler[T any] struct {
	id            func(T) uuid.UUID
	authoritative []T
	pendingOrder  []uuid.UUID
	pending       map[uuid.UUID]T
}

// NewReconciler creates a reconciler for one ledger collection. id extracts a
// record's identity, used to de-duplicate confirmed entries against a
// subsequent authoritative refresh.
func NewReconciler[T any](id func(T) uuid.UUID) *Reconciler[T] {
	return &Reconciler[T]{
		id:      id,
		pending: make(map[uuid.UUID]T),
	}
}

// SetAuthoritative replaces the authoritative list from a fresh snapshot.
// In-flight optimistic entries survive the refresh.
func (r *Reconciler[T]) SetAuthoritative(records []T) {
	r.authoritative = append([]T(nil), records...)
}

// Optimistic appends a tentative entry under a temporary identifier and
// returns that identifier for later confirmation or rollback.
func (r *Reconciler[T]) Optimistic(record T) uuid.UUID {
	tempID := uuid.New()
	r.pending[tempID] = record
	r.pendingOrder = append(r.pendingOrder, tempID)
	return tempID
}

// Confirm replaces the tentative entry with the authoritative record returned
// by the server. Confirming an unknown temp id still appends the record, so a
// late response after a refresh is not lost.
func (r *Reconciler[T]) Confirm(tempID uuid.UUID, record T) {
	r.dropPending(tempID)
	for _, existing := range r.authoritative {
		if r.id(existing) == r.id(record) {
			return
		}
	}
	r.authoritative = append(r.authoritative, record)
}

// Rollback reverts a failed optimistic write.
func (r *Reconciler[T]) Rollback(tempID uuid.UUID) {
	r.dropPending(tempID)
}

// Render returns the display list: authoritative entries followed by
// still-pending optimistic ones in submission order.
func (r *Reconciler[T]) Render() []T {
	out := append([]T(nil), r.authoritative...)
	for _, tempID := range r.pendingOrder {
		if record, ok := r.pending[tempID]; ok {
			out = append(out, record)
		}
	}
	return out
}

// PendingCount reports how many optimistic entries await a server response.
func (r *Reconciler[T]) PendingCount() int {
	return len(r.pending)
}

func (r *Reconciler[T]) dropPending(tempID uuid.UUID) {
	if _, ok := r.pending[tempID]; !ok {
		return
	}
	delete(r.pending, tempID)
	for i, id := range r.pendingOrder {
		if id == tempID {
			r.pendingOrder = append(r.pendingOrder[:i], r.pendingOrder[i+1:]...)
			break
		}
	}
}
