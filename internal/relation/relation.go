// Package relation resolves nested attribute identifiers to existing related
// records. Resolution prefers an in-memory candidate set snapshotted from the
// parent and only falls back to a store lookup when no snapshot exists.
package relation

import (
	"context"
	"fmt"

	"record-i18n/internal/record"
	"record-i18n/internal/schema"
	"record-i18n/internal/store"
)

// CandidateSet is a snapshot of the related records already loaded for one
// association. A nil set means no snapshot was taken and lookups go to the
// store; a non-nil set, even an empty one, is authoritative and a miss is
// ErrNotFound without touching the database.
type CandidateSet []*record.Record

// Resolver finds the existing related record a payload identifier refers to.
type Resolver struct {
	store store.Store
}

// NewResolver creates a resolver backed by the given store for fallback
// lookups.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// FindExisting resolves id to a persisted record of the association's target
// type. With a candidate set the scan returns the first record whose primary
// key matches the coerced id. Without one the store's lookup-by-id runs
// instead. Identifiers that cannot be coerced to an integer key match
// nothing.
func (r *Resolver) FindExisting(ctx context.Context, assoc *schema.Association, id any, candidates CandidateSet) (*record.Record, error) {
	recID, ok := record.CoerceID(id)
	if !ok {
		return nil, fmt.Errorf("%s.%s id %v is not a record identifier: %w",
			assoc.Owner, assoc.Name, id, store.ErrNotFound)
	}

	if candidates != nil {
		for _, candidate := range candidates {
			if candidate != nil && candidate.ID() == recID {
				return candidate, nil
			}
		}
		return nil, fmt.Errorf("%s.%s id %d not in loaded set: %w",
			assoc.Owner, assoc.Name, recID, store.ErrNotFound)
	}

	rec, err := r.store.FindByID(ctx, assoc.Target, recID)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", assoc.Owner, assoc.Name, err)
	}
	return rec, nil
}
