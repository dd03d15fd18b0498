package ports

import (
	"context"

	"github.com/aretw0/tether/pkg/domain"
)

// Journal records dispatched actions, in dispatch order, per store.
// It is an audit log: it is never read back into a container.
type Journal interface {
	// Append records one finished dispatch under rec.StoreID.
	Append(ctx context.Context, rec domain.ActionRecord) error

	// List returns the records of a store, oldest first.
	// An unknown store yields an empty list and no error.
	List(ctx context.Context, storeID string) ([]domain.ActionRecord, error)
}
