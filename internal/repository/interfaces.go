package repository

import (
	"context"

	"github.com/jwalitptl/clinicstore/pkg/stable"
)

// All repository interfaces in one file
type (
	// KeyedStore is an ordered map from record id to one record type.
	KeyedStore[V any] interface {
		// Get reports false when id is unknown.
		Get(ctx context.Context, id uint64) (V, bool, error)
		// Insert writes v under id, replacing any existing record, and
		// returns the record it replaced.
		Insert(ctx context.Context, id uint64, v V) (V, bool, error)
		Remove(ctx context.Context, id uint64) (V, bool, error)
		// List returns every record in ascending id order.
		List(ctx context.Context) ([]stable.Entry[V], error)
		Len() uint64
	}

	// IDGenerator issues record ids shared by every collection.
	IDGenerator interface {
		NextID(ctx context.Context) (uint64, error)
		Current() uint64
	}
)
