package homework

import "context"

// Stats summarises the whole store.
type Stats struct {
	Owners  int
	Entries int
	Items   int
}

// Store persists entries partitioned by owner. Put replaces the entry for its
// date as a whole. Get and Delete return ErrNotFound for absent keys.
type Store interface {
	Get(ctx context.Context, owner int64, date Date) (Entry, error)
	Put(ctx context.Context, owner int64, entry Entry) error
	Delete(ctx context.Context, owner int64, date Date) error
	// ListDates returns the owner's dates, latest first.
	ListDates(ctx context.Context, owner int64) ([]Date, error)
	// List returns the owner's entries, latest date first.
	List(ctx context.Context, owner int64) ([]Entry, error)
	Clear(ctx context.Context, owner int64) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
