// Package store defines the resource store adapter contract: a typed view
// of one document collection with CRUD and a live snapshot feed.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Record is a document identified by an opaque string id and stamped with
// the version the store assigned on its last committed write.
type Record[R any] interface {
	GetID() string
	GetVersion() int64
	// Stamp returns a copy carrying the given identity and version.
	Stamp(id string, version int64) R
}

// Patch is a partial update. Apply is used for local (optimistic or
// in-memory) application; Fields is the $set document sent to a database.
type Patch[R any] interface {
	Apply(R) R
	Fields() bson.M
}

// Adapter is implemented once per collection. Every method may fail with a
// *models.StoreError; adapters do not retry.
type Adapter[R Record[R]] interface {
	Collection() string
	// List returns the current contents in insertion order.
	List(ctx context.Context) ([]R, error)
	// Watch opens a live feed. The first snapshot is the current contents,
	// each later one follows a committed mutation. Snapshots are full
	// replacements and may be coalesced or repeated.
	Watch(ctx context.Context) (*Stream[R], error)
	// Create inserts r and returns the assigned id. The record starts at version 1.
	Create(ctx context.Context, r R) (string, error)
	// Update applies p and returns the new version.
	Update(ctx context.Context, id string, p Patch[R]) (int64, error)
	Delete(ctx context.Context, id string) error
}
