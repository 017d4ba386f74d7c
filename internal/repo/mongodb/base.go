package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/store"
	"github.com/nguyentranbao-ct/agent-console/internal/validate"
)

// keep the baseRepo implementation in sync with store.Adapter
var _ store.Adapter[models.Agent] = (*baseRepo[models.Agent])(nil)

// IEntity is a record that knows which collection it lives in.
type IEntity[R any] interface {
	store.Record[R]
	CollectionName() string
}

// Codec transforms records on their way in and out of the database. The
// zero Codec is the identity.
type Codec[R any] struct {
	Encode       func(R) (R, error)
	Decode       func(R) (R, error)
	EncodeFields func(bson.M) (bson.M, error)
}

type baseRepo[R IEntity[R]] struct {
	coll      *mongo.Collection
	name      string
	validator *validate.Validator
	codec     Codec[R]
}

func newBaseRepo[R IEntity[R]](db *DB, v *validate.Validator, codec Codec[R]) *baseRepo[R] {
	var entity R
	name := entity.CollectionName()
	return &baseRepo[R]{
		coll:      db.Database.Collection(name),
		name:      name,
		validator: v,
		codec:     codec,
	}
}

// NewAdapter returns the store adapter for R's collection.
func NewAdapter[R IEntity[R]](db *DB, v *validate.Validator, codec Codec[R]) store.Adapter[R] {
	return newBaseRepo(db, v, codec)
}

func (r *baseRepo[R]) Collection() string {
	return r.name
}

// List sorts by _id; object ids embed their creation second and a counter,
// which keeps insertion order.
func (r *baseRepo[R]) List(ctx context.Context) ([]R, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, storeError(r.name, fmt.Errorf("find: %w", err))
	}
	var entities []R
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, storeError(r.name, fmt.Errorf("cursor all: %w", err))
	}
	if r.codec.Decode != nil {
		for i, e := range entities {
			decoded, err := r.codec.Decode(e)
			if err != nil {
				return nil, models.NewStoreError(models.StoreUnknown, r.name, fmt.Errorf("decode %s: %w", e.GetID(), err))
			}
			entities[i] = decoded
		}
	}
	return entities, nil
}

// Watch opens a change stream first and lists afterwards, so no commit can
// fall between the initial snapshot and the first event. Every event
// triggers a fresh list.
func (r *baseRepo[R]) Watch(ctx context.Context) (*store.Stream[R], error) {
	cs, err := r.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, storeError(r.name, fmt.Errorf("open change stream: %w", err))
	}

	return store.NewStream(ctx, func(ctx context.Context, emit func([]R)) error {
		defer cs.Close(context.WithoutCancel(ctx))

		snap, err := r.List(ctx)
		if err != nil {
			return err
		}
		emit(snap)

		for cs.Next(ctx) {
			// collapse a burst of events into a single re-list
			for cs.RemainingBatchLength() > 0 && cs.Next(ctx) {
			}
			snap, err := r.List(ctx)
			if err != nil {
				return err
			}
			emit(snap)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return storeError(r.name, fmt.Errorf("change stream: %w", cs.Err()))
	}), nil
}

func (r *baseRepo[R]) Create(ctx context.Context, entity R) (string, error) {
	if err := r.validator.Record(entity); err != nil {
		return "", err
	}
	doc := entity.Stamp("", 1)
	if r.codec.Encode != nil {
		encoded, err := r.codec.Encode(doc)
		if err != nil {
			return "", models.NewStoreError(models.StoreUnknown, r.name, fmt.Errorf("encode: %w", err))
		}
		doc = encoded
	}

	result, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", storeError(r.name, fmt.Errorf("insert one: %w", err))
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", models.NewStoreError(models.StoreUnknown, r.name, fmt.Errorf("invalid inserted id: %T %+v", result.InsertedID, result.InsertedID))
	}
	return oid.Hex(), nil
}

// idFilter matches one document by hex id. An id that is not a valid
// ObjectID cannot name a stored record, so it is reported as not found.
func (r *baseRepo[R]) idFilter(id string) (bson.M, error) {
	oid := models.ObjectID(id)
	if !oid.Valid() {
		return nil, models.NewStoreError(models.StoreNotFound, r.name, fmt.Errorf("invalid id %q", id))
	}
	return bson.M{"_id": oid}, nil
}

// Update sets the patch fields and bumps the version in one atomic write.
func (r *baseRepo[R]) Update(ctx context.Context, id string, p store.Patch[R]) (int64, error) {
	filter, err := r.idFilter(id)
	if err != nil {
		return 0, err
	}
	set := p.Fields()
	if r.codec.EncodeFields != nil {
		encoded, err := r.codec.EncodeFields(set)
		if err != nil {
			return 0, models.NewStoreError(models.StoreUnknown, r.name, fmt.Errorf("encode fields: %w", err))
		}
		set = encoded
	}

	update := bson.M{"$inc": bson.M{"version": 1}}
	if len(set) > 0 {
		update["$set"] = set
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"version": 1})

	var updated struct {
		Version int64 `bson:"version"`
	}
	err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, models.NewStoreError(models.StoreNotFound, r.name, fmt.Errorf("id %s", id))
	}
	if err != nil {
		return 0, storeError(r.name, fmt.Errorf("find one and update: %w", err))
	}
	return updated.Version, nil
}

func (r *baseRepo[R]) Delete(ctx context.Context, id string) error {
	filter, err := r.idFilter(id)
	if err != nil {
		return err
	}
	result, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return storeError(r.name, fmt.Errorf("delete one: %w", err))
	}
	if result.DeletedCount == 0 {
		return models.NewStoreError(models.StoreNotFound, r.name, fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *baseRepo[R]) FindOne(ctx context.Context, filter bson.M) (R, error) {
	var entity R
	err := r.coll.FindOne(ctx, filter).Decode(&entity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity, models.NewStoreError(models.StoreNotFound, r.name, err)
	}
	if err != nil {
		return entity, storeError(r.name, err)
	}
	if r.codec.Decode != nil {
		return r.codec.Decode(entity)
	}
	return entity, nil
}
