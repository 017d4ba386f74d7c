// Package memstore is an in-process implementation of store.Adapter. It
// backs DATABASE_DRIVER=memory and doubles as the adapter in tests.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/store"
	"github.com/nguyentranbao-ct/agent-console/internal/validate"
)

var _ store.Adapter[models.Agent] = (*Collection[models.Agent])(nil)

// Op names a write for failure injection.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Collection keeps records in insertion order.
type Collection[R store.Record[R]] struct {
	name      string
	validator *validate.Validator

	mu      sync.Mutex
	records []R
	subs    map[int]chan struct{}
	nextSub int
	fail    map[Op]error
	writes  int
	gate    chan struct{}
}

func New[R store.Record[R]](name string, seed ...R) *Collection[R] {
	c := &Collection[R]{
		name:      name,
		validator: validate.New(),
		subs:      make(map[int]chan struct{}),
		fail:      make(map[Op]error),
	}
	for _, r := range seed {
		id := r.GetID()
		if id == "" {
			id = string(models.NewObjectID())
		}
		c.records = append(c.records, r.Stamp(id, max(r.GetVersion(), 1)))
	}
	return c
}

func (c *Collection[R]) Collection() string {
	return c.name
}

// FailNext makes the next write of kind op return err instead of committing.
func (c *Collection[R]) FailNext(op Op, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[op] = err
}

// Hold blocks every write until the returned release func is called.
func (c *Collection[R]) Hold() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.gate = gate
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.gate = nil
			c.mu.Unlock()
			close(gate)
		})
	}
}

// Writes counts committed and attempted writes, failed ones included.
func (c *Collection[R]) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func (c *Collection[R]) List(ctx context.Context) ([]R, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStoreError(models.StoreNetwork, c.name, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.records), nil
}

func (c *Collection[R]) Watch(ctx context.Context) (*store.Stream[R], error) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	notify := make(chan struct{}, 1)
	notify <- struct{}{}
	c.subs[id] = notify
	c.mu.Unlock()

	return store.NewStream(ctx, func(ctx context.Context, emit func([]R)) error {
		defer func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-notify:
				snap, err := c.List(ctx)
				if err != nil {
					return err
				}
				emit(snap)
			}
		}
	}), nil
}

// Subscribers reports how many live watches are open.
func (c *Collection[R]) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Collection[R]) Create(ctx context.Context, r R) (string, error) {
	if err := c.validator.Record(r); err != nil {
		return "", err
	}
	if err := c.begin(ctx, OpCreate); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	id := string(models.NewObjectID())
	c.records = append(c.records, r.Stamp(id, 1))
	c.notifyLocked()
	return id, nil
}

func (c *Collection[R]) Update(ctx context.Context, id string, p store.Patch[R]) (int64, error) {
	if err := c.begin(ctx, OpUpdate); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexLocked(id)
	if idx < 0 {
		return 0, models.NewStoreError(models.StoreNotFound, c.name, fmt.Errorf("id %s", id))
	}
	cur := c.records[idx]
	next := p.Apply(cur)
	version := cur.GetVersion() + 1
	c.records[idx] = next.Stamp(id, version)
	c.notifyLocked()
	return version, nil
}

func (c *Collection[R]) Delete(ctx context.Context, id string) error {
	if err := c.begin(ctx, OpDelete); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexLocked(id)
	if idx < 0 {
		return models.NewStoreError(models.StoreNotFound, c.name, fmt.Errorf("id %s", id))
	}
	c.records = slices.Delete(c.records, idx, idx+1)
	c.notifyLocked()
	return nil
}

// begin waits on any hold gate, then consumes an injected failure.
func (c *Collection[R]) begin(ctx context.Context, op Op) error {
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.NewStoreError(models.StoreNetwork, c.name, ctx.Err())
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if err, ok := c.fail[op]; ok {
		delete(c.fail, op)
		return err
	}
	return nil
}

func (c *Collection[R]) indexLocked(id string) int {
	return slices.IndexFunc(c.records, func(r R) bool { return r.GetID() == id })
}

func (c *Collection[R]) notifyLocked() {
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
