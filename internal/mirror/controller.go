// Package mirror keeps a local copy of one remote collection in sync with
// its live snapshot feed while applying the actor's writes optimistically.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/policy"
	"github.com/nguyentranbao-ct/agent-console/internal/store"
	"github.com/nguyentranbao-ct/agent-console/pkg/logger"
)

const tempPrefix = "local-"

// Guard runs before an optimistic mutation with the current mirror. A
// non-nil error refuses the write before the store is touched.
type Guard[R any] func(op models.Operation, current []R, rec R) error

type Option[R store.Record[R]] func(*Controller[R])

func WithGuard[R store.Record[R]](g Guard[R]) Option[R] {
	return func(c *Controller[R]) {
		c.guard = g
	}
}

// Controller mirrors a collection for one actor.
//
// Snapshots replace the mirror wholesale except for three overlays:
// records with a write still in flight keep their optimistic value, records
// whose write committed at version v keep the local copy while a snapshot
// still shows an older version, and records deleted here stay hidden until a
// snapshot omits them. Once a snapshot catches up the overlay entry is
// dropped and the mirror equals the snapshot.
type Controller[R store.Record[R]] struct {
	adapter  store.Adapter[R]
	resource models.ResourceType
	actor    models.Actor
	guard    Guard[R]
	log      *logger.Logger

	mu        sync.Mutex
	items     []R
	ready     bool
	readyCh   chan struct{}
	lastErr   error
	closed    bool
	tempSeq   int
	pending   map[string]int
	committed map[string]int64
	unseen    map[string]struct{}
	deleted   map[string]struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	changes chan struct{}
	stream  *store.Stream[R]
	done    chan struct{}
}

// New subscribes to the adapter's feed. The actor must be allowed to read
// the resource. Callers must Close the controller.
func New[R store.Record[R]](
	ctx context.Context,
	adapter store.Adapter[R],
	resource models.ResourceType,
	actor models.Actor,
	opts ...Option[R],
) (*Controller[R], error) {
	if !policy.CanPerform(actor.Tier, actor.Role, resource, models.OpRead) {
		return nil, models.Denied(resource, models.OpRead, "")
	}

	c := &Controller[R]{
		adapter:   adapter,
		resource:  resource,
		actor:     actor,
		log:       logger.MustNamed("mirror." + adapter.Collection()),
		readyCh:   make(chan struct{}),
		pending:   make(map[string]int),
		committed: make(map[string]int64),
		unseen:    make(map[string]struct{}),
		deleted:   make(map[string]struct{}),
		changes:   make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	stream, err := adapter.Watch(c.ctx)
	if err != nil {
		c.cancel()
		return nil, fmt.Errorf("watch %s: %w", adapter.Collection(), err)
	}
	c.stream = stream
	go c.pump()

	return c, nil
}

func (c *Controller[R]) pump() {
	defer close(c.done)
	for snap := range c.stream.Snapshots() {
		if missing := c.apply(snap); len(missing) > 0 {
			c.confirmCreated(missing)
		}
	}
	if err := c.stream.Err(); err != nil {
		c.log.Warnw("snapshot feed ended", "error", err)
		c.mu.Lock()
		c.lastErr = err
		c.notifyLocked()
		c.mu.Unlock()
	}
}

// apply merges snap into the mirror and returns the ids created here that
// it still lacks.
func (c *Controller[R]) apply(snap []R) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	local := make(map[string]R, len(c.items))
	for _, r := range c.items {
		local[r.GetID()] = r
	}
	incoming := make(map[string]struct{}, len(snap))

	next := make([]R, 0, len(snap)+len(c.pending))
	for _, r := range snap {
		id := r.GetID()
		incoming[id] = struct{}{}
		delete(c.unseen, id)

		if _, gone := c.deleted[id]; gone {
			continue
		}
		if c.pending[id] > 0 {
			if l, ok := local[id]; ok {
				next = append(next, l)
			}
			continue
		}
		if v, ok := c.committed[id]; ok {
			if r.GetVersion() < v {
				if l, ok := local[id]; ok {
					next = append(next, l)
					continue
				}
			}
			delete(c.committed, id)
		}
		next = append(next, r)
	}

	for id := range c.deleted {
		if _, ok := incoming[id]; !ok {
			delete(c.deleted, id)
		}
	}
	var missing []string
	for _, r := range c.items {
		id := r.GetID()
		if _, ok := c.unseen[id]; ok {
			missing = append(missing, id)
			next = append(next, r)
			continue
		}
		if isTemp(id) {
			next = append(next, r)
			continue
		}
		if _, ok := incoming[id]; !ok {
			delete(c.committed, id)
		}
	}

	c.items = next
	if !c.ready {
		c.ready = true
		close(c.readyCh)
	}
	c.notifyLocked()
	return missing
}

// confirmCreated re-reads the store for records created here that a
// snapshot omitted. The list starts after their commit, so an id it lacks
// was deleted elsewhere before any snapshot showed it.
func (c *Controller[R]) confirmCreated(ids []string) {
	list, err := c.adapter.List(c.ctx)
	if err != nil {
		c.log.Debugw("could not confirm created records", "error", err)
		return
	}
	present := make(map[string]struct{}, len(list))
	for _, r := range list {
		present[r.GetID()] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	changed := false
	for _, id := range ids {
		if _, ok := c.unseen[id]; !ok {
			continue
		}
		if _, ok := present[id]; ok {
			continue
		}
		delete(c.unseen, id)
		delete(c.committed, id)
		if idx := c.indexLocked(id); idx >= 0 {
			c.items = slices.Delete(c.items, idx, idx+1)
			changed = true
		}
	}
	if changed {
		c.notifyLocked()
	}
}

// WaitReady blocks until the first snapshot has been applied.
func (c *Controller[R]) WaitReady(ctx context.Context) error {
	select {
	case <-c.readyCh:
		return nil
	case <-c.done:
		select {
		case <-c.readyCh:
			return nil
		default:
		}
		if err := c.LastError(); err != nil {
			return err
		}
		return models.ErrControllerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller[R]) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// LastError is the most recent failed write or feed error. A later
// successful write clears it.
func (c *Controller[R]) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Snapshot returns a copy of the mirror.
func (c *Controller[R]) Snapshot() []R {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

func (c *Controller[R]) Get(id string) (R, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexLocked(id); idx >= 0 {
		return c.items[idx], true
	}
	var zero R
	return zero, false
}

// Changes fires after every mirror change. Notifications coalesce.
func (c *Controller[R]) Changes() <-chan struct{} {
	return c.changes
}

// Done is closed once the feed has stopped.
func (c *Controller[R]) Done() <-chan struct{} {
	return c.done
}

// Close cancels the subscription and waits for the pump to exit. Writes
// still in flight may land in the store but their results are discarded.
func (c *Controller[R]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.stream.Close()
	<-c.done
}

func (c *Controller[R]) authorize(op models.Operation) error {
	if !policy.CanPerform(c.actor.Tier, c.actor.Role, c.resource, op) {
		return models.Denied(c.resource, op, "")
	}
	return nil
}

// Create adds rec optimistically under a temporary id and forwards it to the
// store. On success the temporary entry takes the store's id.
func (c *Controller[R]) Create(ctx context.Context, rec R) (string, error) {
	if err := c.WaitReady(ctx); err != nil {
		return "", err
	}
	if err := c.authorize(models.OpCreate); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", models.ErrControllerClosed
	}
	if c.guard != nil {
		if err := c.guard(models.OpCreate, slices.Clone(c.items), rec); err != nil {
			c.mu.Unlock()
			return "", err
		}
	}
	c.tempSeq++
	temp := fmt.Sprintf("%s%d", tempPrefix, c.tempSeq)
	c.items = append(c.items, rec.Stamp(temp, 0))
	c.pending[temp]++
	c.notifyLocked()
	c.mu.Unlock()

	id, err := c.adapter.Create(ctx, rec)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(temp)
	if c.closed {
		return id, err
	}

	idx := c.indexLocked(temp)
	if err != nil {
		if idx >= 0 {
			c.items = slices.Delete(c.items, idx, idx+1)
		}
		c.failLocked(err)
		return "", err
	}

	if idx >= 0 {
		if c.indexLocked(id) >= 0 {
			c.items = slices.Delete(c.items, idx, idx+1)
		} else {
			c.items[idx] = rec.Stamp(id, 1)
			c.unseen[id] = struct{}{}
			c.committed[id] = max(c.committed[id], 1)
		}
	}
	c.lastErr = nil
	c.notifyLocked()
	return id, nil
}

// Update is Patch with the update operation.
func (c *Controller[R]) Update(ctx context.Context, id string, p store.Patch[R]) (int64, error) {
	return c.Patch(ctx, models.OpUpdate, id, p)
}

// Patch applies p locally, authorised as op, and forwards it to the store.
// A store failure restores the previous value.
func (c *Controller[R]) Patch(ctx context.Context, op models.Operation, id string, p store.Patch[R]) (int64, error) {
	if err := c.WaitReady(ctx); err != nil {
		return 0, err
	}
	if err := c.authorize(op); err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, models.ErrControllerClosed
	}
	idx := c.indexLocked(id)
	if idx < 0 || isTemp(id) {
		c.mu.Unlock()
		return 0, c.notFound(id)
	}
	if c.guard != nil {
		if err := c.guard(op, slices.Clone(c.items), c.items[idx]); err != nil {
			c.mu.Unlock()
			return 0, err
		}
	}
	prev := c.items[idx]
	c.items[idx] = p.Apply(prev)
	c.pending[id]++
	c.notifyLocked()
	c.mu.Unlock()

	version, err := c.adapter.Update(ctx, id, p)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(id)
	if c.closed {
		return version, err
	}

	idx = c.indexLocked(id)
	if err != nil {
		if idx >= 0 {
			c.items[idx] = prev
		}
		c.failLocked(err)
		return 0, err
	}

	if version > c.committed[id] {
		c.committed[id] = version
	}
	if idx >= 0 && c.items[idx].GetVersion() < version {
		c.items[idx] = c.items[idx].Stamp(id, version)
	}
	c.lastErr = nil
	c.notifyLocked()
	return version, nil
}

// Delete removes id locally and from the store. A store failure puts the
// record back where it was.
func (c *Controller[R]) Delete(ctx context.Context, id string) error {
	if err := c.WaitReady(ctx); err != nil {
		return err
	}
	if err := c.authorize(models.OpDelete); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return models.ErrControllerClosed
	}
	idx := c.indexLocked(id)
	if idx < 0 || isTemp(id) {
		c.mu.Unlock()
		return c.notFound(id)
	}
	prev := c.items[idx]
	c.items = slices.Delete(c.items, idx, idx+1)
	c.pending[id]++
	c.notifyLocked()
	c.mu.Unlock()

	err := c.adapter.Delete(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(id)
	if c.closed {
		return err
	}

	if err != nil {
		if c.indexLocked(id) < 0 {
			c.items = slices.Insert(c.items, min(idx, len(c.items)), prev)
		}
		c.failLocked(err)
		return err
	}

	c.deleted[id] = struct{}{}
	delete(c.committed, id)
	delete(c.unseen, id)
	c.lastErr = nil
	c.notifyLocked()
	return nil
}

func (c *Controller[R]) notFound(id string) error {
	return models.NewStoreError(models.StoreNotFound, c.adapter.Collection(), fmt.Errorf("id %s", id))
}

func (c *Controller[R]) failLocked(err error) {
	c.lastErr = err
	var serr *models.StoreError
	if errors.As(err, &serr) {
		c.log.Warnw("write rolled back", "kind", serr.Kind, "error", err)
	} else {
		c.log.Warnw("write rolled back", "error", err)
	}
	c.notifyLocked()
}

func (c *Controller[R]) releaseLocked(id string) {
	if c.pending[id] <= 1 {
		delete(c.pending, id)
		return
	}
	c.pending[id]--
}

func (c *Controller[R]) indexLocked(id string) int {
	return slices.IndexFunc(c.items, func(r R) bool { return r.GetID() == id })
}

func (c *Controller[R]) notifyLocked() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func isTemp(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}
