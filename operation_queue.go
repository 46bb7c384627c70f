package depot

import (
	"errors"
	"fmt"
	"slices"

	"github.com/TheBitDrifter/mask"
	"go.uber.org/zap"
)

type createOp struct {
	hash   uint64
	amount int
}

type migrateOp struct {
	id   EntityID
	hash uint64
}

// opQueue holds structural changes requested while the World is locked.
type opQueue struct {
	createOps      []createOp
	migrateOps     []migrateOp
	destroyOps     []EntityID
	teardowns      []*EntityData
	pendingDestroy map[EntityID]struct{}
	pendingMods    map[EntityID]int
}

func newOpQueue() opQueue {
	return opQueue{
		pendingDestroy: make(map[EntityID]struct{}),
		pendingMods:    make(map[EntityID]int),
	}
}

func (q *opQueue) empty() bool {
	return len(q.createOps) == 0 && len(q.migrateOps) == 0 && len(q.destroyOps) == 0 && len(q.teardowns) == 0
}

func (q *opQueue) enqueueTeardown(data *EntityData) {
	if !slices.Contains(q.teardowns, data) {
		q.teardowns = append(q.teardowns, data)
	}
}

func (q *opQueue) enqueueDestroy(ids []EntityID) {
	for _, id := range ids {
		if _, exists := q.pendingDestroy[id]; exists {
			continue
		}
		q.pendingDestroy[id] = struct{}{}
		q.destroyOps = append(q.destroyOps, id)

		if idx, ok := q.pendingMods[id]; ok {
			q.migrateOps[idx].id = InvalidEntity
			delete(q.pendingMods, id)
		}
	}
}

func (q *opQueue) enqueueMigrate(id EntityID, hash uint64) {
	if _, destroyed := q.pendingDestroy[id]; destroyed {
		return
	}
	if idx, ok := q.pendingMods[id]; ok {
		q.migrateOps[idx].hash = hash
		return
	}
	q.pendingMods[id] = len(q.migrateOps)
	q.migrateOps = append(q.migrateOps, migrateOp{id: id, hash: hash})
}

func (q *opQueue) reset() {
	q.createOps = q.createOps[:0]
	q.migrateOps = q.migrateOps[:0]
	q.destroyOps = q.destroyOps[:0]
	clear(q.teardowns)
	q.teardowns = q.teardowns[:0]
	clear(q.pendingDestroy)
	clear(q.pendingMods)
}

// Lock blocks structural changes until the matching Unlock. Locks nest.
func (w *World) Lock() {
	w.mu.Lock()
	w.lockCount++
	w.mu.Unlock()
}

// Unlock releases one Lock. Once no lock remains, queued operations run:
// creates first, then migrations, then destroys, and finally the teardown of
// storage whose last reference was released while locked.
func (w *World) Unlock() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockCount > 0 {
		w.lockCount--
	}
	if w.lockedLocked() {
		return nil
	}
	return w.processOperationQueueLocked()
}

// AddLock sets a named lock bit. The World stays locked while any bit is set.
func (w *World) AddLock(bit uint32) {
	w.mu.Lock()
	w.locks.Mark(bit)
	w.mu.Unlock()
}

// RemoveLock clears a lock bit, flushing queued operations when it was the
// last lock held.
func (w *World) RemoveLock(bit uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.locks.Unmark(bit)
	if w.lockedLocked() {
		return nil
	}
	return w.processOperationQueueLocked()
}

func (w *World) Locked() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lockedLocked()
}

func (w *World) lockedLocked() bool {
	return w.lockCount > 0 || w.locks != (mask.Mask{})
}

func (w *World) processOperationQueueLocked() error {
	q := &w.opQueue
	if q.empty() {
		return nil
	}
	defer q.reset()

	var errs []error
	for _, op := range q.createOps {
		data, err := w.spawnTargetLocked(op.hash)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to process queued entity creation: %w", err))
			continue
		}
		for range op.amount {
			w.createEntityLocked(data)
		}
	}
	for _, op := range q.migrateOps {
		if op.id == InvalidEntity || !w.validLocked(op.id) {
			continue
		}
		data, err := w.spawnTargetLocked(op.hash)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to process queued migration: %w", err))
			continue
		}
		w.migrateLocked(op.id, data)
	}
	destroyed := 0
	for _, id := range q.destroyOps {
		if !w.validLocked(id) {
			continue
		}
		w.destroyEntityLocked(id, true)
		destroyed++
	}
	removed := 0
	for _, data := range q.teardowns {
		// storage referenced again since its release survives
		if data.refCount > 0 {
			continue
		}
		w.teardownLocked(data)
		removed++
	}

	w.log.Debug("operation queue flushed",
		zap.Int("creates", len(q.createOps)),
		zap.Int("migrations", len(q.migrateOps)),
		zap.Int("destroyed", destroyed),
		zap.Int("archetypes_removed", removed),
	)
	return errors.Join(errs...)
}

// EnqueueCreateEntities creates n entities now, or once the World unlocks.
func (w *World) EnqueueCreateEntities(hash uint64, n int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, err := w.spawnTargetLocked(hash)
	if err != nil {
		return err
	}
	if !w.lockedLocked() {
		for range n {
			w.createEntityLocked(data)
		}
		return nil
	}
	w.opQueue.createOps = append(w.opQueue.createOps, createOp{hash: hash, amount: n})
	return nil
}

// EnqueueDestroyEntities destroys the entities now, or once the World
// unlocks. A queued destroy cancels any queued migration of the same entity.
func (w *World) EnqueueDestroyEntities(ids ...EntityID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range ids {
		if !w.validLocked(id) {
			return InvalidEntityError{ID: id}
		}
	}
	if !w.lockedLocked() {
		for _, id := range ids {
			if w.validLocked(id) {
				w.destroyEntityLocked(id, true)
			}
		}
		return nil
	}
	w.opQueue.enqueueDestroy(ids)
	return nil
}

// EnqueueMigrate moves the entity now, or once the World unlocks. Only the
// last migration queued for an entity runs.
func (w *World) EnqueueMigrate(id EntityID, hash uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.validLocked(id) {
		return InvalidEntityError{ID: id}
	}
	data, err := w.spawnTargetLocked(hash)
	if err != nil {
		return err
	}
	if !w.lockedLocked() {
		w.migrateLocked(id, data)
		return nil
	}
	w.opQueue.enqueueMigrate(id, hash)
	return nil
}
