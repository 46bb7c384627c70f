package depot

import "go.uber.org/zap"

// Migrate moves an entity into the storage registered under hash. Components
// present in both archetypes keep their values; components only the old
// archetype has are dropped and components only the new one has start out
// constructed. The entity keeps its id.
func (w *World) Migrate(id EntityID, hash uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockedLocked() {
		return LockedWorldError{}
	}
	if !w.validLocked(id) {
		return InvalidEntityError{ID: id}
	}
	dst, err := w.spawnTargetLocked(hash)
	if err != nil {
		return err
	}
	w.migrateLocked(id, dst)
	return nil
}

func (w *World) migrateLocked(id EntityID, dst *EntityData) {
	old := w.entities[id]
	src := old.data
	if src == dst {
		return
	}

	page, slot, fresh := dst.allocateIndex()
	if fresh {
		w.log.Debug("page allocated",
			hashField("archetype", dst.archetype.hash),
			zap.Int("pages", len(dst.pages)),
		)
	}
	dst.bind(id, page, slot)

	oldTile := old.page.tile(old.slot, src.archetype.size)
	newTile := page.tile(slot, dst.archetype.size)
	oldLane, newLane := int(old.slot%4), int(slot%4)
	for _, e := range src.archetype.components {
		newOffset := dst.archetype.components.offsetOf(e.desc.hash)
		if newOffset < 0 {
			continue
		}
		e.desc.ops.Copy(offsetPtr(oldTile, e.offset), oldLane, offsetPtr(newTile, newOffset), newLane)
	}

	w.entities[id] = entitySlot{data: dst, page: page, slot: slot}
	if src.freeIndex(id, old.page, old.slot) {
		w.log.Debug("page released",
			hashField("archetype", src.archetype.hash),
			zap.Int("pages", len(src.pages)),
		)
	}
	dst.refCount++
	w.releaseLocked(src)
}
