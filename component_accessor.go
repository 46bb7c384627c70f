package depot

// AccessibleComponent extends a component descriptor with typed access to
// entity, shared and default storage.
type AccessibleComponent[T any] struct {
	*ComponentDescriptor
}

// GetFromEntity returns the entity's instance, or nil when the entity is dead
// or its archetype lacks the component.
func (c AccessibleComponent[T]) GetFromEntity(w *World, id EntityID) *T {
	block, lane := w.componentBlock(id, c.hash)
	if block == nil {
		return nil
	}
	return (*T)(laneAt(block, lane, c.size))
}

// GetFromCursor returns the instance of the entity under the cursor.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	offset := cursor.currentData.archetype.components.offsetOf(c.hash)
	if offset < 0 {
		return nil
	}
	block := offsetPtr(cursor.currentPage.tile(cursor.slot, cursor.currentData.archetype.size), offset)
	return (*T)(laneAt(block, int(cursor.slot%4), c.size))
}

// GetFromCursorSafe reports whether the archetype under the cursor has the
// component before fetching it.
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	if !c.CheckCursor(cursor) {
		return false, nil
	}
	return true, c.GetFromCursor(cursor)
}

// CheckCursor determines if the component exists in the archetype at the cursor position.
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	return cursor.currentData != nil && cursor.currentData.archetype.components.offsetOf(c.hash) >= 0
}

// GetFromPage returns the instance stored at slot of a page view.
func (c AccessibleComponent[T]) GetFromPage(view PageView, slot int) *T {
	block, lane := view.Block(c, slot)
	if block == nil {
		return nil
	}
	return (*T)(laneAt(block, lane, c.size))
}

// GetFromOutput resolves a query output element for slot of page.
func (c AccessibleComponent[T]) GetFromOutput(out ComponentOutput, view PageView, slot int) *T {
	if out.Offset < 0 || out.Data != view.Data {
		return nil
	}
	block := offsetPtr(view.page.tile(int32(slot), out.Data.archetype.size), out.Offset)
	return (*T)(laneAt(block, slot%4, c.size))
}

// Shared returns the archetype's shared instance.
func (c AccessibleComponent[T]) Shared(a *Archetype) *T {
	ptr := a.SharedComponent(c)
	if ptr == nil {
		return nil
	}
	return (*T)(ptr)
}

// SharedFromEntity returns the shared instance of the entity's archetype.
func (c AccessibleComponent[T]) SharedFromEntity(w *World, id EntityID) *T {
	a := w.Archetype(id)
	if a == nil {
		return nil
	}
	return c.Shared(a)
}

// SetShared overwrites the shared instance and refreshes the archetype hash.
func (c AccessibleComponent[T]) SetShared(a *Archetype, value T) error {
	if a.registered {
		return ArchetypeRegisteredError{Hash: a.hash}
	}
	ptr := c.Shared(a)
	if ptr == nil {
		return ComponentNotFoundError{Component: c.name}
	}
	*ptr = value
	a.CalculateHash()
	return nil
}

// Default returns the archetype's authored default, or nil if it has none.
func (c AccessibleComponent[T]) Default(a *Archetype) *T {
	ptr := a.DefaultComponent(c)
	if ptr == nil {
		return nil
	}
	return (*T)(ptr)
}

// SetDefault records value as the authored default for the component.
func (c AccessibleComponent[T]) SetDefault(a *Archetype, value T) error {
	if err := a.AddWithDefault(c); err != nil {
		return err
	}
	*c.Default(a) = value
	return nil
}
