package depot

import "fmt"

// AddComponent moves the entity to the archetype that extends its current one
// with c, registering that archetype if needed.
func (w *World) AddComponent(id EntityID, c Component) error {
	origin := w.Archetype(id)
	if origin == nil {
		return InvalidEntityError{ID: id}
	}
	if origin.HasComponent(c) {
		return ComponentExistsError{Component: c.Descriptor().name}
	}
	return w.migrateToVariant(id, origin, func(next *Archetype) error {
		return next.Add(c)
	})
}

// RemoveComponent moves the entity to the archetype without c. The removed
// component's value is lost.
func (w *World) RemoveComponent(id EntityID, c Component) error {
	origin := w.Archetype(id)
	if origin == nil {
		return InvalidEntityError{ID: id}
	}
	if !origin.HasComponent(c) {
		return ComponentNotFoundError{Component: c.Descriptor().name}
	}
	return w.migrateToVariant(id, origin, func(next *Archetype) error {
		return next.Remove(c)
	})
}

func (w *World) migrateToVariant(id EntityID, origin *Archetype, change func(*Archetype) error) error {
	next := newArchetype()
	if err := next.Copy(origin, true, true); err != nil {
		return err
	}
	if err := change(next); err != nil {
		return err
	}
	if err := next.Finalize(false); err != nil {
		return err
	}
	ref, err := w.AddArchetype(next)
	if err != nil {
		return fmt.Errorf("failed to get/create archetype: %w", err)
	}
	defer ref.Release()

	if err := w.Migrate(id, ref.Hash()); err != nil {
		return fmt.Errorf("failed to migrate entity: %w", err)
	}
	return nil
}
