package depot

type factory struct{}

// Factory is the entry point for building registries, archetypes, worlds,
// queries and cursors.
var Factory factory

func (f factory) NewRegistry() *Registry {
	return newRegistry(defaultRegistryCapacity)
}

func (f factory) NewRegistryWithCapacity(capacity int) *Registry {
	return newRegistry(capacity)
}

func (f factory) NewArchetype() *Archetype {
	return newArchetype()
}

func (f factory) NewWorld(reg *Registry, opts ...WorldOption) (*World, error) {
	return newWorld(reg, opts...)
}

func (f factory) NewQuery() *Query {
	return newQuery()
}

func (f factory) NewCursor(q *Query, w *World) *Cursor {
	return newCursor(q, w)
}

// FactoryNewComponent registers T under name and returns its accessor.
func FactoryNewComponent[T any](reg *Registry, name string, opts ...ComponentOption[T]) (AccessibleComponent[T], error) {
	return RegisterComponent[T](reg, name, opts...)
}
