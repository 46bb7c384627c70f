package depot

import "sync"

const defaultRegistryCapacity = 1024

// Registry resolves component names to descriptors. Archetype documents name
// their components; the registry is how those names become storage layouts.
type Registry struct {
	mu          sync.RWMutex
	items       []*ComponentDescriptor
	itemIndices map[uint64]int
	maxCapacity int
}

func newRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = defaultRegistryCapacity
	}
	reg := &Registry{
		itemIndices: make(map[uint64]int),
		maxCapacity: capacity,
	}
	// builtins cannot collide in a fresh registry
	_ = reg.Register(PageSizeComponent)
	_ = reg.Register(LayerComponent)
	return reg
}

// Register adds desc. Registering the same descriptor twice is a no-op; a
// different descriptor under a taken name is an error.
func (r *Registry) Register(c Component) error {
	desc := c.Descriptor()
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.itemIndices[desc.hash]; ok {
		if r.items[idx] == desc {
			return nil
		}
		return DuplicateComponentError{Name: desc.name}
	}
	if len(r.items) >= r.maxCapacity {
		return RegistryFullError{Capacity: r.maxCapacity}
	}
	r.itemIndices[desc.hash] = len(r.items)
	r.items = append(r.items, desc)
	return nil
}

// Lookup finds a descriptor by component name.
func (r *Registry) Lookup(name string) (*ComponentDescriptor, bool) {
	return r.LookupHash(ComponentHash(name))
}

func (r *Registry) LookupHash(hash uint64) (*ComponentDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.itemIndices[hash]
	if !ok {
		return nil, false
	}
	return r.items[idx], true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Components returns the registered descriptors in registration order.
func (r *Registry) Components() []*ComponentDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ComponentDescriptor, len(r.items))
	copy(out, r.items)
	return out
}
