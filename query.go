package depot

import (
	"slices"
	"unsafe"

	"github.com/TheBitDrifter/mask"
)

// Query is a standing filter over archetypes. Bind its outputs, register it
// with a World, and from then on every matching archetype appends exactly one
// element to every bound output, all at the same index. Removing an archetype
// erases that index from all of them.
//
// Bindings must be added before the query is registered. Predicates and
// archetype callbacks run under the World's lock and must not call back
// into it.
type Query struct {
	world *World

	shared     []sharedBinding
	components []componentBinding
	entities   *[]*EntityData
	onAdd      []func(*Archetype)
	onRemove   []func(int)

	matched []*EntityData

	requiredMask       mask.Mask
	requiredSharedMask mask.Mask
}

type sharedBinding struct {
	desc      *ComponentDescriptor
	optional  bool
	push      func(unsafe.Pointer)
	erase     func(int)
	predicate func(unsafe.Pointer) bool
}

type componentBinding struct {
	desc     *ComponentDescriptor
	optional bool
	out      *[]ComponentOutput
}

func newQuery() *Query {
	return &Query{}
}

// Add requires per-entity component c. out may be nil.
func (q *Query) Add(c Component, out *[]ComponentOutput) *Query {
	q.components = append(q.components, componentBinding{desc: c.Descriptor(), out: out})
	return q
}

// AddOptional binds c without requiring it; absent components output offset -1.
func (q *Query) AddOptional(c Component, out *[]ComponentOutput) *Query {
	q.components = append(q.components, componentBinding{desc: c.Descriptor(), optional: true, out: out})
	return q
}

// AddSharedFunc binds shared component c through raw callbacks. push receives
// the shared instance (nil for an absent optional component), erase the index
// to drop, and predicate, if set, can reject an archetype by its shared value.
func (q *Query) AddSharedFunc(c Component, optional bool, push func(unsafe.Pointer), erase func(int), predicate func(unsafe.Pointer) bool) *Query {
	q.shared = append(q.shared, sharedBinding{
		desc:      c.Descriptor(),
		optional:  optional,
		push:      push,
		erase:     erase,
		predicate: predicate,
	})
	return q
}

// Entities binds the output receiving each matched archetype's storage.
func (q *Query) Entities(out *[]*EntityData) *Query {
	q.entities = out
	return q
}

// ArchetypeCallbacks registers functions told about matches and removals.
// remove receives the index the archetype held in the outputs.
func (q *Query) ArchetypeCallbacks(add func(*Archetype), remove func(int)) *Query {
	if add != nil {
		q.onAdd = append(q.onAdd, add)
	}
	if remove != nil {
		q.onRemove = append(q.onRemove, remove)
	}
	return q
}

// Matched lists the storage currently matched, in output order.
func (q *Query) Matched() []*EntityData {
	if q.world == nil {
		return nil
	}
	q.world.mu.RLock()
	defer q.world.mu.RUnlock()
	return slices.Clone(q.matched)
}

func (q *Query) Len() int {
	if q.world == nil {
		return 0
	}
	q.world.mu.RLock()
	defer q.world.mu.RUnlock()
	return len(q.matched)
}

func (q *Query) prepare() {
	for _, b := range q.components {
		if !b.optional {
			q.requiredMask.Mark(b.desc.bit)
		}
	}
	for _, b := range q.shared {
		if !b.optional {
			q.requiredSharedMask.Mark(b.desc.bit)
		}
	}
}

// filter tests data's archetype and, on a match, feeds every output.
func (q *Query) filter(data *EntityData) bool {
	if !data.componentMask.ContainsAll(q.requiredMask) || !data.sharedMask.ContainsAll(q.requiredSharedMask) {
		return false
	}
	a := data.archetype

	sharedOffsets := make([]int32, len(q.shared))
	for i, b := range q.shared {
		offset := a.shared.offsetOf(b.desc.hash)
		sharedOffsets[i] = offset
		if offset < 0 {
			if !b.optional {
				return false
			}
			continue
		}
		if b.predicate != nil && !b.predicate(a.sharedData.at(offset)) {
			return false
		}
	}
	componentOffsets := make([]int32, len(q.components))
	for i, b := range q.components {
		offset := a.components.offsetOf(b.desc.hash)
		componentOffsets[i] = offset
		if offset < 0 && !b.optional {
			return false
		}
	}

	for i, b := range q.shared {
		if b.push == nil {
			continue
		}
		var ptr unsafe.Pointer
		if sharedOffsets[i] >= 0 {
			ptr = a.sharedData.at(sharedOffsets[i])
		}
		b.push(ptr)
	}
	for i, b := range q.components {
		if b.out != nil {
			*b.out = append(*b.out, ComponentOutput{Offset: componentOffsets[i], Data: data})
		}
	}
	if q.entities != nil {
		*q.entities = append(*q.entities, data)
	}
	q.matched = append(q.matched, data)
	for _, fn := range q.onAdd {
		fn(a)
	}
	return true
}

// removeArchetype erases data's index from every output.
func (q *Query) removeArchetype(data *EntityData) {
	index := slices.Index(q.matched, data)
	if index < 0 {
		return
	}
	for _, b := range q.shared {
		if b.erase != nil {
			b.erase(index)
		}
	}
	for _, b := range q.components {
		if b.out != nil {
			*b.out = slices.Delete(*b.out, index, index+1)
		}
	}
	if q.entities != nil {
		*q.entities = slices.Delete(*q.entities, index, index+1)
	}
	q.matched = slices.Delete(q.matched, index, index+1)
	for _, fn := range q.onRemove {
		fn(index)
	}
}

// AddShared requires shared component c and appends its instance to out.
func AddShared[T any](q *Query, c AccessibleComponent[T], out *[]*T) *Query {
	return addShared(q, c, false, out, nil)
}

// AddSharedOptional binds c without requiring it; out receives nil where absent.
func AddSharedOptional[T any](q *Query, c AccessibleComponent[T], out *[]*T) *Query {
	return addShared(q, c, true, out, nil)
}

// AddSharedWhere requires c and only matches archetypes whose shared value
// satisfies predicate.
func AddSharedWhere[T any](q *Query, c AccessibleComponent[T], out *[]*T, predicate func(*T) bool) *Query {
	return addShared(q, c, false, out, predicate)
}

func addShared[T any](q *Query, c AccessibleComponent[T], optional bool, out *[]*T, predicate func(*T) bool) *Query {
	var push func(unsafe.Pointer)
	var erase func(int)
	if out != nil {
		push = func(ptr unsafe.Pointer) { *out = append(*out, (*T)(ptr)) }
		erase = func(index int) { *out = slices.Delete(*out, index, index+1) }
	}
	var test func(unsafe.Pointer) bool
	if predicate != nil {
		test = func(ptr unsafe.Pointer) bool { return predicate((*T)(ptr)) }
	}
	return q.AddSharedFunc(c, optional, push, erase, test)
}
