package depot

import (
	"encoding/binary"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// Archetype is a schema: sorted shared and per-entity component lists, the
// shared instance data and the authored per-entity defaults. Archetypes are
// composed privately, finalized, then handed to a World which owns them from
// then on.
type Archetype struct {
	shared     componentList
	components componentList

	sharedData  blob
	defaultData blob

	sharedSize int32
	size       int32

	hash       uint64
	isBase     bool
	finalized  bool
	registered bool
}

func newArchetype() *Archetype {
	return &Archetype{}
}

func (a *Archetype) mutable() error {
	if a.registered {
		return ArchetypeRegisteredError{Hash: a.hash}
	}
	return nil
}

// Add appends a per-entity component. Adding a present component succeeds
// without change.
func (a *Archetype) Add(c Component) error {
	return a.add(c.Descriptor(), false)
}

// AddWithDefault adds a per-entity component whose default value is stored in
// the archetype and copied onto every entity it loads.
func (a *Archetype) AddWithDefault(c Component) error {
	return a.add(c.Descriptor(), true)
}

func (a *Archetype) add(desc *ComponentDescriptor, withDefault bool) error {
	if err := a.mutable(); err != nil {
		return err
	}
	if desc.ops.Copy == nil {
		return MissingCapabilityError{Component: desc.name, Capability: "Copy"}
	}
	if desc.ops.Load == nil {
		return MissingCapabilityError{Component: desc.name, Capability: "Load"}
	}
	if withDefault && desc.ops.CopyDefaultToNonShared == nil {
		return MissingCapabilityError{Component: desc.name, Capability: "CopyDefaultToNonShared"}
	}

	i, inserted := a.components.insert(desc, entityOffsetScale)
	if inserted {
		a.defaultData = a.defaultData.insert(a.components[i].offset/entityOffsetScale, desc.size)
		a.size += desc.size
	}
	if withDefault {
		a.components[i].hasDefault = true
	}
	return nil
}

// AddShared adds a component stored once for the whole archetype.
func (a *Archetype) AddShared(c Component) error {
	desc := c.Descriptor()
	if err := a.mutable(); err != nil {
		return err
	}
	if desc.ops.CopyShared == nil {
		return MissingCapabilityError{Component: desc.name, Capability: "CopyShared"}
	}
	i, inserted := a.shared.insert(desc, sharedOffsetScale)
	if inserted {
		a.sharedData = a.sharedData.insert(a.shared[i].offset, desc.size)
		a.sharedSize += desc.size
	}
	return nil
}

func (a *Archetype) Remove(c Component) error {
	desc := c.Descriptor()
	if err := a.mutable(); err != nil {
		return err
	}
	removed, ok := a.components.erase(desc.hash, entityOffsetScale)
	if !ok {
		return ComponentNotFoundError{Component: desc.name}
	}
	a.defaultData = a.defaultData.cut(removed.offset/entityOffsetScale, desc.size)
	a.size -= desc.size
	return nil
}

func (a *Archetype) RemoveShared(c Component) error {
	desc := c.Descriptor()
	if err := a.mutable(); err != nil {
		return err
	}
	removed, ok := a.shared.erase(desc.hash, sharedOffsetScale)
	if !ok {
		return ComponentNotFoundError{Component: desc.name}
	}
	a.sharedData = a.sharedData.cut(removed.offset, desc.size)
	a.sharedSize -= desc.size
	return nil
}

// Copy replaces this archetype's schema with base's. Shared instances and
// defaults are copied only when asked for; base is never modified.
func (a *Archetype) Copy(base *Archetype, copySharedData, copyDefaultData bool) error {
	if err := a.mutable(); err != nil {
		return err
	}
	a.shared = base.shared.clone()
	a.components = base.components.clone()
	a.sharedSize = base.sharedSize
	a.size = base.size
	a.sharedData = newBlob(int(base.sharedSize))
	a.defaultData = newBlob(int(base.size))

	if copySharedData {
		for _, e := range a.shared {
			e.desc.ops.CopyShared(base.sharedData.at(e.offset), a.sharedData.at(e.offset))
		}
	}
	for i := range a.components {
		e := &a.components[i]
		if !copyDefaultData || !e.hasDefault {
			e.hasDefault = false
			continue
		}
		off := e.offset / entityOffsetScale
		e.desc.ops.Copy(base.defaultData.at(off), 0, a.defaultData.at(off), 0)
	}
	a.hash = base.hash
	return nil
}

// Finalize seals a programmatically built archetype.
func (a *Archetype) Finalize(isBase bool) error {
	if err := a.mutable(); err != nil {
		return err
	}
	if a.sharedData == nil {
		a.sharedData = newBlob(int(a.sharedSize))
	}
	if a.defaultData == nil {
		a.defaultData = newBlob(int(a.size))
	}
	a.isBase = isBase
	a.finalized = true
	a.CalculateHash()
	return nil
}

// FinalizeFrom clones base, schema and data, and seals the result.
func (a *Archetype) FinalizeFrom(base *Archetype) error {
	if err := a.Copy(base, true, true); err != nil {
		return err
	}
	return a.Finalize(false)
}

// FinalizeReader builds the archetype from a document shaped as
//
//	{ "shared_components": { <name>: <fields> },
//	  "components": { <name>: <fields or null> },
//	  "is_base": bool }
//
// Component names resolve through reg. Non-null per-entity entries become
// authored defaults.
func (a *Archetype) FinalizeReader(reg *Registry, r Reader) error {
	return a.finalizeDocument(reg, r, nil)
}

// FinalizeReaderWithBase is FinalizeReader where shared values and defaults
// start from base, so fields the document leaves out keep inherited values.
func (a *Archetype) FinalizeReaderWithBase(reg *Registry, r Reader, base *Archetype) error {
	return a.finalizeDocument(reg, r, base)
}

func (a *Archetype) finalizeDocument(reg *Registry, r Reader, base *Archetype) error {
	if err := a.mutable(); err != nil {
		return err
	}
	if !r.IsObject() {
		return DocumentError{Reason: "archetype is not an object"}
	}
	if err := a.addFromDocument(reg, r, "shared_components", true); err != nil {
		return err
	}
	if err := a.addFromDocument(reg, r, "components", false); err != nil {
		return err
	}
	if base != nil {
		a.inherit(base)
	}
	if err := a.loadValues(r, "shared_components", true); err != nil {
		return err
	}
	if err := a.loadValues(r, "components", false); err != nil {
		return err
	}

	isBase := false
	func() {
		defer r.Enter("is_base")()
		isBase = r.ReadBool(false)
	}()
	return a.Finalize(isBase)
}

func (a *Archetype) addFromDocument(reg *Registry, r Reader, key string, shared bool) error {
	defer r.Enter(key)()
	if r.IsNull() {
		return nil
	}
	if !r.IsObject() {
		return DocumentError{Field: key, Reason: "not an object"}
	}

	var err error
	r.ForEachInObject(func(name string) bool {
		desc, ok := reg.Lookup(name)
		switch {
		case !ok:
			err = UnknownComponentError{Name: name}
		case shared:
			err = a.AddShared(desc)
		case r.IsNull():
			err = a.Add(desc)
		default:
			err = a.AddWithDefault(desc)
		}
		return err != nil
	})
	return err
}

// inherit copies base's shared instances and defaults into the matching
// components of a, wherever they sit in a's layout.
func (a *Archetype) inherit(base *Archetype) {
	for _, e := range a.shared {
		baseOffset := base.shared.offsetOf(e.desc.hash)
		if baseOffset < 0 {
			continue
		}
		e.desc.ops.CopyShared(base.sharedData.at(baseOffset), a.sharedData.at(e.offset))
	}
	for i := range a.components {
		e := &a.components[i]
		j := base.components.indexOf(e.desc.hash)
		if j < 0 || !base.components[j].hasDefault {
			continue
		}
		from := base.defaultData.at(base.components[j].offset / entityOffsetScale)
		e.desc.ops.Copy(from, 0, a.defaultData.at(e.offset/entityOffsetScale), 0)
		e.hasDefault = true
	}
}

func (a *Archetype) loadValues(r Reader, key string, shared bool) error {
	defer r.Enter(key)()
	if !r.IsObject() {
		return nil
	}

	var err error
	r.ForEachInObject(func(name string) bool {
		if r.IsNull() {
			return false
		}
		var (
			list = a.components
			data = a.defaultData
		)
		if shared {
			list, data = a.shared, a.sharedData
		}
		i := list.indexOf(ComponentHash(name))
		if i < 0 {
			err = ComponentNotFoundError{Component: name}
			return true
		}
		e := list[i]
		offset := e.offset
		if !shared {
			offset /= entityOffsetScale
		}
		if e.desc.ops.LoadValue == nil {
			err = MissingCapabilityError{Component: name, Capability: "LoadValue"}
			return true
		}
		if !e.desc.ops.LoadValue(r, data.at(offset)) {
			err = DocumentError{Field: key + "." + name, Reason: "failed to load value"}
			return true
		}
		return false
	})
	return err
}

// CalculateHash recomputes the content hash from the sorted shared component
// hashes, the shared instance bytes, the sorted per-entity hashes and the
// base flag. Per-entity values are not part of the identity, so a base and
// the archetypes derived from it never share storage.
func (a *Archetype) CalculateHash() uint64 {
	digest := xxhash.New()
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = digest.Write(buf[:])
	}

	write(uint64(len(a.shared)))
	for _, e := range a.shared {
		write(e.desc.hash)
	}
	_, _ = digest.Write(a.sharedData)
	write(uint64(len(a.components)))
	for _, e := range a.components {
		write(e.desc.hash)
	}
	if a.isBase {
		write(1)
	} else {
		write(0)
	}
	a.hash = digest.Sum64()
	return a.hash
}

func (a *Archetype) Hash() uint64 { return a.hash }

func (a *Archetype) IsBase() bool { return a.isBase }

func (a *Archetype) Finalized() bool { return a.finalized }

// Size is the per-entity byte size: the sum of all per-entity component sizes.
func (a *Archetype) Size() int32 { return a.size }

func (a *Archetype) SharedSize() int32 { return a.sharedSize }

func (a *Archetype) NumComponents() int { return len(a.components) }

func (a *Archetype) NumSharedComponents() int { return len(a.shared) }

// Components lists the per-entity descriptors in layout order.
func (a *Archetype) Components() []*ComponentDescriptor {
	out := make([]*ComponentDescriptor, len(a.components))
	for i, e := range a.components {
		out[i] = e.desc
	}
	return out
}

func (a *Archetype) SharedComponents() []*ComponentDescriptor {
	out := make([]*ComponentDescriptor, len(a.shared))
	for i, e := range a.shared {
		out[i] = e.desc
	}
	return out
}

// ComponentOffset is the component's byte offset within a four entity tile,
// or -1.
func (a *Archetype) ComponentOffset(c Component) int32 {
	return a.components.offsetOf(c.Descriptor().hash)
}

// SharedComponentOffset is the component's offset in the shared data, or -1.
func (a *Archetype) SharedComponentOffset(c Component) int32 {
	return a.shared.offsetOf(c.Descriptor().hash)
}

func (a *Archetype) HasComponent(c Component) bool {
	return a.ComponentOffset(c) >= 0
}

func (a *Archetype) HasSharedComponent(c Component) bool {
	return a.SharedComponentOffset(c) >= 0
}

// HasDefault reports whether the per-entity component carries an authored default.
func (a *Archetype) HasDefault(c Component) bool {
	i := a.components.indexOf(c.Descriptor().hash)
	return i >= 0 && a.components[i].hasDefault
}

// SharedComponent points at the shared instance, or is nil when absent.
func (a *Archetype) SharedComponent(c Component) unsafe.Pointer {
	offset := a.SharedComponentOffset(c)
	if offset < 0 {
		return nil
	}
	return a.sharedData.at(offset)
}

// DefaultComponent points at the authored default, or is nil when there is none.
func (a *Archetype) DefaultComponent(c Component) unsafe.Pointer {
	i := a.components.indexOf(c.Descriptor().hash)
	if i < 0 || !a.components[i].hasDefault {
		return nil
	}
	return a.defaultData.at(a.components[i].offset / entityOffsetScale)
}

// LoadComponent hands the reader to the named component's Load for entity id.
func (a *Archetype) LoadComponent(w *World, id EntityID, name string, r Reader) error {
	i := a.components.indexOf(ComponentHash(name))
	if i < 0 {
		return ComponentNotFoundError{Component: name}
	}
	if !a.components[i].desc.ops.Load(w, id, r) {
		return DocumentError{Field: name, Reason: "failed to load component"}
	}
	return nil
}

// LoadDefaults copies every authored default onto entity id.
func (a *Archetype) LoadDefaults(w *World, id EntityID) {
	for _, e := range a.components {
		if !e.hasDefault {
			continue
		}
		e.desc.ops.CopyDefaultToNonShared(w, id, a.defaultData.at(e.offset/entityOffsetScale))
	}
}

// destroyEntity returns a slot to its constructed state by running each
// component's destructor then constructor on the entity's lane.
func (a *Archetype) destroyEntity(id EntityID, tile unsafe.Pointer, lane int) {
	for _, e := range a.components {
		block := offsetPtr(tile, e.offset)
		e.desc.destruct(id, block, lane)
		e.desc.construct(id, block, lane)
	}
}

// constructPage runs every constructor over every lane of every tile.
func (a *Archetype) constructPage(page *entityPage, capacity int32) {
	for slot := int32(0); slot < capacity; slot += 4 {
		tile := page.tile(slot, a.size)
		for lane := 0; lane < 4; lane++ {
			for _, e := range a.components {
				e.desc.construct(InvalidEntity, offsetPtr(tile, e.offset), lane)
			}
		}
	}
}
