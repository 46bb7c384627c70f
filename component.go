package depot

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/TheBitDrifter/table"
	"github.com/cespare/xxhash/v2"
)

// Component is anything that resolves to a registered component descriptor.
// Both *ComponentDescriptor and AccessibleComponent[T] satisfy it.
type Component interface {
	Descriptor() *ComponentDescriptor
}

// Constructor puts lane of a four wide component block into its empty state.
type Constructor func(id EntityID, block unsafe.Pointer, lane int)

// Destructor releases whatever lane of a component block holds.
type Destructor func(id EntityID, block unsafe.Pointer, lane int)

// Copier copies one lane of a component block into a lane of another block.
type Copier func(oldBlock unsafe.Pointer, oldLane int, newBlock unsafe.Pointer, newLane int)

// SharedCopier copies a single, untiled component instance.
type SharedCopier func(old, new unsafe.Pointer)

// DefaultCopier writes an untiled default instance into an entity's component.
type DefaultCopier func(w *World, id EntityID, value unsafe.Pointer)

// Loader reads an entity's component from the reader's current element.
type Loader func(w *World, id EntityID, r Reader) bool

// ValueLoader reads an untiled component instance (shared or default value)
// from the reader's current element.
type ValueLoader func(r Reader, value unsafe.Pointer) bool

// ComponentOps is the operation table captured for a component type when it
// is described. Nil entries mean the type lacks that capability.
//
// Callbacks run while the World holds its internal lock (Construct, Destruct,
// Copy) must not call back into the World.
type ComponentOps struct {
	Construct              Constructor
	Destruct               Destructor
	Copy                   Copier
	CopyShared             SharedCopier
	CopyDefaultToNonShared DefaultCopier
	Load                   Loader
	LoadValue              ValueLoader
}

// ComponentDescriptor is the per-type metadata every archetype list refers to.
type ComponentDescriptor struct {
	name        string
	hash        uint64
	size        int32
	bit         uint32
	elementType table.ElementType
	ops         ComponentOps
}

var (
	componentSchemaMu sync.Mutex
	componentSchema   = table.Factory.NewSchema()
	elementTypes      = make(map[reflect.Type]table.ElementType)
	componentBits     = make(map[uint64]uint32)
)

// ComponentHash is the identity hash of a component name.
func ComponentHash(name string) uint64 {
	return xxhash.Sum64String(name)
}

// NewComponentDescriptor describes T under name with the given operations.
// The per-entity size is the size of T rounded up to a whole word.
//
// Element types are shared by every component of one Go type, while mask
// bits are assigned per component name, so two names backed by the same
// type never satisfy each other's query masks.
func NewComponentDescriptor[T any](name string, ops ComponentOps) *ComponentDescriptor {
	var zero T
	hash := ComponentHash(name)

	componentSchemaMu.Lock()
	elementType, ok := elementTypes[reflect.TypeFor[T]()]
	if !ok {
		elementType = table.FactoryNewElementType[T]()
		elementTypes[reflect.TypeFor[T]()] = elementType
		componentSchema.Register(elementType)
	}
	bit, ok := componentBits[hash]
	if !ok {
		bit = uint32(len(componentBits))
		componentBits[hash] = bit
	}
	componentSchemaMu.Unlock()

	return &ComponentDescriptor{
		name:        name,
		hash:        hash,
		size:        alignWord(int32(unsafe.Sizeof(zero))),
		bit:         bit,
		elementType: elementType,
		ops:         ops,
	}
}

func alignWord(size int32) int32 {
	return (size + 7) &^ 7
}

func (d *ComponentDescriptor) Descriptor() *ComponentDescriptor { return d }

func (d *ComponentDescriptor) Name() string { return d.name }

func (d *ComponentDescriptor) Hash() uint64 { return d.hash }

func (d *ComponentDescriptor) Size() int32 { return d.size }

func (d *ComponentDescriptor) Ops() ComponentOps { return d.ops }

// Bit is the descriptor's index in archetype and query masks.
func (d *ComponentDescriptor) Bit() uint32 { return d.bit }

// ElementType is the table element type registered for the descriptor's Go type.
func (d *ComponentDescriptor) ElementType() table.ElementType { return d.elementType }

// CanBeShared reports whether the type may be added as a shared component.
func (d *ComponentDescriptor) CanBeShared() bool {
	return d.ops.CopyShared != nil
}

// CanBePerEntity reports whether the type may be stored per entity.
func (d *ComponentDescriptor) CanBePerEntity() bool {
	return d.ops.Copy != nil && d.ops.Load != nil
}

func (d *ComponentDescriptor) construct(id EntityID, block unsafe.Pointer, lane int) {
	if d.ops.Construct != nil {
		d.ops.Construct(id, block, lane)
	}
}

func (d *ComponentDescriptor) destruct(id EntityID, block unsafe.Pointer, lane int) {
	if d.ops.Destruct != nil {
		d.ops.Destruct(id, block, lane)
	}
}
