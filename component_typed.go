package depot

import (
	"reflect"
	"unsafe"
)

type componentConfig[T any] struct {
	construct     func(*T)
	destruct      func(*T)
	sharedOnly    bool
	perEntityOnly bool
}

// ComponentOption adjusts the operation table built for a Go typed component.
type ComponentOption[T any] func(*componentConfig[T])

// WithConstructor runs fn on every freshly constructed instance, after it is zeroed.
func WithConstructor[T any](fn func(*T)) ComponentOption[T] {
	return func(c *componentConfig[T]) { c.construct = fn }
}

// WithDestructor runs fn on an instance before its slot is reset.
func WithDestructor[T any](fn func(*T)) ComponentOption[T] {
	return func(c *componentConfig[T]) { c.destruct = fn }
}

// SharedOnly leaves out the per-entity operations.
func SharedOnly[T any]() ComponentOption[T] {
	return func(c *componentConfig[T]) { c.sharedOnly = true }
}

// PerEntityOnly leaves out CopyShared.
func PerEntityOnly[T any]() ComponentOption[T] {
	return func(c *componentConfig[T]) { c.perEntityOnly = true }
}

// DescribeComponent builds a descriptor for the pointer-free Go type T.
// Values are copied byte-wise and loaded with the reader's Decode.
func DescribeComponent[T any](name string, opts ...ComponentOption[T]) (*ComponentDescriptor, error) {
	typ := reflect.TypeFor[T]()
	if hasPointers(typ) {
		return nil, PointerComponentError{Name: name, Type: typ}
	}
	var cfg componentConfig[T]
	for _, opt := range opts {
		opt(&cfg)
	}

	desc := NewComponentDescriptor[T](name, ComponentOps{})
	size := desc.size

	desc.ops.Construct = func(_ EntityID, block unsafe.Pointer, lane int) {
		ptr := laneAt(block, lane, size)
		zeroBytes(ptr, size)
		if cfg.construct != nil {
			cfg.construct((*T)(ptr))
		}
	}
	if cfg.destruct != nil {
		desc.ops.Destruct = func(_ EntityID, block unsafe.Pointer, lane int) {
			cfg.destruct((*T)(laneAt(block, lane, size)))
		}
	}
	desc.ops.LoadValue = func(r Reader, value unsafe.Pointer) bool {
		return r.Decode((*T)(value)) == nil
	}
	if !cfg.perEntityOnly {
		desc.ops.CopyShared = func(old, new unsafe.Pointer) {
			copyBytes(new, old, size)
		}
	}
	if cfg.sharedOnly {
		return desc, nil
	}

	desc.ops.Copy = func(oldBlock unsafe.Pointer, oldLane int, newBlock unsafe.Pointer, newLane int) {
		copyBytes(laneAt(newBlock, newLane, size), laneAt(oldBlock, oldLane, size), size)
	}
	desc.ops.CopyDefaultToNonShared = func(w *World, id EntityID, value unsafe.Pointer) {
		block, lane := w.componentBlock(id, desc.hash)
		if block == nil {
			return
		}
		copyBytes(laneAt(block, lane, size), value, size)
	}
	desc.ops.Load = func(w *World, id EntityID, r Reader) bool {
		block, lane := w.componentBlock(id, desc.hash)
		if block == nil {
			return false
		}
		return r.Decode((*T)(laneAt(block, lane, size))) == nil
	}
	return desc, nil
}

// RegisterComponent describes T and adds it to reg under name.
func RegisterComponent[T any](reg *Registry, name string, opts ...ComponentOption[T]) (AccessibleComponent[T], error) {
	desc, err := DescribeComponent[T](name, opts...)
	if err != nil {
		return AccessibleComponent[T]{}, err
	}
	if err := reg.Register(desc); err != nil {
		return AccessibleComponent[T]{}, err
	}
	return AccessibleComponent[T]{ComponentDescriptor: desc}, nil
}

func hasPointers(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice, reflect.String,
		reflect.Interface, reflect.Chan, reflect.Func:
		return true
	case reflect.Array:
		return typ.Len() > 0 && hasPointers(typ.Elem())
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if hasPointers(typ.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
