package depot

import (
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// LayerSet is the set of entities spawned from one layer document. Each object is
// placed in an archetype derived from a named base and tagged with the layer's
// hash, so identical objects of the same layer share storage.
type LayerSet struct {
	Name     string
	Hash     uint64
	Entities []EntityID

	world *World
	refs  []ArchetypeReference
}

// LayerHash is the value of the Layer component for a layer name.
func LayerHash(name string) uint64 {
	return xxhash.Sum64String(name)
}

// LoadLayer reads
//
//	{ "name": string,
//	  "objects": [ { "archetype": string, "overrides": <archetype>, "components": {...} } ] }
//
// Every object's entities live in an archetype derived from its base and
// tagged with the layer's Layer component, including objects whose
// overrides are null, so entities of different layers never share storage
// even when they use the same base unchanged.
//
// An object whose base is unknown or whose document is malformed is logged
// and skipped. The returned LayerSet holds a reference to every archetype it
// registered until Release.
func LoadLayer(w *World, reg *Registry, bases ArchetypeSource, r Reader) (*LayerSet, error) {
	if !r.IsObject() {
		return nil, DocumentError{Reason: "layer is not an object"}
	}
	layer := &LayerSet{world: w}
	func() {
		defer r.Enter("name")()
		layer.Name = r.ReadString("")
	}()
	layer.Hash = LayerHash(layer.Name)
	log := w.log.With(zap.String("layer", layer.Name))

	defer r.Enter("objects")()
	if r.IsNull() {
		return layer, nil
	}
	if !r.IsArray() {
		layer.Release()
		return nil, DocumentError{Field: "objects", Reason: "not an array"}
	}
	r.ForEachInArray(func(index int) bool {
		if err := layer.loadObject(reg, bases, r); err != nil {
			log.Warn("layer object skipped", zap.Int("index", index), zap.Error(err))
		}
		return false
	})
	log.Debug("layer loaded",
		zap.Int("entities", len(layer.Entities)),
		zap.Int("archetypes", len(layer.refs)),
	)
	return layer, nil
}

func (l *LayerSet) loadObject(reg *Registry, bases ArchetypeSource, r Reader) error {
	if !r.IsObject() {
		return DocumentError{Reason: "object is not an object"}
	}
	var name string
	func() {
		defer r.Enter("archetype")()
		name = r.ReadString("")
	}()
	base, ok := bases.Archetype(name)
	if !ok {
		return DocumentError{Field: "archetype", Reason: "unknown archetype " + name}
	}

	a, err := l.deriveArchetype(reg, base, r)
	if err != nil {
		return err
	}
	ref, err := l.world.AddArchetype(a)
	if err != nil {
		return err
	}
	l.refs = append(l.refs, ref)

	defer r.Enter("components")()
	id, err := l.world.LoadEntity(ref.Hash(), r)
	if err != nil {
		return err
	}
	l.Entities = append(l.Entities, id)
	return nil
}

func (l *LayerSet) deriveArchetype(reg *Registry, base *Archetype, r Reader) (*Archetype, error) {
	a := newArchetype()
	if err := a.Copy(base, true, true); err != nil {
		return nil, err
	}
	if err := a.AddShared(LayerComponent); err != nil {
		return nil, err
	}

	defer r.Enter("overrides")()
	var err error
	if r.IsNull() {
		err = a.Finalize(false)
	} else {
		err = a.FinalizeReaderWithBase(reg, r, base)
	}
	if err != nil {
		return nil, err
	}
	if a.isBase {
		return nil, BaseArchetypeError{Hash: a.hash}
	}
	if err := LayerComponent.SetShared(a, Layer{Value: l.Hash}); err != nil {
		return nil, err
	}
	return a, nil
}

// Release drops the layer's archetype references. Entities stay alive and
// keep their storage alive until destroyed.
func (l *LayerSet) Release() {
	for i := range l.refs {
		l.refs[i].Release()
	}
	l.refs = nil
}
