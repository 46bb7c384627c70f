package depot

import (
	"slices"

	"github.com/TheBitDrifter/mask"
)

var _ mask.Maskable = &EntityData{}

// EntityData is the live storage of one registered archetype.
type EntityData struct {
	archetype       *Archetype
	pages           []*entityPage
	freeSlots       []slotRef
	entitiesPerPage int32
	numEntities     int32
	refCount        int32
	queries         []*Query

	componentMask mask.Mask
	sharedMask    mask.Mask
}

type slotRef struct {
	page *entityPage
	slot int32
}

func newEntityData(a *Archetype, perPage int32) *EntityData {
	data := &EntityData{
		archetype:       a,
		entitiesPerPage: perPage,
	}
	for _, e := range a.components {
		data.componentMask.Mark(e.desc.bit)
	}
	for _, e := range a.shared {
		data.sharedMask.Mark(e.desc.bit)
	}
	return data
}

// Mask marks the per-entity components of the archetype.
func (d *EntityData) Mask() mask.Mask { return d.componentMask }

// SharedMask marks the shared components of the archetype.
func (d *EntityData) SharedMask() mask.Mask { return d.sharedMask }

func (d *EntityData) Archetype() *Archetype { return d.archetype }

func (d *EntityData) Hash() uint64 { return d.archetype.hash }

func (d *EntityData) NumEntities() int { return int(d.numEntities) }

func (d *EntityData) NumPages() int { return len(d.pages) }

func (d *EntityData) EntitiesPerPage() int { return int(d.entitiesPerPage) }

func (d *EntityData) RefCount() int { return int(d.refCount) }

// allocateIndex hands out a slot: a recorded hole first, then the unused tail
// of the newest page, then a freshly constructed page.
func (d *EntityData) allocateIndex() (page *entityPage, slot int32, fresh bool) {
	if n := len(d.freeSlots); n > 0 {
		ref := d.freeSlots[n-1]
		d.freeSlots = d.freeSlots[:n-1]
		return ref.page, ref.slot, false
	}
	if n := len(d.pages); n > 0 {
		last := d.pages[n-1]
		if last.next < d.entitiesPerPage {
			slot = last.next
			last.next++
			return last, slot, false
		}
	}
	page = newEntityPage(d.entitiesPerPage, d.archetype.size)
	d.archetype.constructPage(page, d.entitiesPerPage)
	page.next = 1
	d.pages = append(d.pages, page)
	return page, 0, true
}

func (d *EntityData) bind(id EntityID, page *entityPage, slot int32) {
	page.ids[slot] = id
	page.count++
	d.numEntities++
}

// freeIndex resets the slot and either records it for reuse or drops the
// page once nothing lives in it. It reports whether the page was dropped.
func (d *EntityData) freeIndex(id EntityID, page *entityPage, slot int32) bool {
	d.archetype.destroyEntity(id, page.tile(slot, d.archetype.size), int(slot%4))
	page.ids[slot] = InvalidEntity
	page.count--
	d.numEntities--

	if page.count > 0 {
		d.freeSlots = append(d.freeSlots, slotRef{page: page, slot: slot})
		return false
	}
	d.pages = slices.DeleteFunc(d.pages, func(p *entityPage) bool { return p == page })
	d.freeSlots = slices.DeleteFunc(d.freeSlots, func(ref slotRef) bool { return ref.page == page })
	return true
}

func (d *EntityData) subscribe(q *Query) {
	d.queries = append(d.queries, q)
}
