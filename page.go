package depot

import "unsafe"

const (
	// DefaultPageSize is the page budget used when neither the world config
	// nor a shared PageSize component says otherwise.
	DefaultPageSize = 64 * 1024

	// pageHeaderSize is charged against every page budget for the page's own
	// bookkeeping.
	pageHeaderSize = 64

	entityIDSize = int32(unsafe.Sizeof(EntityID(0)))
)

// entityPage holds per-entity data for a fixed number of entities, tiled four
// at a time: tile t covers slots 4t..4t+3 and stores each component as four
// consecutive instances.
type entityPage struct {
	data  blob
	ids   []EntityID
	count int32 // live entities
	next  int32 // first never-used slot
}

func newEntityPage(capacity, rowSize int32) *entityPage {
	page := &entityPage{
		data: newBlob(int(capacity * rowSize)),
		ids:  make([]EntityID, capacity),
	}
	for i := range page.ids {
		page.ids[i] = InvalidEntity
	}
	return page
}

// tile returns the start of the four entity tile holding slot.
func (p *entityPage) tile(slot, rowSize int32) unsafe.Pointer {
	return p.data.at((slot / 4) * rowSize * 4)
}

// entitiesPerPage fits as many entities as the budget allows, in whole tiles,
// never fewer than one tile.
func entitiesPerPage(budget int, rowSize int32) int32 {
	perEntity := int(rowSize + entityIDSize)
	n := (budget - pageHeaderSize) / perEntity
	n &^= 3
	if n < 4 {
		n = 4
	}
	return int32(n)
}

// pageFootprint is the memory a page of capacity entities accounts for.
func pageFootprint(capacity, rowSize int32) int {
	return pageHeaderSize + int(capacity*(rowSize+entityIDSize))
}
