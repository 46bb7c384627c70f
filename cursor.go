package depot

import (
	"context"
	"errors"
	"iter"
	"slices"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var _ iCursor = &Cursor{}

// Cursor walks the live entities of a registered Query's matched storage.
// The World is locked from the first step until the walk ends or Reset is
// called, so structural changes made meanwhile must go through the Enqueue
// methods.
type Cursor struct {
	query *Query
	world *World

	matched     []*EntityData
	dataIndex   int
	pageIndex   int
	slot        int32
	currentData *EntityData
	currentPage *entityPage
	initialized bool
}

func newCursor(q *Query, w *World) *Cursor {
	return &Cursor{query: q, world: w, slot: -1}
}

// Next advances to the next live entity. It resets the cursor and returns
// false once the matched storage is exhausted.
func (c *Cursor) Next() bool {
	if !c.initialized {
		c.initialize()
	}
	for c.dataIndex < len(c.matched) {
		data := c.matched[c.dataIndex]
		for c.pageIndex < len(data.pages) {
			page := data.pages[c.pageIndex]
			for c.slot+1 < page.next {
				c.slot++
				if page.ids[c.slot] != InvalidEntity {
					c.currentData = data
					c.currentPage = page
					return true
				}
			}
			c.pageIndex++
			c.slot = -1
		}
		c.dataIndex++
		c.pageIndex = 0
	}
	if err := c.Reset(); err != nil {
		c.world.log.Warn("queued operations failed", zap.Error(err))
	}
	return false
}

// Entities yields a running index and the id of every live entity.
func (c *Cursor) Entities() iter.Seq2[int, EntityID] {
	return func(yield func(int, EntityID) bool) {
		i := 0
		for c.Next() {
			if !yield(i, c.Entity()) {
				if err := c.Reset(); err != nil {
					c.world.log.Warn("queued operations failed", zap.Error(err))
				}
				return
			}
			i++
		}
	}
}

// Entity is the entity under the cursor.
func (c *Cursor) Entity() EntityID {
	if c.currentPage == nil {
		return InvalidEntity
	}
	return c.currentPage.ids[c.slot]
}

// EntityData is the storage the cursor is currently in.
func (c *Cursor) EntityData() *EntityData {
	return c.currentData
}

// Reset rewinds the cursor and releases its World lock, running any
// operations queued while it was held.
func (c *Cursor) Reset() error {
	wasInitialized := c.initialized
	c.matched = nil
	c.dataIndex = 0
	c.pageIndex = 0
	c.slot = -1
	c.currentData = nil
	c.currentPage = nil
	c.initialized = false
	if wasInitialized {
		return c.world.Unlock()
	}
	return nil
}

// TotalMatched counts the live entities across the matched storage.
func (c *Cursor) TotalMatched() int {
	c.world.mu.RLock()
	defer c.world.mu.RUnlock()
	total := 0
	for _, data := range c.query.matched {
		total += int(data.numEntities)
	}
	return total
}

func (c *Cursor) initialize() {
	c.world.Lock()
	c.world.mu.RLock()
	c.matched = slices.Clone(c.query.matched)
	c.world.mu.RUnlock()
	c.initialized = true
}

// PageView exposes one page of matched storage to a system. IDs covers every
// slot handed out so far; holes carry InvalidEntity.
type PageView struct {
	Data *EntityData
	IDs  []EntityID
	page *entityPage
}

// Len is the number of slots in the view, holes included.
func (v PageView) Len() int { return len(v.IDs) }

// Block returns the four wide block of component c covering slot, and the
// slot's lane in it. block is nil if the archetype lacks c.
func (v PageView) Block(c Component, slot int) (block unsafe.Pointer, lane int) {
	offset := v.Data.archetype.components.offsetOf(c.Descriptor().hash)
	if offset < 0 {
		return nil, 0
	}
	return offsetPtr(v.page.tile(int32(slot), v.Data.archetype.size), offset), slot % 4
}

func (w *World) pageViews(q *Query) []PageView {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var views []PageView
	for _, data := range q.matched {
		for _, page := range data.pages {
			views = append(views, PageView{Data: data, IDs: page.ids[:page.next], page: page})
		}
	}
	return views
}

// EachPage calls fn for every page of q's matched storage while holding a
// World lock. Iteration stops at the first error.
func (w *World) EachPage(q *Query, fn func(PageView) error) (err error) {
	w.Lock()
	defer func() {
		err = errors.Join(err, w.Unlock())
	}()
	for _, view := range w.pageViews(q) {
		if err := fn(view); err != nil {
			return err
		}
	}
	return nil
}

// EachPageParallel is EachPage with pages spread over at most workers
// goroutines; workers <= 0 means no limit. fn must only touch the page it
// was handed. The first error cancels the context passed to the others.
func (w *World) EachPageParallel(ctx context.Context, q *Query, workers int, fn func(context.Context, PageView) error) (err error) {
	w.Lock()
	defer func() {
		err = errors.Join(err, w.Unlock())
	}()

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, view := range w.pageViews(q) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, view)
		})
	}
	return g.Wait()
}
