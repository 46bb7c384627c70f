package depot

import (
	"slices"
	"sync"
	"unsafe"

	"github.com/TheBitDrifter/mask"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// World owns the entity index, the content addressed archetype storage and
// the registered queries. Structural changes are serialized by one mutex;
// callers may drive a World from several goroutines.
//
// Pointers resolved through a World stay valid until the entity is destroyed
// or migrated. Holding one across such a change is a caller error.
type World struct {
	mu sync.RWMutex

	id       string
	log      *zap.Logger
	config   Config
	registry *Registry

	entities    []entitySlot
	freeIDs     []EntityID
	numEntities int

	archetypes    map[uint64]*EntityData
	archetypeList []*EntityData
	queries       []*Query

	lockCount int
	locks     mask.Mask
	opQueue   opQueue
}

type entitySlot struct {
	data *EntityData
	page *entityPage
	slot int32
}

// WorldOption configures a World at construction.
type WorldOption func(*World)

func WithConfig(cfg Config) WorldOption {
	return func(w *World) {
		if cfg.PageSize <= 0 {
			cfg.PageSize = DefaultPageSize
		}
		w.config = cfg
	}
}

// WithLogger replaces the logger built from the config.
func WithLogger(log *zap.Logger) WorldOption {
	return func(w *World) { w.log = log }
}

func newWorld(reg *Registry, opts ...WorldOption) (*World, error) {
	w := &World{
		id:         uuid.NewString(),
		config:     DefaultConfig(),
		registry:   reg,
		archetypes: make(map[uint64]*EntityData),
		opQueue:    newOpQueue(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		log, err := newLogger(w.config.Logging)
		if err != nil {
			return nil, err
		}
		w.log = log
	}
	w.log = w.log.With(zap.String("world", w.id))
	return w, nil
}

func (w *World) ID() string { return w.id }

func (w *World) Registry() *Registry { return w.registry }

func (w *World) Config() Config { return w.config }

func (w *World) Logger() *zap.Logger { return w.log }

// ArchetypeReference keeps a registered archetype's storage alive. Every
// reference obtained from the World, and every live entity, counts once;
// storage is torn down when the count reaches zero.
type ArchetypeReference struct {
	world *World
	data  *EntityData
}

func (r ArchetypeReference) Valid() bool { return r.data != nil }

func (r ArchetypeReference) Hash() uint64 { return r.data.archetype.hash }

func (r ArchetypeReference) Archetype() *Archetype { return r.data.archetype }

func (r ArchetypeReference) EntityData() *EntityData { return r.data }

// Retain returns a new reference to the same storage.
func (r ArchetypeReference) Retain() ArchetypeReference {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()
	r.data.refCount++
	return r
}

// Release drops the reference. Releasing an invalid reference does nothing.
func (r *ArchetypeReference) Release() {
	if r.data == nil {
		return
	}
	r.world.mu.Lock()
	r.world.releaseLocked(r.data)
	r.world.mu.Unlock()
	r.data = nil
}

// AddArchetype registers a finalized archetype. An archetype whose content
// hash is already registered resolves to the existing storage, and a is left
// to the caller.
func (w *World) AddArchetype(a *Archetype) (ArchetypeReference, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addArchetypeLocked(a)
}

func (w *World) addArchetypeLocked(a *Archetype) (ArchetypeReference, error) {
	if !a.finalized {
		return ArchetypeReference{}, ArchetypeNotFinalizedError{}
	}
	hash := a.CalculateHash()
	if data, ok := w.archetypes[hash]; ok {
		data.refCount++
		return ArchetypeReference{world: w, data: data}, nil
	}

	budget := w.config.PageSize
	if override := PageSizeComponent.Shared(a); override != nil && override.Value > 0 {
		budget = int(override.Value)
	}
	data := newEntityData(a, entitiesPerPage(budget, a.size))
	data.refCount = 1
	a.registered = true
	w.archetypes[hash] = data
	w.archetypeList = append(w.archetypeList, data)

	if !a.isBase {
		for _, q := range w.queries {
			if q.filter(data) {
				data.subscribe(q)
			}
		}
	}
	w.log.Debug("archetype registered",
		hashField("hash", hash),
		zap.Int32("entity_size", a.size),
		zap.Int32("entities_per_page", data.entitiesPerPage),
		zap.Int("queries", len(data.queries)),
		zap.Bool("base", a.isBase),
	)
	return ArchetypeReference{world: w, data: data}, nil
}

// Reference returns a new reference to registered storage.
func (w *World) Reference(hash uint64) (ArchetypeReference, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, ok := w.archetypes[hash]
	if !ok {
		return ArchetypeReference{}, false
	}
	data.refCount++
	return ArchetypeReference{world: w, data: data}, true
}

// RemoveArchetype tears storage down regardless of outstanding references,
// destroying any entity still living in it. It fails while the World is
// locked.
func (w *World) RemoveArchetype(hash uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockedLocked() {
		return LockedWorldError{}
	}
	data, ok := w.archetypes[hash]
	if !ok {
		return UnknownArchetypeError{Hash: hash}
	}
	w.teardownLocked(data)
	return nil
}

// releaseLocked drops one reference. Storage left unreferenced while the
// World is locked is torn down when the operation queue flushes.
func (w *World) releaseLocked(data *EntityData) {
	data.refCount--
	if data.refCount > 0 {
		return
	}
	if w.lockedLocked() {
		w.opQueue.enqueueTeardown(data)
		return
	}
	w.teardownLocked(data)
}

func (w *World) teardownLocked(data *EntityData) {
	hash := data.archetype.hash
	if w.archetypes[hash] != data {
		return
	}
	destroyed := 0
	for _, page := range slices.Clone(data.pages) {
		for _, id := range page.ids {
			if id != InvalidEntity {
				w.destroyEntityLocked(id, false)
				destroyed++
			}
		}
	}
	for _, q := range data.queries {
		q.removeArchetype(data)
	}
	data.queries = nil
	data.refCount = 0
	delete(w.archetypes, hash)
	w.archetypeList = slices.DeleteFunc(w.archetypeList, func(d *EntityData) bool { return d == data })

	w.log.Debug("archetype removed", hashField("hash", hash), zap.Int("destroyed", destroyed))
}

// EntityData returns the storage registered under hash, or nil.
func (w *World) EntityData(hash uint64) *EntityData {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.archetypes[hash]
}

func (w *World) NumArchetypes() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.archetypeList)
}

func (w *World) spawnTargetLocked(hash uint64) (*EntityData, error) {
	data, ok := w.archetypes[hash]
	if !ok {
		return nil, UnknownArchetypeError{Hash: hash}
	}
	if data.archetype.isBase {
		return nil, BaseArchetypeError{Hash: hash}
	}
	return data, nil
}

// CreateEntity places a new, constructed entity in the archetype's storage.
func (w *World) CreateEntity(hash uint64) (EntityID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockedLocked() {
		return InvalidEntity, LockedWorldError{}
	}
	data, err := w.spawnTargetLocked(hash)
	if err != nil {
		return InvalidEntity, err
	}
	return w.createEntityLocked(data), nil
}

// CreateEntities creates n entities of one archetype.
func (w *World) CreateEntities(hash uint64, n int) ([]EntityID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockedLocked() {
		return nil, LockedWorldError{}
	}
	data, err := w.spawnTargetLocked(hash)
	if err != nil {
		return nil, err
	}
	ids := make([]EntityID, n)
	for i := range ids {
		ids[i] = w.createEntityLocked(data)
	}
	return ids, nil
}

func (w *World) createEntityLocked(data *EntityData) EntityID {
	id := w.allocateIDLocked()
	page, slot, fresh := data.allocateIndex()
	if fresh {
		w.log.Debug("page allocated",
			hashField("archetype", data.archetype.hash),
			zap.Int("pages", len(data.pages)),
			zap.Int("bytes", pageFootprint(data.entitiesPerPage, data.archetype.size)),
		)
	}
	data.bind(id, page, slot)
	w.entities[id] = entitySlot{data: data, page: page, slot: slot}
	data.refCount++
	w.numEntities++
	return id
}

func (w *World) allocateIDLocked() EntityID {
	if n := len(w.freeIDs); n > 0 {
		id := w.freeIDs[n-1]
		w.freeIDs = w.freeIDs[:n-1]
		return id
	}
	w.entities = append(w.entities, entitySlot{})
	return EntityID(len(w.entities) - 1)
}

// LoadEntity creates an entity, applies the archetype's defaults and then
// loads every component named by the reader's object. On a load failure the
// entity is destroyed again.
func (w *World) LoadEntity(hash uint64, r Reader) (EntityID, error) {
	id, err := w.CreateEntity(hash)
	if err != nil {
		return InvalidEntity, err
	}
	a := w.Archetype(id)
	a.LoadDefaults(w, id)

	if r.IsObject() {
		r.ForEachInObject(func(name string) bool {
			err = a.LoadComponent(w, id, name, r)
			return err != nil
		})
	} else if !r.IsNull() {
		err = DocumentError{Reason: "entity components are not an object"}
	}
	if err != nil {
		_ = w.DestroyEntity(id)
		return InvalidEntity, err
	}
	return id, nil
}

// DestroyEntity resets the entity's slot, recycles its id and drops its
// archetype reference.
func (w *World) DestroyEntity(id EntityID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockedLocked() {
		return LockedWorldError{}
	}
	if !w.validLocked(id) {
		return InvalidEntityError{ID: id}
	}
	w.destroyEntityLocked(id, true)
	return nil
}

// DestroyEntities destroys every entity or, if any id is invalid, none.
func (w *World) DestroyEntities(ids ...EntityID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockedLocked() {
		return LockedWorldError{}
	}
	for _, id := range ids {
		if !w.validLocked(id) {
			return InvalidEntityError{ID: id}
		}
	}
	for _, id := range ids {
		// repeated ids are destroyed once
		if w.validLocked(id) {
			w.destroyEntityLocked(id, true)
		}
	}
	return nil
}

func (w *World) destroyEntityLocked(id EntityID, release bool) {
	e := w.entities[id]
	data := e.data
	if data.freeIndex(id, e.page, e.slot) {
		w.log.Debug("page released",
			hashField("archetype", data.archetype.hash),
			zap.Int("pages", len(data.pages)),
		)
	}
	w.entities[id] = entitySlot{}
	w.freeIDs = append(w.freeIDs, id)
	w.numEntities--
	if release {
		w.releaseLocked(data)
	}
}

func (w *World) validLocked(id EntityID) bool {
	return id >= 0 && int(id) < len(w.entities) && w.entities[id].data != nil
}

func (w *World) Alive(id EntityID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.validLocked(id)
}

func (w *World) NumEntities() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.numEntities
}

// Archetype returns the schema the entity currently lives in, or nil.
func (w *World) Archetype(id EntityID) *Archetype {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.validLocked(id) {
		return nil
	}
	return w.entities[id].data.archetype
}

// PageIndex is the entity's slot within its page; slot%4 is its lane within
// every component block. It is -1 for dead entities.
func (w *World) PageIndex(id EntityID) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.validLocked(id) {
		return -1
	}
	return int(w.entities[id].slot)
}

// Component returns the four wide block holding the entity's component and
// the entity's lane in it. block is nil if the entity lacks the component.
func (w *World) Component(id EntityID, c Component) (block unsafe.Pointer, lane int) {
	return w.componentBlock(id, c.Descriptor().hash)
}

// SharedComponent returns the shared instance of the entity's archetype.
func (w *World) SharedComponent(id EntityID, c Component) unsafe.Pointer {
	a := w.Archetype(id)
	if a == nil {
		return nil
	}
	return a.SharedComponent(c)
}

func (w *World) componentBlock(id EntityID, hash uint64) (unsafe.Pointer, int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.validLocked(id) {
		debugAssert(false, InvalidEntityError{ID: id})
		return nil, 0
	}
	e := w.entities[id]
	a := e.data.archetype
	offset := a.components.offsetOf(hash)
	if offset < 0 {
		return nil, 0
	}
	return offsetPtr(e.page.tile(e.slot, a.size), offset), int(e.slot % 4)
}

// RegisterQuery subscribes q and immediately matches it against every
// registered, non-base archetype.
func (w *World) RegisterQuery(q *Query) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if q.world != nil {
		return QueryRegisteredError{}
	}
	q.world = w
	q.prepare()
	w.queries = append(w.queries, q)

	for _, data := range w.archetypeList {
		if data.archetype.isBase {
			continue
		}
		if q.filter(data) {
			data.subscribe(q)
		}
	}
	w.log.Debug("query registered", zap.Int("matched", len(q.matched)))
	return nil
}
