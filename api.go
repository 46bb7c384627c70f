package depot

import "iter"

// EntityID is a dense handle into a World's entity table. Ids of destroyed
// entities are handed out again.
type EntityID int32

const InvalidEntity EntityID = -1

// Reader walks a structured document. Enter and EnterIndex descend into a
// child and return the func that climbs back out, so a scoped descent reads
//
//	defer r.Enter("components")()
//
// Missing children read as null. ForEach callbacks see the reader positioned
// on the element and stop the walk by returning true.
type Reader interface {
	IsNull() bool
	IsObject() bool
	IsArray() bool
	IsString() bool
	IsNumber() bool
	IsBool() bool
	Size() int

	Enter(key string) func()
	EnterIndex(index int) func()
	ForEachInObject(fn func(key string) bool) bool
	ForEachInArray(fn func(index int) bool) bool

	ReadString(fallback string) string
	ReadInt(fallback int64) int64
	ReadFloat(fallback float64) float64
	ReadBool(fallback bool) bool

	// Decode fills a Go value from the current element, leaving fields the
	// element does not mention untouched.
	Decode(out any) error
}

// ArchetypeSource resolves archetype names used by layer documents.
type ArchetypeSource interface {
	Archetype(name string) (*Archetype, bool)
}

// ArchetypeSet is a name keyed ArchetypeSource.
type ArchetypeSet map[string]*Archetype

func (s ArchetypeSet) Archetype(name string) (*Archetype, bool) {
	a, ok := s[name]
	return a, ok
}

type iCursor interface {
	Entities() iter.Seq2[int, EntityID]
	Next() bool
}

// ComponentOutput is one element of a query's per-entity output: where the
// component sits inside a tile of Data's pages, or -1 when an optional
// component is absent.
type ComponentOutput struct {
	Offset int32
	Data   *EntityData
}
