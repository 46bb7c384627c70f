package depot

import (
	"cmp"
	"slices"
)

const (
	// per-entity lists store four instances of each component side by side
	entityOffsetScale int32 = 4
	sharedOffsetScale int32 = 1
)

type componentEntry struct {
	desc       *ComponentDescriptor
	offset     int32
	hasDefault bool
}

// componentList is kept sorted by component hash. Offsets are packed in hash
// order, each entry starting where the previous one ends.
type componentList []componentEntry

func (l componentList) search(hash uint64) (int, bool) {
	return slices.BinarySearchFunc(l, hash, func(e componentEntry, h uint64) int {
		return cmp.Compare(e.desc.hash, h)
	})
}

func (l componentList) indexOf(hash uint64) int {
	i, found := l.search(hash)
	if !found {
		return -1
	}
	return i
}

func (l componentList) offsetOf(hash uint64) int32 {
	i, found := l.search(hash)
	if !found {
		return -1
	}
	return l[i].offset
}

// insert adds desc and shifts every later offset by its scaled size.
func (l *componentList) insert(desc *ComponentDescriptor, scale int32) (index int, inserted bool) {
	i, found := l.search(desc.hash)
	if found {
		return i, false
	}
	var offset int32
	if i > 0 {
		prev := (*l)[i-1]
		offset = prev.offset + prev.desc.size*scale
	}
	*l = slices.Insert(*l, i, componentEntry{desc: desc, offset: offset})
	shift := desc.size * scale
	for j := i + 1; j < len(*l); j++ {
		(*l)[j].offset += shift
	}
	return i, true
}

// erase removes the entry for hash and shifts later offsets back.
func (l *componentList) erase(hash uint64, scale int32) (componentEntry, bool) {
	i, found := l.search(hash)
	if !found {
		return componentEntry{}, false
	}
	removed := (*l)[i]
	*l = slices.Delete(*l, i, i+1)
	shift := removed.desc.size * scale
	for j := i; j < len(*l); j++ {
		(*l)[j].offset -= shift
	}
	return removed, true
}

func (l componentList) clone() componentList {
	return slices.Clone(l)
}
