package msbp

import (
	"errors"
	"fmt"
)

// ErrEnumIDs is returned when an enum list is built with mismatched or
// duplicate global ids.
var ErrEnumIDs = errors.New("invalid enum list ids")

// EnumList is a closed list of named values addressed by two index spaces:
// the local position of an item within the list and the global id stored on
// disk. Both directions of the mapping are held here so callers never
// translate between parallel slices by hand.
type EnumList struct {
	items  []string
	ids    []uint16
	local  map[uint16]int
	byName map[string]int
}

// NewEnumList builds a list. If ids is nil each item's global id is its
// position.
func NewEnumList(items []string, ids []uint16) (*EnumList, error) {
	if ids == nil {
		ids = make([]uint16, len(items))
		for i := range ids {
			ids[i] = uint16(i)
		}
	}
	if len(ids) != len(items) {
		return nil, fmt.Errorf("%w: %d items, %d ids", ErrEnumIDs, len(items), len(ids))
	}

	l := &EnumList{
		items:  append([]string(nil), items...),
		ids:    append([]uint16(nil), ids...),
		local:  make(map[uint16]int, len(ids)),
		byName: make(map[string]int, len(items)),
	}
	for i, id := range l.ids {
		if _, dup := l.local[id]; dup {
			return nil, fmt.Errorf("%w: global id %d used twice", ErrEnumIDs, id)
		}
		l.local[id] = i
	}
	for i, name := range l.items {
		if _, dup := l.byName[name]; !dup {
			l.byName[name] = i
		}
	}
	return l, nil
}

// MustEnumList is like NewEnumList but panics on error.
func MustEnumList(items []string, ids []uint16) *EnumList {
	l, err := NewEnumList(items, ids)
	if err != nil {
		panic(err)
	}
	return l
}

// Len returns the number of items.
func (l *EnumList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Items returns a copy of the literals in local order.
func (l *EnumList) Items() []string {
	return append([]string(nil), l.items...)
}

// IDs returns a copy of the global ids in local order.
func (l *EnumList) IDs() []uint16 {
	return append([]uint16(nil), l.ids...)
}

// Literal returns the literal at a local position.
func (l *EnumList) Literal(local int) string {
	return l.items[local]
}

// GlobalID returns the on-disk id of the item at a local position.
func (l *EnumList) GlobalID(local int) uint16 {
	return l.ids[local]
}

// Local returns the local position of a global id.
func (l *EnumList) Local(global uint16) (int, bool) {
	i, ok := l.local[global]
	return i, ok
}

// Index returns the local position of a literal.
func (l *EnumList) Index(literal string) (int, bool) {
	i, ok := l.byName[literal]
	return i, ok
}

// Decode maps an on-disk id to its literal.
func (l *EnumList) Decode(global uint16) (string, bool) {
	i, ok := l.Local(global)
	if !ok {
		return "", false
	}
	return l.items[i], true
}

// Encode maps a literal to its on-disk id.
func (l *EnumList) Encode(literal string) (uint16, bool) {
	i, ok := l.Index(literal)
	if !ok {
		return 0, false
	}
	return l.ids[i], true
}
