// Package symtab implements interned name tables for the policy core:
// types, attributes, roles, users, classes, permissions, common
// permissions, booleans, and type aliases. Every table maps a unique
// non-empty, case-sensitive name to a dense int32 index and back.
package symtab

import "github.com/cici0602/sepolicy-analyzer/internal/diag"

// Table is a plain by-name/by-index symbol table. Insertion is the only
// mutation; entries are never removed once interned, matching the
// append-only lifecycle of the policy database it backs.
type Table struct {
	byName  map[string]int32
	byIndex []string
}

// New returns an empty table.
func New() *Table {
	return &Table{byName: make(map[string]int32)}
}

// Intern adds name if not already present and returns its index. The
// index is stable and monotonically assigned in first-insertion order.
// A duplicate insertion is a no-op that returns the existing index.
func (t *Table) Intern(name string) (index int32, wasNew bool, err error) {
	if name == "" {
		return 0, false, diag.New(diag.KindInvalidArgument, "empty symbol name")
	}
	if idx, ok := t.byName[name]; ok {
		return idx, false, nil
	}
	idx := int32(len(t.byIndex))
	t.byIndex = append(t.byIndex, name)
	t.byName[name] = idx
	return idx, true, nil
}

// LookupByName returns the index for name, or false if not interned.
func (t *Table) LookupByName(name string) (int32, bool) {
	idx, ok := t.byName[name]
	return idx, ok
}

// LookupByIndex returns the name at idx, or false if out of range.
func (t *Table) LookupByIndex(idx int32) (string, bool) {
	if idx < 0 || int(idx) >= len(t.byIndex) {
		return "", false
	}
	return t.byIndex[idx], true
}

// Len reports the number of distinct symbols interned.
func (t *Table) Len() int { return len(t.byIndex) }

// Entry is one (index, name) pair produced by Iterate.
type Entry struct {
	Index int32
	Name  string
}

// Iterate returns all entries in declaration (index) order. The slice is
// a fresh copy; callers may not assume it aliases internal storage.
func (t *Table) Iterate() []Entry {
	out := make([]Entry, len(t.byIndex))
	for i, name := range t.byIndex {
		out[i] = Entry{Index: int32(i), Name: name}
	}
	return out
}

// AliasTable layers alias names over a Table of primary symbols (used
// only for the type table). An alias shares its target's name-space for
// lookup but never receives a distinct index of its own.
type AliasTable struct {
	*Table
	aliasToPrimary map[string]int32
}

// NewAlias returns an empty alias-aware table.
func NewAlias() *AliasTable {
	return &AliasTable{Table: New(), aliasToPrimary: make(map[string]int32)}
}

// InternAlias registers name as an alias of the type at primaryIndex.
// It fails if name collides with any existing type or alias name.
func (t *AliasTable) InternAlias(primaryIndex int32, name string) error {
	if name == "" {
		return diag.New(diag.KindInvalidArgument, "empty alias name")
	}
	if _, ok := t.Table.LookupByName(name); ok {
		return diag.New(diag.KindInvalidArgument, "alias %q collides with existing type name", name)
	}
	if _, ok := t.aliasToPrimary[name]; ok {
		return diag.New(diag.KindInvalidArgument, "alias %q already declared", name)
	}
	if _, ok := t.Table.LookupByIndex(primaryIndex); !ok {
		return diag.New(diag.KindInvalidArgument, "alias %q targets unknown type index %d", name, primaryIndex)
	}
	t.aliasToPrimary[name] = primaryIndex
	return nil
}

// LookupByName resolves name to an index, treating an alias as resolving
// to the type index it was declared against.
func (t *AliasTable) LookupByName(name string) (int32, bool) {
	if idx, ok := t.aliasToPrimary[name]; ok {
		return idx, true
	}
	return t.Table.LookupByName(name)
}

// AliasesOf returns every alias name registered against primaryIndex, in
// registration order is not guaranteed (map-backed); callers that need a
// stable order should sort the result themselves.
func (t *AliasTable) AliasesOf(primaryIndex int32) []string {
	var out []string
	for name, idx := range t.aliasToPrimary {
		if idx == primaryIndex {
			out = append(out, name)
		}
	}
	return out
}
