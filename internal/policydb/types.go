// Package policydb is the in-memory policy model: symbol-table-backed
// declarations (types, attributes, roles, users, classes, common
// permissions) and rule arrays (AV, type-transition family, role rules,
// range-transition, clone, conditional), plus initial SIDs and
// ocontexts. Construction is append-only via Builder; once Finalize
// succeeds the Policy is read-only for the remainder of its lifetime.
package policydb

import (
	"github.com/bits-and-blooms/bitset"
)

// SelfType is the reserved sentinel type index standing for "the source
// type of this rule", substituted at expansion time. It is never
// materialized into any stored type set.
const SelfType int32 = 0

// SelfName is the symbol interned at SelfType so lookups behave
// normally even though the index is a sentinel.
const SelfName = "self"

// TypeDecl is a single type declaration.
type TypeDecl struct {
	Name      string
	Aliases   []string
	Attribute *bitset.BitSet // indices of attributes this type belongs to
}

// AttribDecl is a single attribute declaration.
type AttribDecl struct {
	Name  string
	Types *bitset.BitSet // indices of types with this attribute
}

// RoleDecl mirrors AttribDecl structurally: a dominance set plus a type
// set, per spec §3 ("Structurally identical to an attribute declaration").
type RoleDecl struct {
	Name      string
	Dominated *bitset.BitSet // indices of roles this role dominates
	Types     *bitset.BitSet // indices of types allowed for this role
}

// UserDecl is a single user declaration. MLS fields are nil unless the
// policy is MLS-enabled.
type UserDecl struct {
	Name       string
	Roles      *bitset.BitSet
	MLSDefault *MLSLevel
	MLSRange   *MLSRange
}

// CommonPermDecl is a named permission set shared by several classes.
type CommonPermDecl struct {
	Name  string
	Perms *bitset.BitSet
}

// ClassDecl is a single object class declaration. CommonPerm is -1 when
// the class has no associated common permission block.
type ClassDecl struct {
	Name        string
	Value       int32
	CommonPerm  int32
	UniquePerms *bitset.BitSet
}

// FullPerms returns common_perm.perms ∪ unique_perms for this class, per
// spec §3: "A class's full permission set is common_perm.perms ∪
// unique_perms".
func (c *ClassDecl) FullPerms(db *Policy) *bitset.BitSet {
	out := c.UniquePerms.Clone()
	if c.CommonPerm >= 0 && int(c.CommonPerm) < len(db.CommonPerms) {
		out.InPlaceUnion(db.CommonPerms[c.CommonPerm].Perms)
	}
	return out
}
