package policydb

import "github.com/cici0602/sepolicy-analyzer/internal/symtab"

// Policy is the finalized, read-only policy database. It is an owned
// value: once returned from Builder.Finalize it never mutates, so every
// derived index (relabel sets, query iterators) built against it remains
// valid for its lifetime (spec §5).
type Policy struct {
	Types      *symtab.AliasTable
	Attribs    *symtab.Table
	Roles      *symtab.Table
	Users      *symtab.Table
	Classes    *symtab.Table
	Perms      *symtab.Table
	CommonPermNames *symtab.Table
	Bools      *symtab.Table

	TypeDecls       []TypeDecl
	AttribDecls     []AttribDecl
	RoleDecls       []RoleDecl
	UserDecls       []UserDecl
	ClassDecls      []ClassDecl
	CommonPerms     []CommonPermDecl

	AVRules              []AVRule
	TypeRules            []TypeRule
	RoleAllowRules       []RoleAllowRule
	RoleTransitionRules  []RoleTransitionRule
	RangeTransitionRules []RangeTransitionRule
	Clones               []CloneRule
	Conditionals         []ConditionalExpr

	InitialSIDs []InitialSID
	Ocontexts   []Ocontext

	MLSEnabled bool
	Version    int

	sawValidatetrans bool
}

// NumTypes, NumClasses, NumPerms expose the dense index-space sizes the
// query engine and relabel builder need for bitset allocation.
func (p *Policy) NumTypes() int   { return p.Types.Len() }
func (p *Policy) NumAttribs() int { return p.Attribs.Len() }
func (p *Policy) NumClasses() int { return p.Classes.Len() }
func (p *Policy) NumPerms() int   { return p.Perms.Len() }
func (p *Policy) NumRoles() int   { return p.Roles.Len() }
