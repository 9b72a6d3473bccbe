package policydb

// EntryKind discriminates one list entry's shape. Per spec §3 and the
// Design Notes (§9 "model as a tagged variant, not a linked list of
// type-or-attribute records"), a list is a slice of these variants; the
// wildcard is not an entry at all but a flag bit on the containing List.
type EntryKind int

const (
	// EntryType is a literal type index.
	EntryType EntryKind = iota
	// EntryAttrib is a literal attribute index.
	EntryAttrib
	// EntryRole is a literal role index.
	EntryRole
	// EntryClass is a literal class index.
	EntryClass
	// EntryPerm is a literal permission index.
	EntryPerm
	// EntrySelf marks the "self" pseudo-type; legal only in a target
	// type list.
	EntrySelf
	// EntryCommonPerm names a common-permission block directly in a
	// permission list, as shorthand for every permission in that block.
	EntryCommonPerm
)

// ListEntry is one element of a rule's source/target/class/perm list.
type ListEntry struct {
	Kind       EntryKind
	Index      int32
	Complement bool // '~': this one entry is excluded rather than included
}

// List is one of a rule's four polymorphic set fields (src_set, tgt_set,
// class_set, perm_set). Wildcard is the rule-list-wide "*" flag; per
// spec §3 and §4.C it may co-occur with complement entries ("When the
// list starts with * and also contains ~Y, membership is everything
// except Y").
type List struct {
	Wildcard bool
	Entries  []ListEntry
}

// HasSelf reports whether the list names the self pseudo-type.
func (l List) HasSelf() bool {
	for _, e := range l.Entries {
		if e.Kind == EntrySelf {
			return true
		}
	}
	return false
}

// Complements returns the indices of every complement-marked entry
// together with their kind, for "wildcard + ~Y" and "~X alone" handling.
func (l List) Complements() []ListEntry {
	var out []ListEntry
	for _, e := range l.Entries {
		if e.Complement {
			out = append(out, e)
		}
	}
	return out
}

// AVRuleKind enumerates the access-vector rule kinds.
type AVRuleKind int

const (
	AVAllow AVRuleKind = iota
	AVNeverallow
	AVAuditAllow
	AVDontAudit
	AVAuditDeny
)

func (k AVRuleKind) String() string {
	switch k {
	case AVAllow:
		return "allow"
	case AVNeverallow:
		return "neverallow"
	case AVAuditAllow:
		return "auditallow"
	case AVDontAudit:
		return "dontaudit"
	case AVAuditDeny:
		return "auditdeny"
	default:
		return "unknown"
	}
}

// AVRule is an access-vector rule: allow, neverallow, auditallow,
// dontaudit, or auditdeny.
type AVRule struct {
	Kind       AVRuleKind
	Flags      uint32
	SourceLine int
	Src        List
	Tgt        List
	Classes    List
	Perms      List
	// CondIndex, if >= 0, names the ConditionalExpr this rule lives
	// under, and CondBranch says which branch (true/false).
	CondIndex  int32
	CondBranch bool
}

// TypeRuleKind enumerates the type_transition family.
type TypeRuleKind int

const (
	TypeTransition TypeRuleKind = iota
	TypeChange
	TypeMember
)

func (k TypeRuleKind) String() string {
	switch k {
	case TypeTransition:
		return "type_transition"
	case TypeChange:
		return "type_change"
	case TypeMember:
		return "type_member"
	default:
		return "unknown"
	}
}

// TypeRule is a type_transition / type_change / type_member rule.
type TypeRule struct {
	Kind        TypeRuleKind
	Flags       uint32
	SourceLine  int
	Src         List
	Tgt         List
	Classes     List
	DefaultType int32
	CondIndex   int32
	CondBranch  bool
}

// RoleAllowRule is a role-allow rule (src_roles may assume tgt_roles).
type RoleAllowRule struct {
	SourceLine int
	SrcRoles   List
	TgtRoles   List
}

// RoleTransitionRule assigns a new role on transition.
type RoleTransitionRule struct {
	SourceLine int
	SrcRoles   List
	TgtTypes   List
	NewRole    int32
}

// RangeTransitionRule assigns a new MLS range on transition.
type RangeTransitionRule struct {
	SourceLine int
	SrcTypes   List
	TgtTypes   List
	NewRange   MLSRange
}

// CloneRule is resolved dynamically at query time (§4.C); it is never
// expanded into synthetic AV/type rules.
type CloneRule struct {
	Src        int32
	Tgt        int32
	SourceLine int
}

// CondOp enumerates the RPN operators of a conditional expression, plus
// the boolean-reference leaf node.
type CondOp int

const (
	CondBoolRef CondOp = iota
	CondNot
	CondOr
	CondAnd
	CondXor
	CondEq
	CondNeq
)

// CondNode is one node of a conditional's reverse-Polish expression.
type CondNode struct {
	Op   CondOp
	Bool int32 // valid only when Op == CondBoolRef
}

// ConditionalExpr is a boolean-guarded block of rules. TrueRules/
// FalseRules hold indices into the owning Policy's AVRules/TypeRules
// arrays that are active when the expression evaluates true/false.
type ConditionalExpr struct {
	RPN          []CondNode
	TrueAVRules  []int32
	FalseAVRules []int32
	TrueTypeRules  []int32
	FalseTypeRules []int32
}

// OcontextKind discriminates the tagged union of ocontext records.
type OcontextKind int

const (
	OcontextFSUse OcontextKind = iota
	OcontextGenFSCon
	OcontextPortCon
	OcontextNetifCon
	OcontextNodeCon
)

// FSUseBehavior enumerates fs_use behaviors (version-inference triggers).
type FSUseBehavior int

const (
	FSUsePSID FSUseBehavior = iota
	FSUseXattr
	FSUseTask
	FSUseTrans
)

// Ocontext is a single object-context record. Fields outside the
// relevant Kind are zero-valued; ocontexts are carried for version
// inference and the (out-of-core-scope) file-contexts adapter, never
// consulted by the rule-query or relabel engines.
type Ocontext struct {
	Kind        OcontextKind
	FSName      string        // fs_use / genfscon: filesystem type name
	FSBehavior  FSUseBehavior // fs_use only
	PathPrefix  string        // genfscon only
	Port        int32         // portcon only
	Protocol    string        // portcon only: "tcp" | "udp"
	IfaceName   string        // netifcon only
	IsIPv6      bool          // nodecon only (version-inference trigger 17)
	Context     SecurityContext
}

// SecurityContext is a resolved user:role:type[:range] tuple.
type SecurityContext struct {
	User  int32
	Role  int32
	Type  int32
	Range *MLSRange
}

// InitialSID is a bootstrap security identifier (e.g. "kernel").
type InitialSID struct {
	Name    string
	Context SecurityContext
}
