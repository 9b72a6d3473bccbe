package policydb

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/cici0602/sepolicy-analyzer/internal/diag"
	"github.com/cici0602/sepolicy-analyzer/internal/symtab"
)

// Builder is the documented construction interface spec.md §4.B
// requires: an external two-pass loader (pass 1 classes/permissions/
// types/booleans, pass 2 rules referencing pass-1 entities) targets this
// type in any call order; declaration references are validated once, in
// Finalize (index entries inside rule lists are not checked).
type Builder struct {
	types           *symtab.AliasTable
	attribs         *symtab.Table
	roles           *symtab.Table
	users           *symtab.Table
	classes         *symtab.Table
	perms           *symtab.Table
	commonPermNames *symtab.Table
	bools           *symtab.Table

	typeAttribPairs [][2]int32 // (type, attrib)
	roleDominance   [][2]int32 // (role, dominated)
	roleTypePairs   [][2]int32 // (role, type)

	userRoles map[int32][]int32
	userMLS   map[int32]struct {
		def *MLSLevel
		rng *MLSRange
	}

	commonPermPerms map[int32][]int32
	classInfo       map[int32]classInfo

	avRules              []AVRule
	typeRules            []TypeRule
	roleAllowRules       []RoleAllowRule
	roleTransitionRules  []RoleTransitionRule
	rangeTransitionRules []RangeTransitionRule
	clones               []CloneRule
	conditionals         []ConditionalExpr
	initialSIDs          []InitialSID
	ocontexts            []Ocontext

	mlsEnabled       bool
	sawValidatetrans bool

	sink diag.Sink
}

type classInfo struct {
	value       int32
	commonPerm  int32
	uniquePerms []int32
}

// NewBuilder returns an empty builder with the "self" pseudo-type
// pre-interned at index 0, per spec §3.
func NewBuilder(sink diag.Sink) *Builder {
	if sink == nil {
		sink = diag.NopSink{}
	}
	b := &Builder{
		types:           symtab.NewAlias(),
		attribs:         symtab.New(),
		roles:           symtab.New(),
		users:           symtab.New(),
		classes:         symtab.New(),
		perms:           symtab.New(),
		commonPermNames: symtab.New(),
		bools:           symtab.New(),
		userRoles:       make(map[int32][]int32),
		userMLS: make(map[int32]struct {
			def *MLSLevel
			rng *MLSRange
		}),
		commonPermPerms: make(map[int32][]int32),
		classInfo:       make(map[int32]classInfo),
		sink:            sink,
	}
	idx, _, _ := b.types.Intern(SelfName)
	_ = idx // guaranteed to be 0: first insertion into a fresh table
	return b
}

// --- pass 1: declarations ---

func (b *Builder) InternType(name string) (int32, error) {
	idx, _, err := b.types.Intern(name)
	return idx, err
}

func (b *Builder) InternTypeAlias(typeIdx int32, alias string) error {
	return b.types.InternAlias(typeIdx, alias)
}

func (b *Builder) InternAttrib(name string) (int32, error) {
	idx, _, err := b.attribs.Intern(name)
	return idx, err
}

// AddTypeAttribute records that typeIdx belongs to attribIdx's type set.
// Finalize materializes both directions of the symmetric relation (§3
// invariant, §9 Design Notes: types-have-attributes is the hotter path).
func (b *Builder) AddTypeAttribute(typeIdx, attribIdx int32) {
	b.typeAttribPairs = append(b.typeAttribPairs, [2]int32{typeIdx, attribIdx})
}

func (b *Builder) InternRole(name string) (int32, error) {
	idx, _, err := b.roles.Intern(name)
	return idx, err
}

func (b *Builder) AddRoleDominance(role, dominated int32) {
	b.roleDominance = append(b.roleDominance, [2]int32{role, dominated})
}

func (b *Builder) AddRoleType(role, typeIdx int32) {
	b.roleTypePairs = append(b.roleTypePairs, [2]int32{role, typeIdx})
}

func (b *Builder) InternUser(name string) (int32, error) {
	idx, _, err := b.users.Intern(name)
	return idx, err
}

func (b *Builder) SetUserRoles(user int32, roleIdxs []int32) {
	b.userRoles[user] = roleIdxs
}

func (b *Builder) SetUserMLS(user int32, def *MLSLevel, rng *MLSRange) {
	b.userMLS[user] = struct {
		def *MLSLevel
		rng *MLSRange
	}{def, rng}
	b.mlsEnabled = true
}

func (b *Builder) InternPerm(name string) (int32, error) {
	idx, _, err := b.perms.Intern(name)
	return idx, err
}

func (b *Builder) InternCommonPerm(name string, perms []int32) (int32, error) {
	idx, _, err := b.commonPermNames.Intern(name)
	if err != nil {
		return 0, err
	}
	b.commonPermPerms[idx] = perms
	return idx, nil
}

// InternClass interns a class declaration. commonPerm is -1 if the
// class has no associated common permission block.
func (b *Builder) InternClass(name string, value int32, commonPerm int32, uniquePerms []int32) (int32, error) {
	idx, _, err := b.classes.Intern(name)
	if err != nil {
		return 0, err
	}
	b.classInfo[idx] = classInfo{value: value, commonPerm: commonPerm, uniquePerms: uniquePerms}
	return idx, nil
}

func (b *Builder) InternBool(name string) (int32, error) {
	idx, _, err := b.bools.Intern(name)
	return idx, err
}

// SetMLSEnabled forces MLS mode regardless of whether any user MLS
// fields were set (used by loaders that declare MLS policy-wide).
func (b *Builder) SetMLSEnabled(v bool) { b.mlsEnabled = v }

// MarkValidatetrans records that the policy declares at least one
// validatetrans rule, for version inference (§4.B trigger 19). The core
// does not otherwise model validatetrans (out of scope: "does not
// implement MLS constraint solving").
func (b *Builder) MarkValidatetrans() { b.sawValidatetrans = true }

// --- pass 2: rules ---

func (b *Builder) AddAVRule(r AVRule) int32 {
	r.CondIndex = -1
	b.avRules = append(b.avRules, r)
	return int32(len(b.avRules) - 1)
}

// AddConditionalAVRule is like AddAVRule but tags the rule as living
// under conditional cond's true/false branch; the rule is also recorded
// into that conditional's TrueAVRules/FalseAVRules list.
func (b *Builder) AddConditionalAVRule(cond int32, branch bool, r AVRule) int32 {
	r.CondIndex = cond
	r.CondBranch = branch
	b.avRules = append(b.avRules, r)
	idx := int32(len(b.avRules) - 1)
	if branch {
		b.conditionals[cond].TrueAVRules = append(b.conditionals[cond].TrueAVRules, idx)
	} else {
		b.conditionals[cond].FalseAVRules = append(b.conditionals[cond].FalseAVRules, idx)
	}
	return idx
}

func (b *Builder) AddTypeRule(r TypeRule) int32 {
	r.CondIndex = -1
	b.typeRules = append(b.typeRules, r)
	return int32(len(b.typeRules) - 1)
}

func (b *Builder) AddRoleAllowRule(r RoleAllowRule) {
	b.roleAllowRules = append(b.roleAllowRules, r)
}

func (b *Builder) AddRoleTransitionRule(r RoleTransitionRule) {
	b.roleTransitionRules = append(b.roleTransitionRules, r)
}

func (b *Builder) AddRangeTransitionRule(r RangeTransitionRule) {
	b.rangeTransitionRules = append(b.rangeTransitionRules, r)
}

func (b *Builder) AddClone(src, tgt int32, line int) {
	b.clones = append(b.clones, CloneRule{Src: src, Tgt: tgt, SourceLine: line})
}

// AddConditional registers an (initially empty) conditional expression
// and returns its index; use AddConditionalAVRule/AddConditionalTypeRule
// to attach rules to it.
func (b *Builder) AddConditional(rpn []CondNode) int32 {
	b.conditionals = append(b.conditionals, ConditionalExpr{RPN: rpn})
	return int32(len(b.conditionals) - 1)
}

func (b *Builder) AddConditionalTypeRule(cond int32, branch bool, r TypeRule) int32 {
	r.CondIndex = cond
	r.CondBranch = branch
	b.typeRules = append(b.typeRules, r)
	idx := int32(len(b.typeRules) - 1)
	if branch {
		b.conditionals[cond].TrueTypeRules = append(b.conditionals[cond].TrueTypeRules, idx)
	} else {
		b.conditionals[cond].FalseTypeRules = append(b.conditionals[cond].FalseTypeRules, idx)
	}
	return idx
}

func (b *Builder) AddInitialSID(sid InitialSID) { b.initialSIDs = append(b.initialSIDs, sid) }
func (b *Builder) AddOcontext(oc Ocontext)       { b.ocontexts = append(b.ocontexts, oc) }

// Finalize validates the declaration cross-references (type/attribute,
// role dominance, role/type, user roles, common-perm and class perms)
// and materializes the symmetric relations (type<->attribute, role
// dominance, role<->type), then returns the immutable Policy. The
// indices named inside rule lists, clones and conditionals are not
// validated here.
func (b *Builder) Finalize() (*Policy, error) {
	numTypes := b.types.Len()
	numAttribs := b.attribs.Len()
	numRoles := b.roles.Len()
	numPerms := b.perms.Len()

	typeDecls := make([]TypeDecl, numTypes)
	for _, e := range b.types.Iterate() {
		typeDecls[e.Index] = TypeDecl{
			Name:      e.Name,
			Aliases:   b.types.AliasesOf(e.Index),
			Attribute: bitset.New(uint(numAttribs)),
		}
	}
	attribDecls := make([]AttribDecl, numAttribs)
	for _, e := range b.attribs.Iterate() {
		attribDecls[e.Index] = AttribDecl{Name: e.Name, Types: bitset.New(uint(numTypes))}
	}
	for _, pair := range b.typeAttribPairs {
		t, a := pair[0], pair[1]
		if int(t) >= numTypes || t < 0 {
			return nil, diag.New(diag.KindInvalidArgument, "type index %d out of range", t)
		}
		if int(a) >= numAttribs || a < 0 {
			return nil, diag.New(diag.KindInvalidArgument, "attribute index %d out of range", a)
		}
		typeDecls[t].Attribute.Set(uint(a))
		attribDecls[a].Types.Set(uint(t))
	}

	roleDecls := make([]RoleDecl, numRoles)
	for _, e := range b.roles.Iterate() {
		roleDecls[e.Index] = RoleDecl{
			Name:      e.Name,
			Dominated: bitset.New(uint(numRoles)),
			Types:     bitset.New(uint(numTypes)),
		}
	}
	for _, pair := range b.roleDominance {
		r, d := pair[0], pair[1]
		if int(r) >= numRoles || int(d) >= numRoles {
			return nil, diag.New(diag.KindInvalidArgument, "role index out of range in dominance pair (%d,%d)", r, d)
		}
		roleDecls[r].Dominated.Set(uint(d))
	}
	for _, pair := range b.roleTypePairs {
		r, t := pair[0], pair[1]
		if int(r) >= numRoles || int(t) >= numTypes {
			return nil, diag.New(diag.KindInvalidArgument, "role/type index out of range in pair (%d,%d)", r, t)
		}
		roleDecls[r].Types.Set(uint(t))
	}

	userDecls := make([]UserDecl, b.users.Len())
	for _, e := range b.users.Iterate() {
		u := UserDecl{Name: e.Name, Roles: bitset.New(uint(numRoles))}
		for _, r := range b.userRoles[e.Index] {
			if int(r) >= numRoles {
				return nil, diag.New(diag.KindInvalidArgument, "user %q references unknown role index %d", e.Name, r)
			}
			u.Roles.Set(uint(r))
		}
		if mls, ok := b.userMLS[e.Index]; ok {
			u.MLSDefault = mls.def
			u.MLSRange = mls.rng
		}
		userDecls[e.Index] = u
	}

	commonPerms := make([]CommonPermDecl, b.commonPermNames.Len())
	for _, e := range b.commonPermNames.Iterate() {
		cp := CommonPermDecl{Name: e.Name, Perms: bitset.New(uint(numPerms))}
		for _, p := range b.commonPermPerms[e.Index] {
			if int(p) >= numPerms {
				return nil, diag.New(diag.KindInvalidArgument, "common perm %q references unknown perm index %d", e.Name, p)
			}
			cp.Perms.Set(uint(p))
		}
		commonPerms[e.Index] = cp
	}

	classDecls := make([]ClassDecl, b.classes.Len())
	for _, e := range b.classes.Iterate() {
		info := b.classInfo[e.Index]
		if info.commonPerm >= 0 && int(info.commonPerm) >= len(commonPerms) {
			return nil, diag.New(diag.KindInvalidArgument, "class %q references unknown common perm index %d", e.Name, info.commonPerm)
		}
		cd := ClassDecl{Name: e.Name, Value: info.value, CommonPerm: info.commonPerm, UniquePerms: bitset.New(uint(numPerms))}
		for _, p := range info.uniquePerms {
			if int(p) >= numPerms {
				return nil, diag.New(diag.KindInvalidArgument, "class %q references unknown perm index %d", e.Name, p)
			}
			cd.UniquePerms.Set(uint(p))
		}
		classDecls[e.Index] = cd
	}

	p := &Policy{
		Types:                b.types,
		Attribs:              b.attribs,
		Roles:                b.roles,
		Users:                b.users,
		Classes:              b.classes,
		Perms:                b.perms,
		CommonPermNames:      b.commonPermNames,
		Bools:                b.bools,
		TypeDecls:            typeDecls,
		AttribDecls:          attribDecls,
		RoleDecls:            roleDecls,
		UserDecls:            userDecls,
		ClassDecls:           classDecls,
		CommonPerms:          commonPerms,
		AVRules:              b.avRules,
		TypeRules:            b.typeRules,
		RoleAllowRules:       b.roleAllowRules,
		RoleTransitionRules:  b.roleTransitionRules,
		RangeTransitionRules: b.rangeTransitionRules,
		Clones:               b.clones,
		Conditionals:         b.conditionals,
		InitialSIDs:          b.initialSIDs,
		Ocontexts:            b.ocontexts,
		MLSEnabled:           b.mlsEnabled,
		sawValidatetrans:     b.sawValidatetrans,
	}
	p.Version = inferVersion(p)
	return p, nil
}
