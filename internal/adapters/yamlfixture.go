package adapters

import (
	"io"

	"github.com/cici0602/sepolicy-analyzer/internal/diag"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
	"gopkg.in/yaml.v3"
)

// PolicyFixture is the YAML-decodable demonstration form of a policy
// database, used by tests and by the CLI as a stand-in for a real
// binary/source policy parser (explicitly out of this toolkit's scope
// per spec §1 — "the parser itself is out of scope").
type PolicyFixture struct {
	Types      []TypeFixture      `yaml:"types"`
	Attributes []AttribFixture    `yaml:"attributes"`
	Roles      []RoleFixture      `yaml:"roles"`
	Users      []UserFixture      `yaml:"users"`
	Classes    []ClassFixture     `yaml:"classes"`
	CommonPerms []CommonPermFixture `yaml:"common_perms"`
	AVRules    []AVRuleFixture    `yaml:"av_rules"`
	Clones     []CloneFixture     `yaml:"clones"`
	MLSEnabled bool               `yaml:"mls_enabled"`
}

type TypeFixture struct {
	Name       string   `yaml:"name"`
	Aliases    []string `yaml:"aliases"`
	Attributes []string `yaml:"attributes"`
}

type AttribFixture struct {
	Name string `yaml:"name"`
}

type RoleFixture struct {
	Name  string   `yaml:"name"`
	Types []string `yaml:"types"`
}

type UserFixture struct {
	Name  string   `yaml:"name"`
	Roles []string `yaml:"roles"`
}

type CommonPermFixture struct {
	Name  string   `yaml:"name"`
	Perms []string `yaml:"perms"`
}

type ClassFixture struct {
	Name       string   `yaml:"name"`
	Value      int32    `yaml:"value"`
	CommonPerm string   `yaml:"common_perm"`
	Perms      []string `yaml:"perms"`
}

type ListEntryFixture struct {
	Type       string `yaml:"type,omitempty"`
	Attribute  string `yaml:"attribute,omitempty"`
	Self       bool   `yaml:"self,omitempty"`
	Complement bool   `yaml:"complement,omitempty"`
}

type ListFixture struct {
	Wildcard bool               `yaml:"wildcard,omitempty"`
	Entries  []ListEntryFixture `yaml:"entries,omitempty"`
}

type PermListEntryFixture struct {
	Perm       string `yaml:"perm,omitempty"`
	CommonPerm string `yaml:"common_perm,omitempty"`
	Complement bool   `yaml:"complement,omitempty"`
}

type PermListFixture struct {
	Wildcard bool                   `yaml:"wildcard,omitempty"`
	Entries  []PermListEntryFixture `yaml:"entries,omitempty"`
}

type ClassListEntryFixture struct {
	Class      string `yaml:"class"`
	Complement bool   `yaml:"complement,omitempty"`
}

type ClassListFixture struct {
	Wildcard bool                    `yaml:"wildcard,omitempty"`
	Entries  []ClassListEntryFixture `yaml:"entries,omitempty"`
}

type AVRuleFixture struct {
	Kind    string          `yaml:"kind"`
	Src     ListFixture     `yaml:"src"`
	Tgt     ListFixture     `yaml:"tgt"`
	Classes ClassListFixture `yaml:"classes"`
	Perms   PermListFixture `yaml:"perms"`
}

type CloneFixture struct {
	Src string `yaml:"src"`
	Tgt string `yaml:"tgt"`
}

var avRuleKinds = map[string]policydb.AVRuleKind{
	"allow":      policydb.AVAllow,
	"neverallow": policydb.AVNeverallow,
	"auditallow": policydb.AVAuditAllow,
	"dontaudit":  policydb.AVDontAudit,
	"auditdeny":  policydb.AVAuditDeny,
}

// LoadYAMLFixture decodes a PolicyFixture from r and drives it through
// a Builder, exercising the same symbol-table-mediated load path a
// real parser would (spec §4.B "all additions are symbol-table-
// mediated"). Unknown type, attribute, class, or common-perm names
// referenced inside a rule are a fatal *diag.Error; a permission name
// not declared by any class or common perm is interned on first use
// instead. Unlike the file-contexts/permission-map adapters, a
// fixture is assumed to be internally self-consistent test input, not
// third-party data that tolerates partial loss.
func LoadYAMLFixture(r io.Reader, sink diag.Sink) (*policydb.Policy, error) {
	var fx PolicyFixture
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&fx); err != nil {
		return nil, diag.Wrap(diag.KindMalformed, err, "policy fixture: invalid YAML")
	}

	b := policydb.NewBuilder(sink)
	types := make(map[string]int32)
	attribs := make(map[string]int32)
	roles := make(map[string]int32)
	classes := make(map[string]int32)
	commonPerms := make(map[string]int32)
	perms := make(map[string]int32)

	internPerm := func(name string) (int32, error) {
		if idx, ok := perms[name]; ok {
			return idx, nil
		}
		idx, err := b.InternPerm(name)
		if err != nil {
			return 0, err
		}
		perms[name] = idx
		return idx, nil
	}

	for _, a := range fx.Attributes {
		idx, err := b.InternAttrib(a.Name)
		if err != nil {
			return nil, err
		}
		attribs[a.Name] = idx
	}
	for _, ty := range fx.Types {
		idx, err := b.InternType(ty.Name)
		if err != nil {
			return nil, err
		}
		types[ty.Name] = idx
		for _, alias := range ty.Aliases {
			if err := b.InternTypeAlias(idx, alias); err != nil {
				return nil, err
			}
		}
		for _, attrName := range ty.Attributes {
			attrIdx, ok := attribs[attrName]
			if !ok {
				return nil, diag.New(diag.KindUnknownIdentifier, "type %q references unknown attribute %q", ty.Name, attrName)
			}
			b.AddTypeAttribute(idx, attrIdx)
		}
	}
	for _, r := range fx.Roles {
		idx, err := b.InternRole(r.Name)
		if err != nil {
			return nil, err
		}
		roles[r.Name] = idx
		for _, tyName := range r.Types {
			tyIdx, ok := types[tyName]
			if !ok {
				return nil, diag.New(diag.KindUnknownIdentifier, "role %q references unknown type %q", r.Name, tyName)
			}
			b.AddRoleType(idx, tyIdx)
		}
	}
	for _, u := range fx.Users {
		idx, err := b.InternUser(u.Name)
		if err != nil {
			return nil, err
		}
		var roleIdxs []int32
		for _, roleName := range u.Roles {
			roleIdx, ok := roles[roleName]
			if !ok {
				return nil, diag.New(diag.KindUnknownIdentifier, "user %q references unknown role %q", u.Name, roleName)
			}
			roleIdxs = append(roleIdxs, roleIdx)
		}
		b.SetUserRoles(idx, roleIdxs)
	}
	for _, cp := range fx.CommonPerms {
		var permIdxs []int32
		for _, p := range cp.Perms {
			idx, err := internPerm(p)
			if err != nil {
				return nil, err
			}
			permIdxs = append(permIdxs, idx)
		}
		idx, err := b.InternCommonPerm(cp.Name, permIdxs)
		if err != nil {
			return nil, err
		}
		commonPerms[cp.Name] = idx
	}
	for _, c := range fx.Classes {
		commonPerm := int32(-1)
		if c.CommonPerm != "" {
			idx, ok := commonPerms[c.CommonPerm]
			if !ok {
				return nil, diag.New(diag.KindUnknownIdentifier, "class %q references unknown common perm %q", c.Name, c.CommonPerm)
			}
			commonPerm = idx
		}
		var uniquePerms []int32
		for _, p := range c.Perms {
			idx, err := internPerm(p)
			if err != nil {
				return nil, err
			}
			uniquePerms = append(uniquePerms, idx)
		}
		idx, err := b.InternClass(c.Name, c.Value, commonPerm, uniquePerms)
		if err != nil {
			return nil, err
		}
		classes[c.Name] = idx
	}

	resolveTypeList := func(lf ListFixture) (policydb.List, error) {
		list := policydb.List{Wildcard: lf.Wildcard}
		for _, e := range lf.Entries {
			switch {
			case e.Self:
				list.Entries = append(list.Entries, policydb.ListEntry{Kind: policydb.EntrySelf, Complement: e.Complement})
			case e.Attribute != "":
				idx, ok := attribs[e.Attribute]
				if !ok {
					return policydb.List{}, diag.New(diag.KindUnknownIdentifier, "unknown attribute %q", e.Attribute)
				}
				list.Entries = append(list.Entries, policydb.ListEntry{Kind: policydb.EntryAttrib, Index: idx, Complement: e.Complement})
			default:
				idx, ok := types[e.Type]
				if !ok {
					return policydb.List{}, diag.New(diag.KindUnknownIdentifier, "unknown type %q", e.Type)
				}
				list.Entries = append(list.Entries, policydb.ListEntry{Kind: policydb.EntryType, Index: idx, Complement: e.Complement})
			}
		}
		return list, nil
	}

	resolveClassList := func(lf ClassListFixture) (policydb.List, error) {
		list := policydb.List{Wildcard: lf.Wildcard}
		for _, e := range lf.Entries {
			idx, ok := classes[e.Class]
			if !ok {
				return policydb.List{}, diag.New(diag.KindUnknownIdentifier, "unknown class %q", e.Class)
			}
			list.Entries = append(list.Entries, policydb.ListEntry{Kind: policydb.EntryClass, Index: idx, Complement: e.Complement})
		}
		return list, nil
	}

	resolvePermList := func(lf PermListFixture) (policydb.List, error) {
		list := policydb.List{Wildcard: lf.Wildcard}
		for _, e := range lf.Entries {
			if e.CommonPerm != "" {
				idx, ok := commonPerms[e.CommonPerm]
				if !ok {
					return policydb.List{}, diag.New(diag.KindUnknownIdentifier, "unknown common perm %q", e.CommonPerm)
				}
				list.Entries = append(list.Entries, policydb.ListEntry{Kind: policydb.EntryCommonPerm, Index: idx, Complement: e.Complement})
				continue
			}
			idx, err := internPerm(e.Perm)
			if err != nil {
				return policydb.List{}, err
			}
			list.Entries = append(list.Entries, policydb.ListEntry{Kind: policydb.EntryPerm, Index: idx, Complement: e.Complement})
		}
		return list, nil
	}

	for _, rule := range fx.AVRules {
		kind, ok := avRuleKinds[rule.Kind]
		if !ok {
			return nil, diag.New(diag.KindInvalidArgument, "unknown av rule kind %q", rule.Kind)
		}
		src, err := resolveTypeList(rule.Src)
		if err != nil {
			return nil, err
		}
		tgt, err := resolveTypeList(rule.Tgt)
		if err != nil {
			return nil, err
		}
		classList, err := resolveClassList(rule.Classes)
		if err != nil {
			return nil, err
		}
		permList, err := resolvePermList(rule.Perms)
		if err != nil {
			return nil, err
		}
		b.AddAVRule(policydb.AVRule{Kind: kind, Src: src, Tgt: tgt, Classes: classList, Perms: permList})
	}

	for _, c := range fx.Clones {
		srcIdx, ok := types[c.Src]
		if !ok {
			return nil, diag.New(diag.KindUnknownIdentifier, "clone references unknown type %q", c.Src)
		}
		tgtIdx, ok := types[c.Tgt]
		if !ok {
			return nil, diag.New(diag.KindUnknownIdentifier, "clone references unknown type %q", c.Tgt)
		}
		b.AddClone(srcIdx, tgtIdx, 0)
	}

	if fx.MLSEnabled {
		b.SetMLSEnabled(true)
	}

	return b.Finalize()
}
