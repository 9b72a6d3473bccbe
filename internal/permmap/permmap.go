// Package permmap implements the permission map (spec §4.D): a
// per-(class, permission) table of access bits and an importance
// weight, loadable from and writable back to a line-oriented text
// form.
//
// Grounded on original_source/setools/libapol/perm-map.c
// (new_perm_mapping, load_perm_map_for_object, load_perm_mappings,
// write_perm_map_file).
package permmap

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cici0602/sepolicy-analyzer/internal/diag"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
)

// Access is the access-bit classification of a permission.
type Access int

const (
	Unmapped Access = iota
	Read
	Write
	Both
	None
)

func (a Access) String() string {
	switch a {
	case Read:
		return "r"
	case Write:
		return "w"
	case Both:
		return "b"
	case None:
		return "n"
	default:
		return "u"
	}
}

func parseAccess(s string) (Access, bool) {
	switch strings.ToLower(s) {
	case "r":
		return Read, true
	case "w":
		return Write, true
	case "b":
		return Both, true
	case "n":
		return None, true
	case "u":
		return Unmapped, true
	default:
		return Unmapped, false
	}
}

// DefaultWeight is used when a PERM_LINE omits its weight field.
const DefaultWeight = 10

// Mapping is one permission's access classification and weight.
type Mapping struct {
	Access Access
	Weight int
}

// Map is the full class->permission->Mapping table. A permission not
// present in the map reads back as (Unmapped, 1) per spec §8 S5.
type Map struct {
	classes map[string]map[string]Mapping
}

// New returns an empty permission map.
func New() *Map {
	return &Map{classes: make(map[string]map[string]Mapping)}
}

// Lookup returns the mapping for class/perm, or (Unmapped, 1) with
// found=false if absent.
func (m *Map) Lookup(class, perm string) (Mapping, bool) {
	perms, ok := m.classes[class]
	if !ok {
		return Mapping{Access: Unmapped, Weight: 1}, false
	}
	mp, ok := perms[perm]
	if !ok {
		return Mapping{Access: Unmapped, Weight: 1}, false
	}
	return mp, true
}

// Set records class/perm's mapping, overwriting any prior entry.
func (m *Map) Set(class, perm string, mp Mapping) {
	perms, ok := m.classes[class]
	if !ok {
		perms = make(map[string]Mapping)
		m.classes[class] = perms
	}
	perms[perm] = mp
}

// Classes returns the class names present in the map, unordered.
func (m *Map) Classes() []string {
	out := make([]string, 0, len(m.classes))
	for c := range m.classes {
		out = append(out, c)
	}
	return out
}

// Perms returns the permission names mapped under class, unordered.
func (m *Map) Perms(class string) []string {
	perms, ok := m.classes[class]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(perms))
	for p := range perms {
		out = append(out, p)
	}
	return out
}

// Load parses the permission-map grammar of spec §4.D from r, emitting
// non-fatal diagnostics to sink (unknown permission name, class absent
// from policy, permission absent from file, permission remapped,
// weight out of range) and returning a fatal *diag.Error for malformed
// integers, a missing class header, or an I/O error.
//
// policy, if non-nil, is consulted to validate class and permission
// names; pass nil to load without cross-validation.
func Load(r io.Reader, policy *policydb.Policy, sink diag.Sink) (*Map, error) {
	if sink == nil {
		sink = diag.NopSink{}
	}
	scanner := bufio.NewScanner(r)
	lineNo := 0

	// rawLine returns the next non-blank line verbatim, including any
	// "#" comment lines — used where the grammar counts a PERM_LINE's
	// comment alternative as one of the class's declared permissions.
	rawLine := func() (string, bool) {
		for scanner.Scan() {
			lineNo++
			trimmed := strings.TrimSpace(strings.TrimRight(scanner.Text(), " \t\r"))
			if trimmed == "" {
				continue
			}
			return trimmed, true
		}
		return "", false
	}

	// nextLine additionally skips bare "#" comment lines, for the
	// header and class-header positions the grammar does not count.
	nextLine := func() (string, bool) {
		for {
			line, ok := rawLine()
			if !ok {
				return "", false
			}
			if strings.HasPrefix(line, "#") {
				continue
			}
			return line, true
		}
	}

	header, ok := nextLine()
	if !ok {
		return nil, diag.New(diag.KindMalformed, "permission map: missing header")
	}
	classCount, err := strconv.Atoi(header)
	if err != nil {
		return nil, diag.Wrap(diag.KindMalformed, err, "permission map: malformed class count at line %d", lineNo)
	}

	m := New()
	seen := make(map[string]bool)

	for i := 0; i < classCount; i++ {
		line, ok := nextLine()
		if !ok {
			return nil, diag.New(diag.KindMalformed, "permission map: missing class header for class %d of %d", i+1, classCount)
		}
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[0] != "class" {
			return nil, diag.New(diag.KindMalformed, "permission map: malformed class header at line %d: %q", lineNo, line)
		}
		className := fields[1]
		permCount, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, diag.Wrap(diag.KindMalformed, err, "permission map: malformed permission count at line %d", lineNo)
		}

		var classDecl *policydb.ClassDecl
		if policy != nil {
			if idx, found := policy.Classes.LookupByName(className); found {
				classDecl = &policy.ClassDecls[idx]
			} else {
				sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("permission map: class %q not present in policy", className)})
			}
		}

		if seen[className] {
			sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("permission map: class %q remapped", className)})
		}
		seen[className] = true

		mentioned := make(map[string]bool)
		for j := 0; j < permCount; j++ {
			permLine, ok := rawLine()
			if !ok {
				return nil, diag.New(diag.KindMalformed, "permission map: missing permission line %d of %d for class %q", j+1, permCount, className)
			}
			permLine = strings.TrimSpace(strings.TrimPrefix(permLine, "#"))
			fields := strings.Fields(permLine)
			if len(fields) < 2 {
				return nil, diag.New(diag.KindMalformed, "permission map: malformed permission line at line %d: %q", lineNo, permLine)
			}
			permName := fields[0]
			access, ok := parseAccess(fields[1])
			if !ok {
				sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("permission map: unknown access code %q for %s:%s", fields[1], className, permName)})
				access = Unmapped
			}

			weight := DefaultWeight
			if len(fields) >= 3 {
				w, err := strconv.Atoi(fields[2])
				if err != nil {
					return nil, diag.Wrap(diag.KindMalformed, err, "permission map: malformed weight at line %d", lineNo)
				}
				weight = w
			}
			if weight < 1 || weight > 10 {
				sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("permission map: weight %d for %s:%s out of range, clamped", weight, className, permName)})
				if weight < 1 {
					weight = 1
				} else {
					weight = 10
				}
			}

			if classDecl != nil {
				if _, found := policy.Perms.LookupByName(permName); !found {
					sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("permission map: unknown permission %q", permName)})
				}
			}

			if mentioned[permName] {
				sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("permission map: permission %q remapped for class %q", permName, className)})
			}
			mentioned[permName] = true

			m.Set(className, permName, Mapping{Access: access, Weight: weight})
		}

		if classDecl != nil {
			full := classDecl.FullPerms(policy)
			for idx, ok := full.NextSet(0); ok; idx, ok = full.NextSet(idx + 1) {
				name, _ := policy.Perms.LookupByIndex(int32(idx))
				if !mentioned[name] {
					sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("permission map: permission %q of class %q not mentioned in file", name, className)})
				}
			}
		}
	}

	return m, nil
}

// Save writes m back out in the grammar of spec §4.D, in ascending
// class-name then permission-name order for reproducibility. Any
// permission still marked Unmapped is emitted with a leading comment,
// per the writer rule of §4.D.
func Save(w io.Writer, m *Map) error {
	classes := m.Classes()
	sortStrings(classes)

	if _, err := fmt.Fprintf(w, "%d\n", len(classes)); err != nil {
		return err
	}
	for _, class := range classes {
		perms := m.Perms(class)
		sortStrings(perms)
		if _, err := fmt.Fprintf(w, "class %s %d\n", class, len(perms)); err != nil {
			return err
		}
		for _, perm := range perms {
			mp, _ := m.Lookup(class, perm)
			prefix := ""
			if mp.Access == Unmapped {
				prefix = "# "
			}
			if _, err := fmt.Fprintf(w, "%s%s %s %d\n", prefix, perm, mp.Access, mp.Weight); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
