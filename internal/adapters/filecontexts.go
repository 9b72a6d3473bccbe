// Package adapters implements the external-interface layer (spec
// §4.H): a file-contexts loader and the script-binding surface
// documenting the shape a scripting-language binding would call.
//
// Grounded structurally on the teacher's selinux/fs_generator.go
// (ocontext/file-context modeling), generalized from a generator into
// a parser, per SPEC_FULL.md §4.H.
package adapters

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cici0602/sepolicy-analyzer/internal/diag"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
)

// FileType enumerates the file-contexts FILETYPE qualifier, per spec
// §6. FileTypeAny means no qualifier was present (matches anything).
type FileType int

const (
	FileTypeAny FileType = iota
	FileTypeRegular
	FileTypeDir
	FileTypeChar
	FileTypeBlock
	FileTypeFIFO
	FileTypeSymlink
	FileTypeSocket
)

var fileTypeTokens = map[string]FileType{
	"--": FileTypeRegular,
	"-d": FileTypeDir,
	"-c": FileTypeChar,
	"-b": FileTypeBlock,
	"-p": FileTypeFIFO,
	"-l": FileTypeSymlink,
	"-s": FileTypeSocket,
}

// FileContextEntry is one parsed, symbol-resolved file-contexts line.
// Unlabeled is true for the "<<none>>" form, in which case User/Role/
// Type are zero and must not be consulted.
type FileContextEntry struct {
	PathGlob   string
	Type       FileType
	Unlabeled  bool
	User       int32
	Role       int32
	SecType    int32
	SourceLine int
}

// LoadFileContexts parses the file-contexts grammar of spec §6 from r,
// resolving USER:ROLE:TYPE components against policy's symbol tables.
// An entry naming an unknown user, role, or type is reported as a
// warning to sink and the whole entry is skipped. A structurally
// malformed line (wrong field count, unknown filetype, context without
// three components) is likewise reported as a warning and skipped; the
// only error returned is a read error from r.
func LoadFileContexts(r io.Reader, policy *policydb.Policy, sink diag.Sink) ([]FileContextEntry, error) {
	if sink == nil {
		sink = diag.NopSink{}
	}
	var entries []FileContextEntry
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields) > 3 {
			sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("file_contexts:%d: malformed entry %q, skipped", lineNo, line)})
			continue
		}

		entry := FileContextEntry{PathGlob: fields[0], SourceLine: lineNo}
		rest := fields[1:]

		if len(rest) == 2 {
			ft, ok := fileTypeTokens[rest[0]]
			if !ok {
				sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("file_contexts:%d: unknown filetype %q, skipped", lineNo, rest[0])})
				continue
			}
			entry.Type = ft
			rest = rest[1:]
		} else {
			entry.Type = FileTypeAny
		}

		context := rest[0]
		if context == "<<none>>" {
			entry.Unlabeled = true
			entries = append(entries, entry)
			continue
		}

		parts := strings.Split(context, ":")
		if len(parts) != 3 {
			sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("file_contexts:%d: malformed context %q, skipped", lineNo, context)})
			continue
		}

		userIdx, ok := policy.Users.LookupByName(parts[0])
		if !ok {
			sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("file_contexts:%d: unknown user %q, entry skipped", lineNo, parts[0])})
			continue
		}
		roleIdx, ok := policy.Roles.LookupByName(parts[1])
		if !ok {
			sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("file_contexts:%d: unknown role %q, entry skipped", lineNo, parts[1])})
			continue
		}
		typeIdx, ok := policy.Types.LookupByName(parts[2])
		if !ok {
			sink.Emit(diag.Event{Severity: diag.SeverityWarning, Message: fmt.Sprintf("file_contexts:%d: unknown type %q, entry skipped", lineNo, parts[2])})
			continue
		}

		entry.User = userIdx
		entry.Role = roleIdx
		entry.SecType = typeIdx
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, diag.Wrap(diag.KindMalformed, err, "file_contexts: read error")
	}
	return entries, nil
}
