package main

import (
	"errors"
	"io"
	"os"

	"github.com/cici0602/sepolicy-analyzer/internal/diag"
)

// errNoResults signals the "no results" case of exit code 1 (spec §6:
// "usage error or no results").
var errNoResults = errors.New("no results")

// exitCodeFor maps an error to the exit codes of spec §6.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, errNoResults) {
		return ExitUsageOrEmpty
	}
	var de *diag.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case diag.KindInvalidArgument, diag.KindUnknownIdentifier, diag.KindMalformed:
			return ExitInvalidPolicy
		case diag.KindExhausted:
			return ExitIOError
		}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return ExitIOError
	}
	return ExitUsageOrEmpty
}
