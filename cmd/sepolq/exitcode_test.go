package main

import (
	"fmt"
	"os"
	"testing"

	"github.com/cici0602/sepolicy-analyzer/internal/diag"
	"github.com/stretchr/testify/assert"
)

func TestExitCodeForNil(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCodeFor(nil))
}

func TestExitCodeForNoResults(t *testing.T) {
	assert.Equal(t, ExitUsageOrEmpty, exitCodeFor(errNoResults))
	assert.Equal(t, ExitUsageOrEmpty, exitCodeFor(fmt.Errorf("wrapped: %w", errNoResults)))
}

func TestExitCodeForDiagErrorKinds(t *testing.T) {
	assert.Equal(t, ExitInvalidPolicy, exitCodeFor(diag.New(diag.KindMalformed, "bad")))
	assert.Equal(t, ExitInvalidPolicy, exitCodeFor(diag.New(diag.KindUnknownIdentifier, "bad")))
	assert.Equal(t, ExitInvalidPolicy, exitCodeFor(diag.New(diag.KindInvalidArgument, "bad")))
	assert.Equal(t, ExitIOError, exitCodeFor(diag.New(diag.KindExhausted, "bad")))
}

func TestExitCodeForOSErrors(t *testing.T) {
	_, err := os.Open("/no/such/path/sepolq-test")
	assert.Equal(t, ExitIOError, exitCodeFor(fmt.Errorf("opening policy fixture: %w", err)))
}

func TestExitCodeForGenericFallsBackToUsage(t *testing.T) {
	assert.Equal(t, ExitUsageOrEmpty, exitCodeFor(fmt.Errorf("--policy is required")))
}
