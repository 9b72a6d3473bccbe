package diag_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cici0602/sepolicy-analyzer/internal/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatsContext(t *testing.T) {
	err := diag.New(diag.KindUnknownIdentifier, "unknown type %q", "ghost_t")
	assert.Equal(t, diag.KindUnknownIdentifier, err.Kind)
	assert.Contains(t, err.Error(), "ghost_t")
	assert.Nil(t, err.Cause)
}

func TestWrapChainsCauseViaUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := diag.Wrap(diag.KindMalformed, cause, "loading %s", "policy.yaml")

	assert.Same(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "boom")
}

func TestErrorsAsRecoversKind(t *testing.T) {
	var target *diag.Error
	wrapped := fmt.Errorf("context: %w", diag.New(diag.KindExhausted, "too deep"))
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, diag.KindExhausted, target.Kind)
}

func TestIsMatchesOnlyExactKind(t *testing.T) {
	err := diag.New(diag.KindInvalidArgument, "bad arg")
	assert.True(t, diag.Is(err, diag.KindInvalidArgument))
	assert.False(t, diag.Is(err, diag.KindMalformed))
	assert.False(t, diag.Is(errors.New("plain"), diag.KindInvalidArgument))
}

func TestNopSinkSuppressesEverything(t *testing.T) {
	var sink diag.Sink = diag.NopSink{}
	assert.NotPanics(t, func() {
		sink.Emit(diag.Event{Severity: diag.SeverityError, Message: "ignored"})
	})
}

func TestSeverityAndKindStringers(t *testing.T) {
	assert.Equal(t, "warning", diag.SeverityWarning.String())
	assert.Equal(t, "resource_exhaustion", diag.KindExhausted.String())
}
