package main

import (
	"fmt"
	"os"

	"github.com/cici0602/sepolicy-analyzer/internal/adapters"
	"github.com/cici0602/sepolicy-analyzer/internal/diag"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
)

func loadPolicy() (*policydb.Policy, error) {
	if policyPath == "" {
		return nil, fmt.Errorf("--policy is required")
	}
	f, err := os.Open(policyPath)
	if err != nil {
		return nil, fmt.Errorf("opening policy fixture: %w", err)
	}
	defer f.Close()

	sink := diag.NewZapSink(logger)
	policy, err := adapters.LoadYAMLFixture(f, sink)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	return policy, nil
}
