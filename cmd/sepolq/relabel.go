package main

import (
	"fmt"
	"runtime"

	"github.com/bits-and-blooms/bitset"
	"github.com/cici0602/sepolicy-analyzer/internal/policydb"
	"github.com/cici0602/sepolicy-analyzer/internal/relabel"
	"github.com/spf13/cobra"
)

var (
	relabelStartType string
	relabelMode      string
	relabelClass     string
)

func newRelabelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relabel",
		Short: "Query relabel-reachability for a type",
		RunE:  runRelabel,
	}
	cmd.Flags().StringVar(&relabelStartType, "start-type", "", "Starting type name (required)")
	cmd.Flags().StringVar(&relabelMode, "mode", "both", "Query mode: to, from, both, or domain")
	cmd.Flags().StringVar(&relabelClass, "class", "", "Restrict witness rules to this object class")
	return cmd
}

func runRelabel(cmd *cobra.Command, args []string) error {
	if relabelStartType == "" {
		return fmt.Errorf("--start-type is required")
	}
	policy, err := loadPolicy()
	if err != nil {
		return err
	}

	startIdx, ok := policy.Types.LookupByName(relabelStartType)
	if !ok {
		return fmt.Errorf("unknown type %q", relabelStartType)
	}

	mode, err := parseRelabelMode(relabelMode)
	if err != nil {
		return err
	}

	var filter *relabel.Filter
	if relabelClass != "" {
		classIdx, ok := policy.Classes.LookupByName(relabelClass)
		if !ok {
			return fmt.Errorf("unknown class %q", relabelClass)
		}
		set := newClassBitset(policy.NumClasses(), classIdx)
		filter = &relabel.Filter{Classes: set}
	}

	idx, err := relabel.Build(policy, runtime.NumCPU())
	if err != nil {
		return err
	}

	result, err := relabel.Query(idx, startIdx, mode, filter)
	if err != nil {
		return err
	}

	empty, err := printRelabelResult(policy, mode, result)
	if err != nil {
		return err
	}
	if empty {
		return errNoResults
	}
	return nil
}

func parseRelabelMode(s string) (relabel.Mode, error) {
	switch s {
	case "to":
		return relabel.ModeTo, nil
	case "from":
		return relabel.ModeFrom, nil
	case "both":
		return relabel.ModeBoth, nil
	case "domain":
		return relabel.ModeDomain, nil
	default:
		return 0, fmt.Errorf("unknown relabel mode %q (want to, from, both, or domain)", s)
	}
}

func newClassBitset(numClasses int, classIdx int32) *bitset.BitSet {
	set := bitset.New(uint(numClasses))
	set.Set(uint(classIdx))
	return set
}

func typeName(policy *policydb.Policy, idx int32) string {
	name, ok := policy.Types.LookupByIndex(idx)
	if !ok {
		return fmt.Sprintf("<type#%d>", idx)
	}
	return name
}

func printRelabelResult(policy *policydb.Policy, mode relabel.Mode, result interface{}) (bool, error) {
	switch mode {
	case relabel.ModeDomain:
		results, ok := result.([]relabel.DomainResult)
		if !ok {
			return false, fmt.Errorf("internal error: unexpected domain result type")
		}
		for _, r := range results {
			name := typeName(policy, r.Target)
			fmt.Printf("%s direction=%v rules=%v\n", name, r.Direction, r.Rules)
		}
		return len(results) == 0, nil
	default:
		pairs, ok := result.([]relabel.Pair)
		if !ok {
			return false, fmt.Errorf("internal error: unexpected pair result type")
		}
		for _, p := range pairs {
			fmt.Printf("subject=%s other=%s\n", typeName(policy, p.Subject), typeName(policy, p.Other))
		}
		return len(pairs) == 0, nil
	}
}
