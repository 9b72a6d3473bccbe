package main

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/cici0602/sepolicy-analyzer/internal/rulequery"
	"github.com/spf13/cobra"
)

var (
	querySrcType string
	queryTgtType string
	queryClass   string
	queryIndirect bool
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query AV rules matching source/target/class criteria",
		RunE:  runQuery,
	}
	cmd.Flags().StringVar(&querySrcType, "src", "", "Source type name filter")
	cmd.Flags().StringVar(&queryTgtType, "tgt", "", "Target type name filter")
	cmd.Flags().StringVar(&queryClass, "class", "", "Object class name filter")
	cmd.Flags().BoolVar(&queryIndirect, "indirect", true, "Expand attributes when matching types")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	policy, err := loadPolicy()
	if err != nil {
		return err
	}
	engine := rulequery.New(policy)

	var c rulequery.Criteria
	c.DoIndirect = queryIndirect
	if querySrcType != "" {
		idx, ok := policy.Types.LookupByName(querySrcType)
		if !ok {
			return fmt.Errorf("unknown source type %q", querySrcType)
		}
		c.SrcType = &idx
	}
	if queryTgtType != "" {
		idx, ok := policy.Types.LookupByName(queryTgtType)
		if !ok {
			return fmt.Errorf("unknown target type %q", queryTgtType)
		}
		c.TgtType = &idx
	}
	if queryClass != "" {
		idx, ok := policy.Classes.LookupByName(queryClass)
		if !ok {
			return fmt.Errorf("unknown class %q", queryClass)
		}
		set := bitset.New(uint(policy.NumClasses()))
		set.Set(uint(idx))
		c.ClassSet = set
	}

	it, err := engine.QueryAVRules(c)
	if err != nil {
		return err
	}

	count := 0
	for ruleIdx, ok := it.Next(); ok; ruleIdx, ok = it.Next() {
		r := &policy.AVRules[int(ruleIdx)]
		fmt.Printf("rule %d: %s\n", ruleIdx, r.Kind)
		count++
	}
	if count == 0 {
		return errNoResults
	}
	return nil
}
