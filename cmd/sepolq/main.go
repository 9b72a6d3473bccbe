// Command sepolq is the SELinux policy query and relabel-reachability
// CLI. It wraps the internal/policydb, internal/rulequery, and
// internal/relabel packages in a cobra command tree, mirroring the
// teacher's cli/main.go command-tree style (cli/main.go in
// cici0602-pml-to-selinux).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit codes per spec §6.
const (
	ExitSuccess      = 0
	ExitUsageOrEmpty = 1
	ExitInvalidPolicy = 2
	ExitIOError       = 3
)

var (
	policyPath string
	verbose    bool
	logger     *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sepolq",
		Short: "Query and analyze SELinux-style security policies",
		Long: `sepolq loads a static security policy and answers rule-matching
and relabel-reachability queries against it.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if verbose {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&policyPath, "policy", "p", "", "Path to a YAML policy fixture (required)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (development) logging")

	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newRelabelCmd())
	rootCmd.AddCommand(newPermMapCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}
