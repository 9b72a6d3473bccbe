package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is the tool's release version. It has no build-time injection
// mechanism yet; bump it by hand alongside tagged releases.
const version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sepolq version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("sepolq %s\n", version)
			return nil
		},
	}
}
