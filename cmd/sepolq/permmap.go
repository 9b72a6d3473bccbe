package main

import (
	"fmt"
	"os"

	"github.com/cici0602/sepolicy-analyzer/internal/config"
	"github.com/cici0602/sepolicy-analyzer/internal/diag"
	"github.com/cici0602/sepolicy-analyzer/internal/permmap"
	"github.com/spf13/cobra"
)

var (
	permMapPath   string
	permMapSaveTo string
)

func newPermMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permmap",
		Short: "Load and inspect a permission-map file",
		RunE:  runPermMap,
	}
	cmd.Flags().StringVar(&permMapPath, "file", "", "Path to the permission-map file (defaults to the config search path)")
	cmd.Flags().StringVar(&permMapSaveTo, "save-to", "", "If set, re-save the loaded map to this path")
	return cmd
}

func runPermMap(cmd *cobra.Command, args []string) error {
	path := permMapPath
	if path == "" {
		path = config.FindFile("perm_map")
	}
	if path == "" {
		return fmt.Errorf("no permission-map file found on search path %v", config.SearchPath())
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening permission map: %w", err)
	}
	defer f.Close()

	policy, err := loadPolicy()
	if err != nil {
		return err
	}

	sink := diag.NewZapSink(logger)
	m, err := permmap.Load(f, policy, sink)
	if err != nil {
		return fmt.Errorf("loading permission map: %w", err)
	}

	count := 0
	for _, class := range m.Classes() {
		for _, perm := range m.Perms(class) {
			mp, _ := m.Lookup(class, perm)
			fmt.Printf("%s %s %s %d\n", class, perm, mp.Access, mp.Weight)
			count++
		}
	}
	if count == 0 {
		return errNoResults
	}

	if permMapSaveTo != "" {
		out, err := os.Create(permMapSaveTo)
		if err != nil {
			return fmt.Errorf("creating output permission map: %w", err)
		}
		defer out.Close()
		if err := permmap.Save(out, m); err != nil {
			return fmt.Errorf("saving permission map: %w", err)
		}
	}
	return nil
}
