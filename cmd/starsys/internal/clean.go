package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/astrokit/starsys/internal/library"
)

var cleanAll bool

var cleanCmd = &cobra.Command{
	Use:   "clean [library...]",
	Short: "Remove fetched sources and build outputs from the workspace",
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "Also remove published metadata and generated bindings")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		for _, s := range library.All() {
			names = append(names, s.Name)
		}
	}
	for _, name := range names {
		if _, ok := library.Lookup(name); !ok {
			return fmt.Errorf("unknown library %q", name)
		}
		if err := os.RemoveAll(filepath.Join(cfg.Workspace, "src", name)); err != nil {
			return err
		}
		if cleanAll {
			if err := os.Remove(filepath.Join(cfg.Workspace, "metadata", name+".json")); err != nil && !os.IsNotExist(err) {
				return err
			}
			if err := os.RemoveAll(filepath.Join(cfg.Workspace, "bindings", name)); err != nil {
				return err
			}
		}
	}
	return nil
}
