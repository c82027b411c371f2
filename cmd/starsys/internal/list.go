package internal

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/astrokit/starsys/internal/library"
	"github.com/astrokit/starsys/internal/metadata"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the known libraries and their status",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg := metadata.New(cfg.Workspace)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LIBRARY\tVERSION\tOVERRIDE VAR\tSTATUS")
	for _, spec := range library.All() {
		status := "unresolved"
		if dir := cfg.Overrides[spec.Name]; dir != "" {
			status = "override " + dir
		} else if _, ok, _ := reg.Lookup(spec.Name); ok {
			status = "built"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", spec.Name, spec.Version, spec.EnvVar, status)
	}
	return w.Flush()
}
