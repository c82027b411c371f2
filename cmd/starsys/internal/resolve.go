package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/astrokit/starsys/internal/library"
	"github.com/astrokit/starsys/internal/metadata"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [library]",
	Short: "Print the published link and include facts for a library",
	Long: `Resolve prints the include path, link search path and link
directives a consumer needs for a library built or resolved by a prior
'starsys build'.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	name := args[0]
	if _, ok := library.Lookup(name); !ok {
		return fmt.Errorf("unknown library %q", name)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg := metadata.New(cfg.Workspace)
	info, ok, err := reg.Lookup(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no metadata for %s, run 'starsys build %s' first", name, name)
	}

	fmt.Println(formatInfo(info))
	return nil
}

// formatInfo renders a metadata entry pkg-config style.
func formatInfo(info metadata.Info) string {
	s := fmt.Sprintf("%s: -I%s -L%s -l%s", info.Name, info.IncludeDir, info.LibDir, info.LibName)
	if len(info.LinkArgs) > 0 {
		s += " " + strings.Join(info.LinkArgs, " ")
	}
	return s
}
