package internal

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/astrokit/starsys/internal/compile"
	"github.com/astrokit/starsys/internal/config"
	"github.com/astrokit/starsys/internal/library"
	"github.com/astrokit/starsys/internal/pipeline"
)

var (
	buildFromSource bool
	buildDebug      bool
)

var buildCmd = &cobra.Command{
	Use:   "build [library...]",
	Short: "Run the library integrations",
	Long: `Build runs the integration pipeline for the named libraries and
everything they depend on, in dependency order. With no arguments every
known library is built.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVarP(&buildFromSource, "source", "s", false, "Fetch and compile libraries without an override directory")
	buildCmd.Flags().BoolVarP(&buildDebug, "debug", "d", false, "Compile with the debug runtime where it applies")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if buildDebug {
		cfg.Debug = true
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
		if buildFromSource {
			cfg.Source[name] = config.FetchAndCompile
		}
	}

	compiler := compile.New(cfg, cfg.CC)
	runner := pipeline.New(cfg, nil, compiler, nil, nil)
	return runner.RunAll(context.Background(), names)
}
