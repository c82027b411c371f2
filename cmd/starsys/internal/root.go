package internal

import (
	stdlog "log"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/astrokit/starsys/internal/config"
	"github.com/astrokit/starsys/internal/env"
	"github.com/astrokit/starsys/internal/library"
)

var rootCmd = &cobra.Command{
	Use:   "starsys",
	Short: "starsys builds the native astronomy libraries and their Go bindings",
	Long: `starsys resolves, fetches and compiles the CSPICE, CALCEPH and
SuperNOVAS C libraries and generates Go bindings from their headers.`,
}

var (
	configPath  string
	rootVerbose bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "starsys.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable verbose output")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		stdlog.Fatal(err)
	}
}

// loadConfig assembles the build configuration from the environment and
// the optional config file.
func loadConfig() (*config.Build, error) {
	overrides := library.OverrideVars()
	vars := make([]string, 0, len(overrides))
	for name := range overrides {
		vars = append(vars, name)
	}
	e := env.Snapshot(vars)

	file, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.New(e, file, overrides)
	if err != nil {
		return nil, err
	}
	cfg.Verbose = rootVerbose
	if rootVerbose {
		log.SetOutputLevel(log.Ldebug)
	}
	return cfg, nil
}
