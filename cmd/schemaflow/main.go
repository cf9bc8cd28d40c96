package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/schemaflow/schemaflow/pkg/config"
	"github.com/schemaflow/schemaflow/pkg/logger"
)

var version = "dev"

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "schemaflow: fatal: %v\n", r)
			os.Exit(1)
		}
	}()

	// .env is optional; explicit environment always wins
	_ = godotenv.Load()

	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var (
		configFile string
		tenantID   string
		quiet      bool
	)

	root := &cobra.Command{
		Use:     "schemaflow",
		Short:   "Branch, validate, merge and plan migrations for object type schemas",
		Version: version,
		Long: `schemaflow manages object type schemas the way git manages source:
branches fork from a parent, commits snapshot the schema, and merges
run a three-way comparison with conflict classification. Validation
checks a source branch against a target for breaking changes, and the
planner turns those changes into an ordered, reversible migration plan.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "schemaflow.yaml", "path to the YAML config file")
	root.PersistentFlags().StringVar(&tenantID, "tenant", "default", "tenant whose schemas to operate on")
	root.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress log output, print results only")

	app := &appContext{}
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		log := logger.New("schemaflow", version)
		log.SetQuiet(quiet)

		cfg := config.New()
		if err := cfg.LoadFile(configFile); err != nil {
			return err
		}

		app.logger = log
		app.config = cfg
		app.tenantID = tenantID
		return nil
	}
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		app.close()
	}

	root.AddCommand(
		branchCommand(app),
		validateCommand(app),
		mergeCommand(app),
		planCommand(app),
	)
	return root
}
