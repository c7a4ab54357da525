package main

import (
	"flowtagger/internal/config"
	"flowtagger/internal/engine/manager"
	"flowtagger/internal/pkg/logger"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "flow-tagger [flow-log]",
		Short: "Tag flow log records by destination port and protocol",
		Long: `flow-tagger reads a flow log, classifies every record with a
port/protocol lookup table and writes counts per tag and per port/protocol pair.

The optional argument overrides paths.input from the configuration.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Load configuration
			cfg, err := config.LoadOrDefault(cfgFile, !cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Paths.Input = args[0]
			}

			if err := logger.Init(cfg.Log); err != nil {
				return err
			}
			log.Debug("Configuration loaded successfully.")

			// 2. Initialize the pipeline
			m, err := manager.NewManager(cfg)
			if err != nil {
				return err
			}
			defer m.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// 3. Run load -> parse -> write
			report, err := m.Run(ctx)
			if err != nil {
				return err
			}

			pterm.Success.Printfln("Classified %d records (%d untagged, %d skipped) from %s",
				report.Stats.Records, report.Stats.Untagged, report.Stats.Skipped(), cfg.Paths.Input)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", config.DefaultConfigPath, "path to the YAML configuration file")
	return cmd
}
