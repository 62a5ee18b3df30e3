// Command flightsearch searches flights and prices every ticket as the
// quotes arrive. It also hosts a mock flights API for local runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/flightsearch/config"
	"github.com/kbukum/flightsearch/logger"
	"github.com/kbukum/flightsearch/observability"
	"github.com/kbukum/flightsearch/version"
)

// app carries what PersistentPreRunE prepared for the subcommands.
type app struct {
	cfg      appConfig
	log      *logger.Logger
	metrics  *observability.PipelineMetrics
	shutdown observability.ShutdownFunc
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		configFile string
		envFile    string
		logLevel   string
	)

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Flight search with concurrent fare enrichment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			var opts []config.LoaderOption
			if configFile != "" {
				opts = append(opts, config.WithConfigFile(configFile))
			}
			if envFile != "" {
				opts = append(opts, config.WithEnvFile(envFile))
			}
			if err := config.Load(serviceName, &a.cfg, opts...); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logLevel != "" {
				a.cfg.Logging.Level = logLevel
			}
			logger.Init(a.cfg.Logging)
			logger.RegisterDefaults("search", "enrich", "fetch", "multicast", "affinity", "worker", "disposal")
			a.log = logger.GetGlobalLogger().WithComponent("cli")

			shutdown, err := observability.Setup(cmd.Context(), a.cfg.Observability, a.cfg.Name, version.Get().Short())
			if err != nil {
				return fmt.Errorf("observability: %w", err)
			}
			a.shutdown = shutdown
			if a.metrics, err = observability.NewPipelineMetrics(observability.Meter()); err != nil {
				return err
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(context.WithoutCancel(cmd.Context()))
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./config.yml or ./config/config.yml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "env file (default: .env.local or .env)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(
		newServeCmd(a),
		newSearchCmd(a),
		newDemoCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}
