package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/config"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/logging"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/metrics"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/report"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/scenario"
)

// app is the state shared by all subcommands.
type app struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	timeout time.Duration

	// set by tests
	runner func(a *app, rec report.Recorder) *scenario.Runner
}

func newApp() *app {
	return &app{cfg: config.Load(), metrics: metrics.New()}
}

func (a *app) newRunner(rec report.Recorder) *scenario.Runner {
	if a.runner != nil {
		return a.runner(a, rec)
	}
	return scenario.NewRunner(a.cfg, a.log, a.metrics, rec)
}

// withTimeout bounds ctx by --timeout when set.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout > 0 {
		return context.WithTimeout(ctx, a.timeout)
	}
	return context.WithCancel(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "probe",
		Short:         "Proxy and ephemeral validator probe",
		Long:          `probe exercises a proxy validator and an ephemeral validator: account subscriptions, airdrops and native transfers.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			resolveEndpoints(&a.cfg)
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if a.log == nil {
				log, err := logging.New(a.cfg.LogLevel)
				if err != nil {
					return err
				}
				a.log = log
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.ProxyURL, "proxy-url", a.cfg.ProxyURL, "Proxy validator RPC URL")
	flags.StringVar(&a.cfg.EphemURL, "ephem-url", a.cfg.EphemURL, "Ephemeral validator RPC URL")
	flags.StringVar(&a.cfg.ProxyWSURL, "proxy-ws-url", a.cfg.ProxyWSURL, "Proxy pubsub URL (derived from --proxy-url if empty)")
	flags.StringVar(&a.cfg.Commitment, "commitment", a.cfg.Commitment, "Commitment: processed, confirmed or finalized")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "Log level")
	flags.DurationVar(&a.timeout, "timeout", 0, "Overall timeout (0 = none)")

	root.AddCommand(
		newSubscribeCmd(a),
		newFundCmd(a),
		newTransferCmd(a),
		newServeCmd(a),
	)
	return root
}
