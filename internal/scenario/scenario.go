// Package scenario runs the end-to-end probes against a proxy and an
// ephemeral validator.
package scenario

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/config"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/logging"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/metrics"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/report"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/solana"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/subscription"
)

const (
	AccountSubscriptionName = "account subscription"
	SystemTransferName      = "send system transfer transaction"
)

// DialFunc opens a pubsub endpoint; see subscription.Dial.
type DialFunc func(ctx context.Context, wsURL string) (subscription.AccountSubscriber, func(), error)

// Runner holds the two connections and the ambient plumbing shared by the
// scenarios. Proxy receives transactions and subscriptions; Ephem funds
// accounts.
type Runner struct {
	Proxy *solana.Connection
	Ephem *solana.Connection

	Log          *zap.SugaredLogger
	Metrics      *metrics.Metrics
	Recorder     report.Recorder
	PollInterval time.Duration
	Dial         DialFunc
}

// NewRunner builds fresh proxy and ephemeral connections from cfg.
func NewRunner(cfg config.Config, log *zap.SugaredLogger, m *metrics.Metrics, rec report.Recorder) *Runner {
	return &Runner{
		Proxy:        solana.ProxyConnectionFromConfig(cfg),
		Ephem:        solana.EphemConnectionFromConfig(cfg),
		Log:          log,
		Metrics:      m,
		Recorder:     rec,
		PollInterval: cfg.ConfirmPollInterval,
	}
}

func (r *Runner) log() *zap.SugaredLogger { return logging.OrNop(r.Log) }

func (r *Runner) dial() DialFunc {
	if r.Dial != nil {
		return r.Dial
	}
	return subscription.Dial
}

// record stores a finished run. Store failures are logged, never returned.
func (r *Runner) record(run *report.Run, err error) {
	run.Finish(err)
	r.Metrics.ObserveScenario(run.Scenario, err)
	if r.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if rerr := r.Recorder.Record(ctx, *run); rerr != nil {
		r.log().Warnw("record_run", "scenario", run.Scenario, "id", run.ID, "err", rerr)
	}
}
