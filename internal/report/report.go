// Package report records scenario runs.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outcome of a run.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Run is one scenario execution.
type Run struct {
	ID         string    `bson:"_id" json:"id"`
	Scenario   string    `bson:"scenario" json:"scenario"`
	StartedAt  time.Time `bson:"started_at" json:"started_at"`
	FinishedAt time.Time `bson:"finished_at" json:"finished_at"`
	Outcome    string    `bson:"outcome" json:"outcome"`
	Signature  string    `bson:"signature,omitempty" json:"signature,omitempty"`
	Error      string    `bson:"error,omitempty" json:"error,omitempty"`
	Payer      string    `bson:"payer,omitempty" json:"payer,omitempty"`
	Recipient  string    `bson:"recipient,omitempty" json:"recipient,omitempty"`
	Lamports   uint64    `bson:"lamports,omitempty" json:"lamports,omitempty"`
	Endpoint   string    `bson:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// Start returns a run for scenario stamped with a new id and the current time.
func Start(scenario string) Run {
	return Run{
		ID:        uuid.NewString(),
		Scenario:  scenario,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the end time and the outcome of err.
func (r *Run) Finish(err error) {
	r.FinishedAt = time.Now().UTC()
	if err != nil {
		r.Outcome = OutcomeError
		r.Error = err.Error()
		return
	}
	r.Outcome = OutcomeOK
}

// Duration is the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Recorder persists runs.
type Recorder interface {
	Record(ctx context.Context, run Run) error
	List(ctx context.Context, scenario string, limit int) ([]Run, error)
	Ping(ctx context.Context) error
}

// Nop discards runs.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) Record(context.Context, Run) error               { return nil }
func (Nop) List(context.Context, string, int) ([]Run, error) { return nil, nil }
func (Nop) Ping(context.Context) error                       { return nil }
