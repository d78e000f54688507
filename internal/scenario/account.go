package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sol "github.com/gagliardetto/solana-go"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/report"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/subscription"
)

var ErrNoNotification = errors.New("no account change observed")

// Watch is a live one-shot account subscription.
type Watch struct {
	ID subscription.ID
	// Notifications delivers the single change, then closes. It closes
	// without a value if the watch ends first.
	Notifications <-chan subscription.Notification

	cancel context.CancelFunc
	done   chan struct{}
}

// Stop ends the watch and waits for it to release the socket.
func (w *Watch) Stop() {
	w.cancel()
	<-w.done
}

// Done is closed once the watch has ended.
func (w *Watch) Done() <-chan struct{} { return w.done }

// AccountSubscription subscribes to account through the proxy. The first
// change is logged and delivered, then the listener removes itself. With no
// change the subscription stays open until ctx ends or Stop is called.
func (r *Runner) AccountSubscription(ctx context.Context, account sol.PublicKey) (*Watch, error) {
	log := r.log()
	run := report.Start(AccountSubscriptionName)
	run.Endpoint = r.Proxy.WSEndpoint
	run.Recipient = account.String()

	sub, closeWS, err := r.dial()(ctx, r.Proxy.WSEndpoint)
	if err != nil {
		r.record(&run, err)
		return nil, err
	}

	reg := subscription.NewAccountRegistrar(sub, account, r.Proxy.Commitment, log, r.Metrics)
	wctx, cancel := context.WithCancel(ctx)
	out := make(chan subscription.Notification, 1)
	fired := make(chan struct{})
	var fire sync.Once

	id, err := subscription.Once(reg).Register(wctx, func(n subscription.Notification) {
		log.Infow("account_changed",
			"account", n.Account,
			"slot", n.Slot,
			"lamports", n.Lamports,
			"owner", n.Owner,
			"data_len", n.DataLen,
			"executable", n.Executable,
		)
		fire.Do(func() {
			out <- n
			close(fired)
		})
	})
	if err != nil {
		cancel()
		closeWS()
		r.record(&run, err)
		return nil, err
	}
	log.Infow("account_subscribed", "account", account, "endpoint", r.Proxy.WSEndpoint, "id", id)

	w := &Watch{ID: id, Notifications: out, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		select {
		case <-fired:
		case <-wctx.Done():
		}
		var werr error
		fire.Do(func() {
			werr = fmt.Errorf("%w: %v", ErrNoNotification, context.Cause(wctx))
		})
		close(out)
		cancel()
		reg.Close()
		closeWS()
		r.record(&run, werr)
	}()
	return w, nil
}
