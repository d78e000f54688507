package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/logging"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/metrics"
)

// AccountStream is a live accountSubscribe stream.
type AccountStream interface {
	Recv(ctx context.Context) (*ws.AccountResult, error)
	Unsubscribe()
}

// AccountSubscriber opens account streams.
type AccountSubscriber interface {
	AccountSubscribe(account sol.PublicKey, commitment rpc.CommitmentType) (AccountStream, error)
}

type wsSubscriber struct{ c *ws.Client }

func (s wsSubscriber) AccountSubscribe(account sol.PublicKey, commitment rpc.CommitmentType) (AccountStream, error) {
	sub, err := s.c.AccountSubscribe(account, commitment)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Dial connects to a pubsub endpoint. The returned func closes the socket.
func Dial(ctx context.Context, wsURL string) (AccountSubscriber, func(), error) {
	c, err := ws.Connect(ctx, wsURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", wsURL, err)
	}
	return wsSubscriber{c: c}, c.Close, nil
}

type registration struct {
	stream  AccountStream
	cancel  context.CancelFunc
	removed atomic.Bool
}

// AccountRegistrar registers listeners for changes to one account. Every
// registration owns its own stream.
type AccountRegistrar struct {
	sub        AccountSubscriber
	account    sol.PublicKey
	commitment rpc.CommitmentType
	log        *zap.SugaredLogger
	metrics    *metrics.Metrics

	mu     sync.Mutex
	nextID ID
	live   map[ID]*registration
}

var _ Registrar = (*AccountRegistrar)(nil)

// NewAccountRegistrar watches account at commitment through sub.
func NewAccountRegistrar(sub AccountSubscriber, account sol.PublicKey, commitment rpc.CommitmentType, log *zap.SugaredLogger, m *metrics.Metrics) *AccountRegistrar {
	return &AccountRegistrar{
		sub:        sub,
		account:    account,
		commitment: commitment,
		log:        logging.OrNop(log),
		metrics:    m,
		live:       make(map[ID]*registration),
	}
}

// Register opens a stream and calls fn for each change until the id is
// deregistered or ctx ends.
func (r *AccountRegistrar) Register(ctx context.Context, fn Listener) (ID, error) {
	stream, err := r.sub.AccountSubscribe(r.account, r.commitment)
	if err != nil {
		return 0, fmt.Errorf("account subscribe %s: %w", r.account, err)
	}

	pctx, cancel := context.WithCancel(ctx)
	reg := &registration{stream: stream, cancel: cancel}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.live[id] = reg
	r.mu.Unlock()

	r.log.Debugw("subscribe", "account", r.account, "id", id)
	go r.pump(pctx, id, reg, fn)
	return id, nil
}

func (r *AccountRegistrar) pump(ctx context.Context, id ID, reg *registration, fn Listener) {
	for {
		res, err := reg.stream.Recv(ctx)
		if reg.removed.Load() {
			return
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) && ctx.Err() == nil {
				r.log.Warnw("subscription_closed", "account", r.account, "id", id, "err", err)
			}
			// the stream is still open server side unless we unsubscribe
			if dropped := r.drop(id); dropped != nil {
				dropped.cancel()
				dropped.stream.Unsubscribe()
			}
			return
		}
		if res == nil {
			continue
		}
		r.metrics.ObserveNotification()
		fn(toNotification(r.account, res))
	}
}

// toNotification maps a pubsub result. A null value (the account was
// closed) yields zeroed account fields.
func toNotification(account sol.PublicKey, res *ws.AccountResult) Notification {
	n := Notification{Account: account, Slot: res.Context.Slot}
	if res.Value == nil {
		return n
	}
	n.Lamports = res.Value.Lamports
	n.Owner = res.Value.Owner
	n.Executable = res.Value.Executable
	if res.Value.Data != nil {
		n.DataLen = len(res.Value.Data.GetBinary())
	}
	return n
}

func (r *AccountRegistrar) drop(id ID) *registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.live[id]
	if !ok {
		return nil
	}
	delete(r.live, id)
	reg.removed.Store(true)
	return reg
}

// Deregister stops callbacks for id. It is safe to call from inside the
// listener. A second call for the same id returns ErrUnknownSubscription.
func (r *AccountRegistrar) Deregister(id ID) error {
	reg := r.drop(id)
	if reg == nil {
		return fmt.Errorf("id %d: %w", id, ErrUnknownSubscription)
	}
	reg.cancel()
	reg.stream.Unsubscribe()
	r.log.Debugw("unsubscribe", "account", r.account, "id", id)
	return nil
}

// Live returns the number of active registrations.
func (r *AccountRegistrar) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close deregisters everything.
func (r *AccountRegistrar) Close() {
	r.mu.Lock()
	ids := make([]ID, 0, len(r.live))
	for id := range r.live {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		_ = r.Deregister(id)
	}
}
