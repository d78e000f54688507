// Package subscriptiontest provides an in-memory pubsub double.
package subscriptiontest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/subscription"
)

var ErrStreamClosed = errors.New("subscription closed")

// Stream is a channel-fed account stream.
type Stream struct {
	events       chan *ws.AccountResult
	errs         chan error
	done         chan struct{}
	closeOnce    sync.Once
	unsubscribed atomic.Int32
}

func NewStream() *Stream {
	return &Stream{
		events: make(chan *ws.AccountResult, 16),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (s *Stream) Recv(ctx context.Context) (*ws.AccountResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrStreamClosed
	case err := <-s.errs:
		return nil, err
	case ev := <-s.events:
		return ev, nil
	}
}

func (s *Stream) Unsubscribe() {
	s.unsubscribed.Add(1)
	s.closeOnce.Do(func() { close(s.done) })
}

// Push queues an account change.
func (s *Stream) Push(slot, lamports uint64) {
	res := &ws.AccountResult{}
	res.Context.Slot = slot
	res.Value = &rpc.Account{Lamports: lamports}
	s.events <- res
}

// PushResult queues res as is, including results without a value.
func (s *Stream) PushResult(res *ws.AccountResult) { s.events <- res }

// Fail makes the next Recv return err.
func (s *Stream) Fail(err error) { s.errs <- err }

// Unsubscribed reports how many times Unsubscribe was called.
func (s *Stream) Unsubscribed() int { return int(s.unsubscribed.Load()) }

// Subscriber hands out a fresh Stream per AccountSubscribe.
type Subscriber struct {
	// Err fails AccountSubscribe.
	Err error
	// Prefill changes are queued on every new stream before it is returned.
	Prefill int

	mu       sync.Mutex
	streams  []*Stream
	accounts []sol.PublicKey
	dialed   []string
	closed   int
}

var _ subscription.AccountSubscriber = (*Subscriber)(nil)

func (f *Subscriber) AccountSubscribe(account sol.PublicKey, _ rpc.CommitmentType) (subscription.AccountStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	s := NewStream()
	for i := 0; i < f.Prefill; i++ {
		s.Push(uint64(i+1), sol.LAMPORTS_PER_SOL)
	}
	f.streams = append(f.streams, s)
	f.accounts = append(f.accounts, account)
	return s, nil
}

// Stream returns the i-th opened stream.
func (f *Subscriber) Stream(i int) *Stream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[i]
}

// Streams returns how many streams were opened.
func (f *Subscriber) Streams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

// Accounts returns the subscribed accounts in order.
func (f *Subscriber) Accounts() []sol.PublicKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sol.PublicKey(nil), f.accounts...)
}

// Dial has the shape of subscription.Dial and records the url.
func (f *Subscriber) Dial(_ context.Context, url string) (subscription.AccountSubscriber, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialed = append(f.dialed, url)
	return f, func() {
		f.mu.Lock()
		f.closed++
		f.mu.Unlock()
	}, nil
}

// Dialed returns the urls passed to Dial.
func (f *Subscriber) Dialed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dialed...)
}

// Closed returns how many dialed connections were closed.
func (f *Subscriber) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
