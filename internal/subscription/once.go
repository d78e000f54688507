package subscription

import (
	"context"
	"sync"
)

type once struct {
	inner Registrar
}

// Once wraps r so every registration removes itself after its first event.
// The wrapped listener runs at most once per registration.
func Once(r Registrar) Registrar { return &once{inner: r} }

func (o *once) Register(ctx context.Context, fn Listener) (ID, error) {
	var fired sync.Once
	idCh := make(chan ID, 1)

	id, err := o.inner.Register(ctx, func(n Notification) {
		fired.Do(func() {
			fn(n)
			select {
			case id := <-idCh:
				// ErrUnknownSubscription here means the caller got there first.
				_ = o.inner.Deregister(id)
			case <-ctx.Done():
			}
		})
	})
	if err != nil {
		return 0, err
	}
	idCh <- id
	return id, nil
}

func (o *once) Deregister(id ID) error { return o.inner.Deregister(id) }
