package subscription

import (
	"context"
	"errors"

	sol "github.com/gagliardetto/solana-go"
)

// ErrUnknownSubscription is returned when deregistering an id that is not
// (or no longer) registered.
var ErrUnknownSubscription = errors.New("unknown subscription")

// ID identifies one registration. Zero is never issued.
type ID uint64

// Notification is one observed account state.
type Notification struct {
	Account    sol.PublicKey
	Slot       uint64
	Lamports   uint64
	Owner      sol.PublicKey
	DataLen    int
	Executable bool
}

// Listener receives notifications on the registration's own goroutine.
type Listener func(Notification)

// Registrar is a persistent subscription capability.
type Registrar interface {
	Register(ctx context.Context, fn Listener) (ID, error)
	Deregister(id ID) error
}
