package confirm

import (
	"context"
	"errors"
	"fmt"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"
)

// DefaultPollInterval is roughly one slot.
const DefaultPollInterval = 400 * time.Millisecond

// ErrBlockHeightExceeded means the blockhash expired before the signature
// reached the requested commitment.
var ErrBlockHeightExceeded = errors.New("block height exceeded")

// TxError carries the on-chain failure reported for a signature.
type TxError struct {
	Signature sol.Signature
	Err       interface{}
}

func (e *TxError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// StatusRPC is what confirmation needs from a node.
type StatusRPC interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...sol.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

type options struct {
	interval time.Duration
}

// Option tunes Transaction.
type Option func(*options)

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// Satisfies reports whether status is at least as final as commitment.
func Satisfies(status rpc.ConfirmationStatusType, commitment rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case "processed":
			return 1
		case "confirmed":
			return 2
		case "finalized":
			return 3
		}
		return 0
	}
	have := rank(string(status))
	return have > 0 && have >= rank(string(commitment))
}

// Transaction waits until sig reaches commitment, fails on chain, or the
// block height passes lastValidBlockHeight.
func Transaction(
	ctx context.Context,
	client StatusRPC,
	sig sol.Signature,
	lastValidBlockHeight uint64,
	commitment rpc.CommitmentType,
	opts ...Option,
) error {
	o := options{interval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}
	lim := rate.NewLimiter(rate.Every(o.interval), 1)

	for {
		if err := lim.Wait(ctx); err != nil {
			return fmt.Errorf("confirm %s: %w", sig, err)
		}

		res, err := client.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return fmt.Errorf("get signature status %s: %w", sig, err)
		}
		if res != nil && len(res.Value) > 0 && res.Value[0] != nil {
			st := res.Value[0]
			if st.Err != nil {
				return &TxError{Signature: sig, Err: st.Err}
			}
			if Satisfies(st.ConfirmationStatus, commitment) {
				return nil
			}
		}

		height, err := client.GetBlockHeight(ctx, commitment)
		if err != nil {
			return fmt.Errorf("get block height: %w", err)
		}
		if height > lastValidBlockHeight {
			return fmt.Errorf("signature %s at height %d (last valid %d): %w",
				sig, height, lastValidBlockHeight, ErrBlockHeightExceeded)
		}
	}
}
