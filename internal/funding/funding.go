package funding

import (
	"context"
	"fmt"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/confirm"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/logging"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/metrics"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/solana"
)

// Funder airdrops native currency and waits for confirmation.
type Funder struct {
	Log          *zap.SugaredLogger
	Metrics      *metrics.Metrics
	PollInterval time.Duration
}

var defaultFunder = &Funder{}

// FundAccount airdrops one SOL to pubkey and returns the airdrop signature
// once conn reports it at its commitment.
func FundAccount(ctx context.Context, conn *solana.Connection, pubkey sol.PublicKey) (sol.Signature, error) {
	return defaultFunder.Fund(ctx, conn, pubkey, sol.LAMPORTS_PER_SOL)
}

// FundAccountLamports is FundAccount for an arbitrary amount. The amount is
// passed to the node unmodified, zero included.
func FundAccountLamports(ctx context.Context, conn *solana.Connection, pubkey sol.PublicKey, lamports uint64) (sol.Signature, error) {
	return defaultFunder.Fund(ctx, conn, pubkey, lamports)
}

// Fund requests the airdrop, reads the latest blockhash and waits for
// confirmation. Errors are returned wrapped, never retried.
func (f *Funder) Fund(ctx context.Context, conn *solana.Connection, pubkey sol.PublicKey, lamports uint64) (sol.Signature, error) {
	log := logging.OrNop(f.Log)

	sig, err := conn.RPC.RequestAirdrop(ctx, pubkey, lamports, conn.Commitment)
	f.Metrics.ObserveAirdrop(conn.Name, err)
	if err != nil {
		log.Warnw("airdrop", "endpoint", conn.Endpoint, "account", pubkey, "lamports", lamports, "err", err)
		return sol.Signature{}, fmt.Errorf("%s: request airdrop %d to %s: %w", conn.Name, lamports, pubkey, err)
	}

	bh, err := conn.LatestBlockhash(ctx)
	if err != nil {
		return sol.Signature{}, err
	}

	start := time.Now()
	err = confirm.Transaction(ctx, conn.RPC, sig, bh.LastValidBlockHeight, conn.Commitment,
		confirm.WithPollInterval(f.PollInterval))
	if err != nil {
		return sol.Signature{}, fmt.Errorf("%s: confirm airdrop %s: %w", conn.Name, sig, err)
	}
	f.Metrics.ObserveConfirmation(conn.Name, time.Since(start))

	log.Infow("airdrop",
		"endpoint", conn.Endpoint,
		"account", pubkey,
		"lamports", lamports,
		"signature", sig,
		"confirm_ms", time.Since(start).Milliseconds(),
	)
	return sig, nil
}
