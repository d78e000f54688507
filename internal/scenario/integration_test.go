package scenario_test

import (
	"context"
	"testing"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/addresses"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/config"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/funding"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/scenario"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/solana"
)

// liveRunner targets the validators named by the environment and skips when
// either is not answering.
func liveRunner(t *testing.T) (*scenario.Runner, config.Config) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping live validator test in -short mode")
	}
	cfg := config.Load()
	r := scenario.NewRunner(cfg, zaptest.NewLogger(t).Sugar(), nil, nil)
	for _, c := range []*solana.Connection{r.Proxy, r.Ephem} {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := solana.WaitHealthy(ctx, c, 1, 0)
		cancel()
		if err != nil {
			t.Skipf("skipping: %s unreachable: %v", c, err)
		}
	}
	return r, cfg
}

func TestLive_FundAccountAddsOneSol(t *testing.T) {
	r, _ := liveRunner(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pk := sol.NewWallet().PublicKey()
	before, err := r.Ephem.Balance(ctx, pk)
	require.NoError(t, err)

	sig, err := funding.FundAccount(ctx, r.Ephem, pk)
	require.NoError(t, err)
	require.NotEqual(t, sol.Signature{}, sig)

	after, err := r.Ephem.Balance(ctx, pk)
	require.NoError(t, err)
	require.Equal(t, before+sol.LAMPORTS_PER_SOL, after)
}

func TestLive_SystemTransfer(t *testing.T) {
	r, cfg := liveRunner(t)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	res, err := r.SystemTransfer(ctx, scenario.TransferOptionsFromConfig(cfg))
	require.NoError(t, err)
	require.Len(t, res.Signature[:], 64)
	_, err = sol.SignatureFromBase58(res.Signature.String())
	require.NoError(t, err)
	require.Equal(t, cfg.ConfirmAfterSend, res.Confirmed)
}

func TestLive_AccountSubscriptionFiresOnce(t *testing.T) {
	r, cfg := liveRunner(t)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	w, err := r.AccountSubscription(ctx, addresses.SubjectPubkey)
	require.NoError(t, err)
	defer w.Stop()

	_, err = funding.FundAccount(ctx, r.Ephem, addresses.SubjectPubkey)
	require.NoError(t, err)

	select {
	case n, ok := <-w.Notifications:
		require.True(t, ok)
		require.Equal(t, addresses.SubjectPubkey, n.Account)
	case <-ctx.Done():
		t.Fatal("no account change observed")
	}

	// a second change inside the watch window produces nothing
	_, err = funding.FundAccount(ctx, r.Ephem, addresses.SubjectPubkey)
	require.NoError(t, err)
	select {
	case n, ok := <-w.Notifications:
		require.False(t, ok, "unexpected second notification at slot %d", n.Slot)
	case <-time.After(cfg.WatchWindow):
	}
}
