package funding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/confirm"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/funding"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/metrics"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/solana/solanatest"
)

func TestFundAccount_OneSolConfirmed(t *testing.T) {
	m := solanatest.NewMockRPC()
	conn := m.Connection("ephemeral")
	pk := sol.NewWallet().PublicKey()

	sig, err := funding.FundAccount(context.Background(), conn, pk)
	require.NoError(t, err)
	require.NotEqual(t, sol.Signature{}, sig)

	drops := m.AirdropLog()
	require.Len(t, drops, 1)
	require.Equal(t, pk, drops[0].Account)
	require.Equal(t, uint64(1_000_000_000), drops[0].Lamports)
	require.Equal(t, rpc.CommitmentConfirmed, drops[0].Commitment)
	require.Equal(t, drops[0].Signature, sig)
	require.Equal(t, 1, m.Calls("getLatestBlockhash"))

	bal, err := conn.Balance(context.Background(), pk)
	require.NoError(t, err)
	require.Equal(t, sol.LAMPORTS_PER_SOL, bal)
}

func TestFundAccount_WaitsUntilConfirmed(t *testing.T) {
	m := solanatest.NewMockRPC()
	m.DefaultStatus = nil
	conn := m.Connection("ephemeral")

	f := &funding.Funder{PollInterval: time.Millisecond}
	done := make(chan error, 1)
	go func() {
		_, err := f.Fund(context.Background(), conn, sol.NewWallet().PublicKey(), 10)
		done <- err
	}()

	require.Eventually(t, func() bool { return m.Calls("getSignatureStatuses") >= 3 }, time.Second, time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("returned before confirmation: %v", err)
	default:
	}

	drops := m.AirdropLog()
	require.Len(t, drops, 1)
	m.SetStatuses(drops[0].Signature, &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusFinalized})
	require.NoError(t, <-done)
}

func TestFundAccount_ZeroLamportsPassThrough(t *testing.T) {
	m := solanatest.NewMockRPC()
	_, err := funding.FundAccountLamports(context.Background(), m.Connection("ephemeral"), sol.NewWallet().PublicKey(), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), m.AirdropLog()[0].Lamports)

	m.AirdropErr = &jsonrpc.RPCError{Code: -32602, Message: "Invalid params: lamports must be positive"}
	_, err = funding.FundAccountLamports(context.Background(), m.Connection("ephemeral"), sol.NewWallet().PublicKey(), 0)
	var rpcErr *jsonrpc.RPCError
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, -32602, rpcErr.Code)
}

func TestFundAccount_AirdropErrorNoRetry(t *testing.T) {
	m := solanatest.NewMockRPC()
	m.AirdropErr = errors.New("rate limited")
	reg := metrics.New()
	f := &funding.Funder{Metrics: reg}

	_, err := f.Fund(context.Background(), m.Connection("ephemeral"), sol.NewWallet().PublicKey(), 1)
	require.ErrorIs(t, err, m.AirdropErr)
	require.Equal(t, 1, m.Calls("requestAirdrop"))
	require.Zero(t, m.Calls("getLatestBlockhash"))
	require.Equal(t, 1.0, testutil.ToFloat64(reg.Airdrops.WithLabelValues("ephemeral", metrics.OutcomeError)))
}

func TestFundAccount_ConfirmTimeout(t *testing.T) {
	m := solanatest.NewMockRPC()
	m.DefaultStatus = nil
	m.BlockHeight = 301

	_, err := (&funding.Funder{PollInterval: time.Millisecond}).Fund(context.Background(), m.Connection("ephemeral"), sol.NewWallet().PublicKey(), 1)
	require.ErrorIs(t, err, confirm.ErrBlockHeightExceeded)
}

func TestFundAccount_BlockhashError(t *testing.T) {
	m := solanatest.NewMockRPC()
	m.BlockhashErr = errors.New("unavailable")
	_, err := funding.FundAccount(context.Background(), m.Connection("ephemeral"), sol.NewWallet().PublicKey())
	require.ErrorIs(t, err, m.BlockhashErr)
}

func TestFund_LogsAirdrop(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := solanatest.NewMockRPC()
	f := &funding.Funder{Log: zap.New(core).Sugar()}

	_, err := f.Fund(context.Background(), m.Connection("ephemeral"), sol.NewWallet().PublicKey(), 5)
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("airdrop").Len())
}
