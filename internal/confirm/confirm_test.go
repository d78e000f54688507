package confirm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/confirm"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/solana/solanatest"
)

func status(s rpc.ConfirmationStatusType) *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{Slot: 10, ConfirmationStatus: s}
}

func TestSatisfies(t *testing.T) {
	tt := []struct {
		have rpc.ConfirmationStatusType
		want rpc.CommitmentType
		ok   bool
	}{
		{rpc.ConfirmationStatusProcessed, rpc.CommitmentConfirmed, false},
		{rpc.ConfirmationStatusConfirmed, rpc.CommitmentConfirmed, true},
		{rpc.ConfirmationStatusFinalized, rpc.CommitmentConfirmed, true},
		{rpc.ConfirmationStatusConfirmed, rpc.CommitmentFinalized, false},
		{rpc.ConfirmationStatusProcessed, rpc.CommitmentProcessed, true},
		{"", rpc.CommitmentProcessed, false},
	}
	for _, tc := range tt {
		require.Equal(t, tc.ok, confirm.Satisfies(tc.have, tc.want), "%s vs %s", tc.have, tc.want)
	}
}

func TestTransaction_WaitsForCommitment(t *testing.T) {
	m := solanatest.NewMockRPC()
	sig := solanatest.RandomSignature()
	m.SetStatuses(sig, nil, status(rpc.ConfirmationStatusProcessed), status(rpc.ConfirmationStatusConfirmed))

	err := confirm.Transaction(context.Background(), m, sig, 300, rpc.CommitmentConfirmed,
		confirm.WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, 3, m.Calls("getSignatureStatuses"))
	require.Equal(t, 2, m.Calls("getBlockHeight"))
}

func TestTransaction_TxError(t *testing.T) {
	m := solanatest.NewMockRPC()
	sig := solanatest.RandomSignature()
	m.SetStatuses(sig, &rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
		Err:                map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
	})

	err := confirm.Transaction(context.Background(), m, sig, 300, rpc.CommitmentConfirmed,
		confirm.WithPollInterval(time.Millisecond))
	var txErr *confirm.TxError
	require.ErrorAs(t, err, &txErr)
	require.Equal(t, sig, txErr.Signature)
}

func TestTransaction_BlockHeightExceeded(t *testing.T) {
	m := solanatest.NewMockRPC()
	sig := solanatest.RandomSignature()
	m.SetStatuses(sig, nil)
	m.BlockHeight = 298
	m.BlockHeightStep = 1

	err := confirm.Transaction(context.Background(), m, sig, 300, rpc.CommitmentConfirmed,
		confirm.WithPollInterval(time.Millisecond))
	require.ErrorIs(t, err, confirm.ErrBlockHeightExceeded)
}

func TestTransaction_PropagatesRPCErrors(t *testing.T) {
	m := solanatest.NewMockRPC()
	m.StatusErr = errors.New("connection refused")
	err := confirm.Transaction(context.Background(), m, solanatest.RandomSignature(), 300, rpc.CommitmentConfirmed)
	require.ErrorIs(t, err, m.StatusErr)

	m = solanatest.NewMockRPC()
	m.DefaultStatus = nil
	m.HeightErr = errors.New("height unavailable")
	err = confirm.Transaction(context.Background(), m, solanatest.RandomSignature(), 300, rpc.CommitmentConfirmed)
	require.ErrorIs(t, err, m.HeightErr)
}

func TestTransaction_ContextCancel(t *testing.T) {
	m := solanatest.NewMockRPC()
	m.DefaultStatus = nil
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := confirm.Transaction(ctx, m, solanatest.RandomSignature(), 1_000_000, rpc.CommitmentConfirmed,
		confirm.WithPollInterval(5*time.Millisecond))
	require.Error(t, err)
}
