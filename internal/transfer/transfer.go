// Package transfer builds, signs, decodes and submits native system-program
// transfers.
package transfer

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/logging"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/metrics"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/solana"
)

var (
	ErrNotSingleTransfer = errors.New("message is not a single system transfer")
	ErrMissingSigner     = errors.New("no key for required signer")
)

// Transfer is the decoded content of a transfer transaction.
type Transfer struct {
	From     sol.PublicKey
	To       sol.PublicKey
	Lamports uint64
}

// Build compiles a v0 message with one transfer of lamports from -> to. The
// sender pays the fee.
func Build(from, to sol.PublicKey, lamports uint64, blockhash sol.Hash) (*sol.Transaction, error) {
	ix := system.NewTransferInstruction(lamports, from, to).Build()
	tx, err := sol.NewTransaction([]sol.Instruction{ix}, blockhash, sol.TransactionPayer(from))
	if err != nil {
		return nil, fmt.Errorf("compile transfer: %w", err)
	}
	tx.Message.SetVersion(sol.MessageVersionV0)
	return tx, nil
}

// Sign signs tx in place with whichever of keys the message requires.
func Sign(tx *sol.Transaction, keys ...sol.PrivateKey) error {
	_, err := tx.Sign(func(pk sol.PublicKey) *sol.PrivateKey {
		for i := range keys {
			if keys[i].PublicKey().Equals(pk) {
				return &keys[i]
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingSigner, err)
	}
	return nil
}

// Decode returns the single system transfer carried by tx.
func Decode(tx *sol.Transaction) (Transfer, error) {
	if tx == nil || len(tx.Message.Instructions) != 1 {
		return Transfer{}, ErrNotSingleTransfer
	}
	keys := tx.Message.AccountKeys
	ci := tx.Message.Instructions[0]
	if int(ci.ProgramIDIndex) >= len(keys) || !keys[ci.ProgramIDIndex].Equals(sol.SystemProgramID) {
		return Transfer{}, fmt.Errorf("program index %d: %w", ci.ProgramIDIndex, ErrNotSingleTransfer)
	}

	metas := make([]*sol.AccountMeta, 0, len(ci.Accounts))
	for _, idx := range ci.Accounts {
		if int(idx) >= len(keys) {
			return Transfer{}, fmt.Errorf("account index %d out of range: %w", idx, ErrNotSingleTransfer)
		}
		metas = append(metas, sol.Meta(keys[idx]))
	}
	inst, err := system.DecodeInstruction(metas, ci.Data)
	if err != nil {
		return Transfer{}, fmt.Errorf("decode system instruction: %w", err)
	}
	t, ok := inst.Impl.(*system.Transfer)
	if !ok || t.Lamports == nil {
		return Transfer{}, ErrNotSingleTransfer
	}
	return Transfer{
		From:     t.GetFundingAccount().PublicKey,
		To:       t.GetRecipientAccount().PublicKey,
		Lamports: *t.Lamports,
	}, nil
}

// Marshal encodes tx in wire format.
func Marshal(tx *sol.Transaction) ([]byte, error) {
	return tx.MarshalBinary()
}

// Unmarshal decodes a wire-format transaction, legacy or versioned.
func Unmarshal(data []byte) (*sol.Transaction, error) {
	tx, err := sol.TransactionFromDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}

// Submitter sends signed transactions.
type Submitter struct {
	Log     *zap.SugaredLogger
	Metrics *metrics.Metrics
}

var defaultSubmitter = &Submitter{}

// Submit sends tx through conn. With skipPreflight the node forwards the
// transaction without simulating it first.
func Submit(ctx context.Context, conn *solana.Connection, tx *sol.Transaction, skipPreflight bool) (sol.Signature, error) {
	return defaultSubmitter.Submit(ctx, conn, tx, skipPreflight)
}

func (s *Submitter) Submit(ctx context.Context, conn *solana.Connection, tx *sol.Transaction, skipPreflight bool) (sol.Signature, error) {
	log := logging.OrNop(s.Log)
	sig, err := conn.RPC.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       skipPreflight,
		PreflightCommitment: conn.Commitment,
	})
	s.Metrics.ObserveSend(conn.Name, err)
	if err != nil {
		log.Warnw("send_transaction", "endpoint", conn.Endpoint, "skip_preflight", skipPreflight, "err", err)
		return sol.Signature{}, fmt.Errorf("%s: send transaction: %w", conn.Name, err)
	}
	log.Infow("send_transaction", "endpoint", conn.Endpoint, "skip_preflight", skipPreflight, "signature", sig)
	return sig, nil
}
