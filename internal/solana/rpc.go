package solana

import (
	"context"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPC is the subset of the JSON-RPC client the probes call. *rpc.Client
// satisfies it.
type RPC interface {
	RequestAirdrop(ctx context.Context, account sol.PublicKey, lamports uint64, commitment rpc.CommitmentType) (sol.Signature, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...sol.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	SendTransactionWithOpts(ctx context.Context, transaction *sol.Transaction, opts rpc.TransactionOpts) (sol.Signature, error)
	GetBalance(ctx context.Context, account sol.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetHealth(ctx context.Context) (string, error)
}

var _ RPC = (*rpc.Client)(nil)
