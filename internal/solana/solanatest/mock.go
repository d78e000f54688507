// Package solanatest provides an in-memory RPC double for probe tests.
package solanatest

import (
	"context"
	"crypto/rand"
	"sync"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	solana "github.com/magicblock-labs/ephemeral-conjunto/internal/solana"
)

// Airdrop is one recorded requestAirdrop call.
type Airdrop struct {
	Account    sol.PublicKey
	Lamports   uint64
	Commitment rpc.CommitmentType
	Signature  sol.Signature
}

// Sent is one recorded sendTransaction call.
type Sent struct {
	Tx   *sol.Transaction
	Opts rpc.TransactionOpts
}

// MockRPC is a configurable, concurrency-safe solana.RPC.
type MockRPC struct {
	mu sync.Mutex

	Blockhash            sol.Hash
	LastValidBlockHeight uint64
	BlockHeight          uint64
	// BlockHeightStep is added to BlockHeight after every getBlockHeight call.
	BlockHeightStep uint64
	Health          string

	// Statuses are served in order per signature; the last one repeats.
	Statuses map[sol.Signature][]*rpc.SignatureStatusesResult
	// DefaultStatus answers signatures without an entry in Statuses. Nil
	// means "not found yet".
	DefaultStatus *rpc.SignatureStatusesResult
	Balances      map[sol.PublicKey]uint64

	AirdropErr   error
	BlockhashErr error
	StatusErr    error
	HeightErr    error
	SendErr      error
	BalanceErr   error
	HealthErr    error

	Airdrops   []Airdrop
	SentTxs    []Sent
	CallCounts map[string]int
}

var _ solana.RPC = (*MockRPC)(nil)

// NewMockRPC returns a mock that confirms everything immediately.
func NewMockRPC() *MockRPC {
	var h sol.Hash
	_, _ = rand.Read(h[:])
	return &MockRPC{
		Blockhash:            h,
		LastValidBlockHeight: 300,
		BlockHeight:          150,
		Health:               rpc.HealthOk,
		Statuses:             make(map[sol.Signature][]*rpc.SignatureStatusesResult),
		DefaultStatus:        &rpc.SignatureStatusesResult{Slot: 1, ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		Balances:             make(map[sol.PublicKey]uint64),
		CallCounts:           make(map[string]int),
	}
}

// RandomSignature returns 64 random bytes as a signature.
func RandomSignature() sol.Signature {
	var s sol.Signature
	_, _ = rand.Read(s[:])
	return s
}

func (m *MockRPC) count(method string) {
	m.CallCounts[method]++
}

// Calls returns how many times method was invoked.
func (m *MockRPC) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCounts[method]
}

// AirdropLog returns a copy of the recorded airdrops.
func (m *MockRPC) AirdropLog() []Airdrop {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Airdrop(nil), m.Airdrops...)
}

// SentLog returns a copy of the recorded transactions.
func (m *MockRPC) SentLog() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sent(nil), m.SentTxs...)
}

// SetHealth changes the getHealth answer.
func (m *MockRPC) SetHealth(status string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Health = status
	m.HealthErr = err
}

// SetStatuses replaces the status sequence for sig.
func (m *MockRPC) SetStatuses(sig sol.Signature, statuses ...*rpc.SignatureStatusesResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statuses[sig] = statuses
}

func (m *MockRPC) RequestAirdrop(_ context.Context, account sol.PublicKey, lamports uint64, commitment rpc.CommitmentType) (sol.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("requestAirdrop")
	if m.AirdropErr != nil {
		return sol.Signature{}, m.AirdropErr
	}
	sig := RandomSignature()
	m.Airdrops = append(m.Airdrops, Airdrop{Account: account, Lamports: lamports, Commitment: commitment, Signature: sig})
	m.Balances[account] += lamports
	return sig, nil
}

func (m *MockRPC) GetLatestBlockhash(_ context.Context, _ rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("getLatestBlockhash")
	if m.BlockhashErr != nil {
		return nil, m.BlockhashErr
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            m.Blockhash,
			LastValidBlockHeight: m.LastValidBlockHeight,
		},
	}, nil
}

func (m *MockRPC) GetSignatureStatuses(_ context.Context, _ bool, sigs ...sol.Signature) (*rpc.GetSignatureStatusesResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("getSignatureStatuses")
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	out := &rpc.GetSignatureStatusesResult{Value: make([]*rpc.SignatureStatusesResult, len(sigs))}
	for i, sig := range sigs {
		seq, ok := m.Statuses[sig]
		if !ok {
			out.Value[i] = m.DefaultStatus
			continue
		}
		if len(seq) == 0 {
			continue
		}
		out.Value[i] = seq[0]
		if len(seq) > 1 {
			m.Statuses[sig] = seq[1:]
		}
	}
	return out, nil
}

func (m *MockRPC) GetBlockHeight(_ context.Context, _ rpc.CommitmentType) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("getBlockHeight")
	if m.HeightErr != nil {
		return 0, m.HeightErr
	}
	h := m.BlockHeight
	m.BlockHeight += m.BlockHeightStep
	return h, nil
}

func (m *MockRPC) SendTransactionWithOpts(_ context.Context, tx *sol.Transaction, opts rpc.TransactionOpts) (sol.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("sendTransaction")
	if m.SendErr != nil {
		return sol.Signature{}, m.SendErr
	}
	m.SentTxs = append(m.SentTxs, Sent{Tx: tx, Opts: opts})
	if len(tx.Signatures) > 0 {
		return tx.Signatures[0], nil
	}
	return RandomSignature(), nil
}

func (m *MockRPC) GetBalance(_ context.Context, account sol.PublicKey, _ rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("getBalance")
	if m.BalanceErr != nil {
		return nil, m.BalanceErr
	}
	return &rpc.GetBalanceResult{Value: m.Balances[account]}, nil
}

func (m *MockRPC) GetHealth(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("getHealth")
	if m.HealthErr != nil {
		return "", m.HealthErr
	}
	return m.Health, nil
}

// Connection wraps m in a solana.Connection named name.
func (m *MockRPC) Connection(name string) *solana.Connection {
	return solana.NewConnectionWithRPC(name, "http://127.0.0.1:8899", rpc.CommitmentConfirmed, m)
}
