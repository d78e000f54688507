package types

import (
	"time"

	sol "github.com/gagliardetto/solana-go"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/report"
)

// FundRequest lists addresses to airdrop to.
type FundRequest struct {
	Addresses []string `json:"addresses"`
	// Lamports overrides the configured airdrop size when non-zero.
	Lamports uint64 `json:"lamports,omitempty"`
}

// FundEntry is one confirmed airdrop.
type FundEntry struct {
	Address   string  `json:"address"`
	Signature string  `json:"signature"`
	Lamports  uint64  `json:"lamports"`
	Sol       float64 `json:"sol"`
	FundedAt  string  `json:"funded_at"` // RFC3339
}

// ErrorEntry captures a per-address failure.
type ErrorEntry struct {
	Address string `json:"address"`
	Error   string `json:"error"`
}

// FundResponse is the JSON response for the fund endpoint.
type FundResponse struct {
	Funded []FundEntry  `json:"funded"`
	Errors []ErrorEntry `json:"errors"`
	Total  uint64       `json:"total_lamports"`
}

// BalanceRequest lists addresses to read.
type BalanceRequest struct {
	Addresses []string `json:"addresses"`
}

// BalanceEntry is one account balance.
type BalanceEntry struct {
	Address  string  `json:"address"`
	Lamports uint64  `json:"lamports"`
	Sol      float64 `json:"sol"`
}

// BalanceResponse is the JSON response for the balances endpoint.
type BalanceResponse struct {
	Endpoint string         `json:"endpoint"`
	Balances []BalanceEntry `json:"balances"`
	Errors   []ErrorEntry   `json:"errors"`
}

// TransferRequest runs the system transfer scenario. Unset fields fall back
// to the server configuration.
type TransferRequest struct {
	To              string `json:"to,omitempty"`
	Lamports        uint64 `json:"lamports,omitempty"`
	BlockhashSource string `json:"blockhash_source,omitempty"`
	Confirm         *bool  `json:"confirm,omitempty"`
	SkipPreflight   *bool  `json:"skip_preflight,omitempty"`
}

// TransferResponse describes the submitted transfer.
type TransferResponse struct {
	RunID           string   `json:"run_id"`
	Signature       string   `json:"signature"`
	Payer           string   `json:"payer"`
	To              string   `json:"to"`
	Lamports        uint64   `json:"lamports"`
	Blockhash       string   `json:"blockhash"`
	BlockhashSource string   `json:"blockhash_source"`
	Confirmed       bool     `json:"confirmed"`
	ConfirmMs       int64    `json:"confirm_ms,omitempty"`
	FundingSigs     []string `json:"funding_signatures,omitempty"`
}

// RunsResponse lists recorded scenario runs, newest first.
type RunsResponse struct {
	Runs []report.Run `json:"runs"`
}

// HealthResponse reports each dependency by name.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// LamportsToSol converts lamports to SOL as a float.
func LamportsToSol(l uint64) float64 { return float64(l) / float64(sol.LAMPORTS_PER_SOL) }

// NewFundEntry creates a FundEntry for a confirmed airdrop.
func NewFundEntry(address string, sig sol.Signature, lamports uint64, ts time.Time) FundEntry {
	return FundEntry{
		Address:   address,
		Signature: sig.String(),
		Lamports:  lamports,
		Sol:       LamportsToSol(lamports),
		FundedAt:  ts.UTC().Format(time.RFC3339),
	}
}

// SumLamports sums the lamports across entries.
func SumLamports(entries []FundEntry) uint64 {
	var total uint64
	for i := range entries {
		total += entries[i].Lamports
	}
	return total
}
