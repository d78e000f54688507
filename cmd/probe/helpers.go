package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	sol "github.com/gagliardetto/solana-go"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/addresses"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/config"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/report"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/scenario"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/subscription"
)

// sanitizePort returns a sensible default when empty.
func sanitizePort(p string) string {
	if p == "" {
		return "8080"
	}
	return strings.TrimPrefix(p, ":")
}

// resolveEndpoints lets cluster names (devnet, development, ...) stand in
// for RPC URLs.
func resolveEndpoints(cfg *config.Config) {
	if cfg.ProxyURL != "" {
		cfg.ProxyURL = addresses.Cluster(cfg.ProxyURL).URL()
	}
	if cfg.EphemURL != "" {
		cfg.EphemURL = addresses.Cluster(cfg.EphemURL).URL()
	}
}

// parseAddresses parses base58 keys, reporting every bad one.
func parseAddresses(args []string) ([]sol.PublicKey, error) {
	out := make([]sol.PublicKey, 0, len(args))
	var bad []string
	for _, a := range args {
		pk, err := sol.PublicKeyFromBase58(a)
		if err != nil {
			bad = append(bad, a)
			continue
		}
		out = append(out, pk)
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("invalid address: %s", strings.Join(bad, ", "))
	}
	return out, nil
}

// airdropHint is the command an operator runs to trigger an account change.
func airdropHint(endpoint string, pk sol.PublicKey) string {
	return fmt.Sprintf("solana airdrop -u '%s' 1 %s", endpoint, pk)
}

// openRecorder connects the Mongo run store when MONGO_URI is set.
func openRecorder(ctx context.Context, cfg config.Config) (report.Recorder, func(), error) {
	if cfg.MongoURI == "" {
		return report.Nop{}, func() {}, nil
	}
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store, disconnect, err := report.Connect(cctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = disconnect(context.Background()) }, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func notificationView(n subscription.Notification) map[string]interface{} {
	return map[string]interface{}{
		"account":    n.Account.String(),
		"slot":       n.Slot,
		"lamports":   n.Lamports,
		"owner":      n.Owner.String(),
		"data_len":   n.DataLen,
		"executable": n.Executable,
	}
}

func transferView(res *scenario.TransferResult) map[string]interface{} {
	v := map[string]interface{}{
		"run_id":           res.RunID,
		"payer":            res.Payer.String(),
		"to":               res.To.String(),
		"lamports":         res.Lamports,
		"blockhash_source": string(res.BlockhashSource),
		"confirmed":        res.Confirmed,
	}
	if res.Signature != (sol.Signature{}) {
		v["signature"] = res.Signature.String()
	}
	if res.Blockhash != (sol.Hash{}) {
		v["blockhash"] = res.Blockhash.String()
	}
	return v
}
