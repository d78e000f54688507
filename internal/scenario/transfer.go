package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/addresses"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/config"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/confirm"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/funding"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/report"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/solana"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/transfer"
)

const defaultTransferLamports = 111

// TransferOptions tunes the system transfer scenario. The zero value sends
// 111 lamports to the delegated account with a blockhash from the ephemeral
// validator, preflight skipped, and waits for confirmation.
type TransferOptions struct {
	To              sol.PublicKey
	Lamports        uint64
	AirdropLamports uint64
	BlockhashSource config.BlockhashSource
	// Preflight lets the proxy simulate the transaction before forwarding.
	Preflight bool
	// NoConfirm returns right after submission.
	NoConfirm bool
}

// DefaultTransferOptions is the zero value with every default spelled out.
func DefaultTransferOptions() TransferOptions {
	return TransferOptions{}.withDefaults()
}

func (o TransferOptions) withDefaults() TransferOptions {
	if o.To.IsZero() {
		o.To = addresses.DelegatedPubkey
	}
	if o.Lamports == 0 {
		o.Lamports = defaultTransferLamports
	}
	if o.AirdropLamports == 0 {
		o.AirdropLamports = sol.LAMPORTS_PER_SOL
	}
	if o.BlockhashSource == "" {
		o.BlockhashSource = config.BlockhashFromEphem
	}
	return o
}

// TransferOptionsFromConfig applies cfg over the defaults.
func TransferOptionsFromConfig(cfg config.Config) TransferOptions {
	return TransferOptions{
		Lamports:        cfg.TransferLamports,
		AirdropLamports: cfg.AirdropLamports,
		BlockhashSource: cfg.BlockhashSource,
		Preflight:       !cfg.SkipPreflight,
		NoConfirm:       !cfg.ConfirmAfterSend,
	}.withDefaults()
}

// TransferResult describes a submitted transfer.
type TransferResult struct {
	RunID            string
	Payer            sol.PublicKey
	To               sol.PublicKey
	Lamports         uint64
	FundingSigs      []sol.Signature
	Blockhash        sol.Hash
	BlockhashSource  config.BlockhashSource
	Signature        sol.Signature
	Confirmed        bool
	ConfirmationTime time.Duration
}

func (r *Runner) blockhashConn(src config.BlockhashSource) *solana.Connection {
	if src == config.BlockhashFromProxy {
		return r.Proxy
	}
	return r.Ephem
}

// SystemTransfer funds a fresh payer and the recipient on the ephemeral
// validator, then sends a v0 transfer from the payer through the proxy.
func (r *Runner) SystemTransfer(ctx context.Context, opts TransferOptions) (res *TransferResult, err error) {
	log := r.log()
	opts = opts.withDefaults()

	run := report.Start(SystemTransferName)
	run.Endpoint = r.Proxy.Endpoint
	run.Recipient = opts.To.String()
	run.Lamports = opts.Lamports
	defer func() {
		if res != nil && res.Signature != (sol.Signature{}) {
			run.Signature = res.Signature.String()
		}
		r.record(&run, err)
	}()

	// 1. fresh payer
	payer, err := sol.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate payer: %w", err)
	}
	run.Payer = payer.PublicKey().String()
	res = &TransferResult{
		RunID:           run.ID,
		Payer:           payer.PublicKey(),
		To:              opts.To,
		Lamports:        opts.Lamports,
		BlockhashSource: opts.BlockhashSource,
	}

	// 2. both accounts must exist on the ephemeral validator
	funder := &funding.Funder{Log: log, Metrics: r.Metrics, PollInterval: r.PollInterval}
	sigs := make([]sol.Signature, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, pk := range []sol.PublicKey{opts.To, payer.PublicKey()} {
		i, pk := i, pk
		g.Go(func() error {
			sig, err := funder.Fund(gctx, r.Ephem, pk, opts.AirdropLamports)
			sigs[i] = sig
			return err
		})
	}
	if err = g.Wait(); err != nil {
		return res, fmt.Errorf("fund accounts: %w", err)
	}
	res.FundingSigs = sigs

	// 3. blockhash
	bhConn := r.blockhashConn(opts.BlockhashSource)
	if bhConn != r.Proxy {
		log.Warnw("blockhash_source_mismatch",
			"blockhash_endpoint", bhConn.Endpoint,
			"submit_endpoint", r.Proxy.Endpoint,
		)
	}
	bh, err := bhConn.LatestBlockhash(ctx)
	if err != nil {
		return res, err
	}
	res.Blockhash = bh.Blockhash

	// 4-5. build and sign
	tx, err := transfer.Build(payer.PublicKey(), opts.To, opts.Lamports, bh.Blockhash)
	if err != nil {
		return res, err
	}
	if err = transfer.Sign(tx, payer); err != nil {
		return res, err
	}

	// 6-7. submit
	submitter := &transfer.Submitter{Log: log, Metrics: r.Metrics}
	res.Signature, err = submitter.Submit(ctx, r.Proxy, tx, !opts.Preflight)
	if err != nil {
		return res, err
	}
	log.Infow("transfer_sent",
		"signature", res.Signature,
		"payer", res.Payer,
		"to", res.To,
		"lamports", res.Lamports,
		"blockhash", bh.Blockhash,
	)

	// 8. confirm
	if opts.NoConfirm {
		return res, nil
	}
	start := time.Now()
	err = confirm.Transaction(ctx, r.Proxy.RPC, res.Signature, bh.LastValidBlockHeight, r.Proxy.Commitment,
		confirm.WithPollInterval(r.PollInterval))
	if err != nil {
		if errors.Is(err, confirm.ErrBlockHeightExceeded) {
			bhConn.ForgetBlockhash()
		}
		return res, fmt.Errorf("%s: confirm transfer: %w", r.Proxy.Name, err)
	}
	res.Confirmed = true
	res.ConfirmationTime = time.Since(start)
	r.Metrics.ObserveConfirmation(r.Proxy.Name, res.ConfirmationTime)
	log.Infow("transfer_confirmed", "signature", res.Signature, "confirm_ms", res.ConfirmationTime.Milliseconds())
	return res, nil
}
