package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/addresses"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/config"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/funding"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/handlers"
	apihttp "github.com/magicblock-labs/ephemeral-conjunto/internal/http"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/rate"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/scenario"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/subscription"
)

func newSubscribeCmd(a *app) *cobra.Command {
	account := addresses.SubjectPubkey.String()
	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Wait for one change to an account through the proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pk, err := sol.PublicKeyFromBase58(account)
			if err != nil {
				return fmt.Errorf("--account: %w", err)
			}
			rec, closeRec, err := openRecorder(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer closeRec()

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			w, err := a.newRunner(rec).AccountSubscription(ctx, pk)
			if err != nil {
				return err
			}
			defer w.Stop()
			fmt.Fprintf(cmd.ErrOrStderr(), "subscribed (id %d); trigger a change with:\n  %s\n", w.ID, airdropHint(a.cfg.EphemURL, pk))

			var (
				n  subscription.Notification
				ok bool
			)
			select {
			case n, ok = <-w.Notifications:
			case <-ctx.Done():
			}
			if ok {
				return printJSON(cmd.OutOrStdout(), notificationView(n))
			}
			// the watch closes its channel when ctx ends
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("no change to %s: %w", pk, ctx.Err())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", account, "Account to watch")
	return cmd
}

func newFundCmd(a *app) *cobra.Command {
	var lamports uint64
	cmd := &cobra.Command{
		Use:   "fund <address>...",
		Short: "Airdrop to addresses on the ephemeral validator and wait for confirmation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pks, err := parseAddresses(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("lamports") {
				lamports = a.cfg.AirdropLamports
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			conn := a.newRunner(nil).Ephem
			f := &funding.Funder{Log: a.log, Metrics: a.metrics, PollInterval: a.cfg.ConfirmPollInterval}
			sigs := make([]sol.Signature, len(pks))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(max(a.cfg.MaxConcurrency, 1))
			for i, pk := range pks {
				i, pk := i, pk
				g.Go(func() error {
					sig, err := f.Fund(gctx, conn, pk, lamports)
					sigs[i] = sig
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			out := make([]map[string]string, len(pks))
			for i := range pks {
				out[i] = map[string]string{"address": pks[i].String(), "signature": sigs[i].String()}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().Uint64Var(&lamports, "lamports", sol.LAMPORTS_PER_SOL, "Lamports per airdrop")
	return cmd
}

func newTransferCmd(a *app) *cobra.Command {
	var (
		to        string
		source    string
		lamports  uint64
		noConfirm bool
		preflight bool
	)
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Fund a fresh payer and send a native transfer through the proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := scenario.TransferOptionsFromConfig(a.cfg)
			if to != "" {
				pk, err := sol.PublicKeyFromBase58(to)
				if err != nil {
					return fmt.Errorf("--to: %w", err)
				}
				opts.To = pk
			}
			if cmd.Flags().Changed("lamports") {
				opts.Lamports = lamports
			}
			if source != "" {
				opts.BlockhashSource = config.BlockhashSource(source)
				if opts.BlockhashSource != config.BlockhashFromEphem && opts.BlockhashSource != config.BlockhashFromProxy {
					return fmt.Errorf("--blockhash-source %q: %w", source, config.ErrInvalidBlockhashSource)
				}
			}
			if noConfirm {
				opts.NoConfirm = true
			}
			if preflight {
				opts.Preflight = true
			}

			rec, closeRec, err := openRecorder(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer closeRec()
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			res, err := a.newRunner(rec).SystemTransfer(ctx, opts)
			if res != nil {
				_ = printJSON(cmd.OutOrStdout(), transferView(res))
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&to, "to", "", "Recipient (default: the delegated account)")
	f.Uint64Var(&lamports, "lamports", 111, "Lamports to transfer")
	f.StringVar(&source, "blockhash-source", "", "Endpoint the blockhash is read from: ephemeral or proxy")
	f.BoolVar(&noConfirm, "no-confirm", false, "Return right after submission")
	f.BoolVar(&preflight, "preflight", false, "Let the proxy simulate the transaction before forwarding")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the probe HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rec, closeRec, err := openRecorder(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer closeRec()

			runner := a.newRunner(rec)
			lim := rate.NewIPLimiter(a.cfg.RateLimitRPM, a.cfg.RateLimitRPM, 5*time.Minute)
			defer lim.Stop()

			router := apihttp.NewRouter(apihttp.Deps{
				Health: handlers.NewHealthHandler(runner.Proxy, runner.Ephem, rec, 3*time.Second),
				Fund: handlers.NewFundHandler(handlers.FundDeps{
					Conn:           runner.Ephem,
					Funder:         &funding.Funder{Log: a.log, Metrics: a.metrics, PollInterval: a.cfg.ConfirmPollInterval},
					Lamports:       a.cfg.AirdropLamports,
					Timeout:        60 * time.Second,
					MaxConcurrency: a.cfg.MaxConcurrency,
					Log:            a.log,
				}),
				Transfer:   handlers.NewTransferHandler(runner, scenario.TransferOptionsFromConfig(a.cfg), 90*time.Second),
				Balances:   handlers.NewBalanceHandler(runner.Proxy, runner.Ephem, 10*time.Second, a.cfg.MaxConcurrency),
				Runs:       &handlers.RunsHandler{Recorder: rec},
				Limiter:    lim,
				AdminToken: a.cfg.AdminToken,
				Metrics:    a.metrics,
				Log:        a.log,
			})

			srv := &http.Server{
				Addr:         ":" + sanitizePort(a.cfg.Port),
				Handler:      router,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.log.Infow("listening", "addr", srv.Addr, "proxy", runner.Proxy.Endpoint, "ephemeral", runner.Ephem.Endpoint)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			a.log.Infow("shutting_down")
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shCtx)
		},
	}
	return cmd
}
