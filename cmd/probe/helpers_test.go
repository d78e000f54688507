package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/addresses"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/config"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/logging"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/metrics"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/report"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/scenario"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/solana"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/solana/solanatest"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/subscription/subscriptiontest"
)

func TestSanitizePort(t *testing.T) {
	require.Equal(t, "8080", sanitizePort(""))
	require.Equal(t, "9090", sanitizePort("9090"))
	require.Equal(t, "9090", sanitizePort(":9090"))
}

func TestResolveEndpoints(t *testing.T) {
	cfg := config.Config{ProxyURL: "http://127.0.0.1:9899", EphemURL: "development"}
	resolveEndpoints(&cfg)
	require.Equal(t, "http://127.0.0.1:9899", cfg.ProxyURL)
	require.Equal(t, addresses.DevelopmentURL, cfg.EphemURL)
}

func TestParseAddresses(t *testing.T) {
	pks, err := parseAddresses([]string{addresses.SubjectPubkey.String(), addresses.DelegatedPubkey.String()})
	require.NoError(t, err)
	require.Equal(t, []sol.PublicKey{addresses.SubjectPubkey, addresses.DelegatedPubkey}, pks)

	_, err = parseAddresses([]string{"x", addresses.SubjectPubkey.String(), "y"})
	require.EqualError(t, err, "invalid address: x, y")
}

func TestAirdropHint(t *testing.T) {
	require.Equal(t,
		"solana airdrop -u 'http://127.0.0.1:8899' 1 SoLXmnP9JvL6vJ7TN1VqtTxqsc2izmPfF9CsMDEuRzJ",
		airdropHint("http://127.0.0.1:8899", addresses.SubjectPubkey))
}

func TestOpenRecorder_NopWithoutURI(t *testing.T) {
	rec, done, err := openRecorder(context.Background(), config.Config{})
	require.NoError(t, err)
	defer done()
	require.IsType(t, report.Nop{}, rec)
}

type harness struct {
	app   *app
	proxy *solanatest.MockRPC
	ephem *solanatest.MockRPC
	ws    *subscriptiontest.Subscriber
	out   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		proxy: solanatest.NewMockRPC(),
		ephem: solanatest.NewMockRPC(),
		ws:    &subscriptiontest.Subscriber{},
		out:   &bytes.Buffer{},
	}
	cfg := config.Config{
		ProxyURL:            solana.DefaultProxyURL,
		EphemURL:            solana.DefaultEphemURL,
		Commitment:          "confirmed",
		AirdropLamports:     sol.LAMPORTS_PER_SOL,
		TransferLamports:    111,
		BlockhashSource:     config.BlockhashFromEphem,
		ConfirmAfterSend:    true,
		SkipPreflight:       true,
		ConfirmPollInterval: time.Millisecond,
		MaxConcurrency:      2,
	}
	h.app = &app{cfg: cfg, log: logging.Nop(), metrics: metrics.New()}
	h.app.runner = func(a *app, rec report.Recorder) *scenario.Runner {
		return &scenario.Runner{
			Proxy:        solana.NewConnectionWithRPC(solana.ProxyName, a.cfg.ProxyURL, rpc.CommitmentType(a.cfg.Commitment), h.proxy),
			Ephem:        solana.NewConnectionWithRPC(solana.EphemName, a.cfg.EphemURL, rpc.CommitmentType(a.cfg.Commitment), h.ephem),
			Log:          a.log,
			Metrics:      a.metrics,
			Recorder:     rec,
			PollInterval: time.Millisecond,
			Dial:         h.ws.Dial,
		}
	}
	return h
}

func (h *harness) run(args ...string) error {
	cmd := newRootCmd(h.app)
	cmd.SetArgs(args)
	cmd.SetOut(h.out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd.ExecuteContext(context.Background())
}

func TestTransferCmd(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("transfer", "--lamports", "5", "--no-confirm", "--blockhash-source", "proxy"))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &out))
	require.EqualValues(t, 5, out["lamports"])
	require.Equal(t, false, out["confirmed"])
	require.Equal(t, "proxy", out["blockhash_source"])
	require.Equal(t, addresses.DelegatedPubkey.String(), out["to"])

	sent := h.proxy.SentLog()
	require.Len(t, sent, 1)
	require.True(t, sent[0].Opts.SkipPreflight)
	require.Zero(t, h.proxy.Calls("getSignatureStatuses"))
	require.Len(t, h.ephem.AirdropLog(), 2)
}

func TestTransferCmd_ConfirmsByDefault(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("transfer", "--preflight"))
	require.False(t, h.proxy.SentLog()[0].Opts.SkipPreflight)
	require.Positive(t, h.proxy.Calls("getSignatureStatuses"))
}

func TestTransferCmd_BadFlags(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.run("transfer", "--blockhash-source", "devnet"), config.ErrInvalidBlockhashSource)
	require.Error(t, h.run("transfer", "--to", "nope"))
	require.ErrorIs(t, h.run("transfer", "--commitment", "max"), config.ErrInvalidCommitment)
	require.Empty(t, h.proxy.SentLog())
}

func TestFundCmd(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("fund", addresses.SubjectPubkey.String(), addresses.DelegatedPubkey.String(), "--lamports", "7"))

	var out []map[string]string
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &out))
	require.Len(t, out, 2)
	require.Equal(t, addresses.SubjectPubkey.String(), out[0]["address"])
	for _, d := range h.ephem.AirdropLog() {
		require.Equal(t, uint64(7), d.Lamports)
	}

	require.Error(t, h.run("fund", "bad"))
	require.Error(t, h.run("fund"))
	require.Len(t, h.ephem.AirdropLog(), 2)
}

func TestSubscribeCmd(t *testing.T) {
	h := newHarness(t)
	go func() {
		for h.ws.Streams() == 0 {
			time.Sleep(time.Millisecond)
		}
		h.ws.Stream(0).Push(77, 3)
	}()
	require.NoError(t, h.run("subscribe"))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &out))
	require.Equal(t, addresses.SubjectPubkey.String(), out["account"])
	require.EqualValues(t, 77, out["slot"])
	require.Equal(t, []string{"ws://127.0.0.1:9900"}, h.ws.Dialed())
}

func TestSubscribeCmd_Timeout(t *testing.T) {
	h := newHarness(t)
	err := h.run("subscribe", "--timeout", "30ms", "--account", addresses.DelegatedPubkey.String())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, []sol.PublicKey{addresses.DelegatedPubkey}, h.ws.Accounts())
}
