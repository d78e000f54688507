package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/logging"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/solana"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/types"
	"github.com/magicblock-labs/ephemeral-conjunto/pkg/jsonutil"
)

const maxFundAddresses = 20

// Funder is satisfied by *funding.Funder.
type Funder interface {
	Fund(ctx context.Context, conn *solana.Connection, pubkey sol.PublicKey, lamports uint64) (sol.Signature, error)
}

// FundDeps bundles dependencies needed by the handler.
type FundDeps struct {
	Conn           *solana.Connection
	Funder         Funder
	Lamports       uint64
	Timeout        time.Duration
	MaxConcurrency int
	Log            *zap.SugaredLogger
}

type FundHandler struct{ Deps FundDeps }

func NewFundHandler(deps FundDeps) *FundHandler {
	if deps.MaxConcurrency < 1 {
		deps.MaxConcurrency = 1
	}
	if deps.Lamports == 0 {
		deps.Lamports = sol.LAMPORTS_PER_SOL
	}
	deps.Log = logging.OrNop(deps.Log)
	return &FundHandler{Deps: deps}
}

func dedupe(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ServeHTTP handles POST /api/fund.
func (h *FundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req types.FundRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "bad request")
		return
	}
	if len(req.Addresses) == 0 {
		jsonutil.Error(w, http.StatusBadRequest, "addresses required")
		return
	}
	if len(req.Addresses) > maxFundAddresses {
		jsonutil.Error(w, http.StatusBadRequest, "too many addresses")
		return
	}
	lamports := h.Deps.Lamports
	if req.Lamports != 0 {
		lamports = req.Lamports
	}

	addrs := dedupe(req.Addresses)
	resp := types.FundResponse{Funded: make([]types.FundEntry, 0, len(addrs))}

	valid := make([]sol.PublicKey, 0, len(addrs))
	for _, a := range addrs {
		pk, err := sol.PublicKeyFromBase58(a)
		if err != nil {
			resp.Errors = append(resp.Errors, types.ErrorEntry{Address: a, Error: "invalid public key"})
			continue
		}
		valid = append(valid, pk)
	}

	sem := make(chan struct{}, h.Deps.MaxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, pk := range valid {
		pk := pk
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; wg.Done() }()
			ctx := r.Context()
			if h.Deps.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, h.Deps.Timeout)
				defer cancel()
			}
			sig, err := h.Deps.Funder.Fund(ctx, h.Deps.Conn, pk, lamports)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				resp.Errors = append(resp.Errors, types.ErrorEntry{Address: pk.String(), Error: err.Error()})
				return
			}
			resp.Funded = append(resp.Funded, types.NewFundEntry(pk.String(), sig, lamports, time.Now()))
		}()
	}
	wg.Wait()

	// deterministic order for clients and tests
	sort.Slice(resp.Funded, func(i, j int) bool { return resp.Funded[i].Address < resp.Funded[j].Address })
	sort.SliceStable(resp.Errors, func(i, j int) bool { return resp.Errors[i].Address < resp.Errors[j].Address })
	resp.Total = types.SumLamports(resp.Funded)

	h.Deps.Log.Infow("fund", "funded", len(resp.Funded), "failed", len(resp.Errors), "lamports", resp.Total)
	jsonutil.JSON(w, http.StatusOK, resp)
}
