package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	sol "github.com/gagliardetto/solana-go"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/solana"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/types"
	"github.com/magicblock-labs/ephemeral-conjunto/pkg/jsonutil"
)

const maxBalanceAddresses = 100

// BalanceHandler reads balances from either validator. The endpoint is
// chosen with ?endpoint=proxy|ephemeral and defaults to ephemeral.
type BalanceHandler struct {
	Conns          map[string]*solana.Connection
	Timeout        time.Duration
	MaxConcurrency int
}

func NewBalanceHandler(proxy, ephem *solana.Connection, timeout time.Duration, maxConcurrency int) *BalanceHandler {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &BalanceHandler{
		Conns:          map[string]*solana.Connection{solana.ProxyName: proxy, solana.EphemName: ephem},
		Timeout:        timeout,
		MaxConcurrency: maxConcurrency,
	}
}

// ServeHTTP handles POST /api/balances.
func (h *BalanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("endpoint")
	if name == "" {
		name = solana.EphemName
	}
	conn, ok := h.Conns[name]
	if !ok || conn == nil {
		jsonutil.Error(w, http.StatusBadRequest, "unknown endpoint")
		return
	}

	var req types.BalanceRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "bad request")
		return
	}
	if len(req.Addresses) == 0 {
		jsonutil.Error(w, http.StatusBadRequest, "addresses required")
		return
	}
	if len(req.Addresses) > maxBalanceAddresses {
		jsonutil.Error(w, http.StatusBadRequest, "too many addresses")
		return
	}

	addrs := dedupe(req.Addresses)
	resp := types.BalanceResponse{Endpoint: conn.Name, Balances: make([]types.BalanceEntry, 0, len(addrs))}
	valid := make([]sol.PublicKey, 0, len(addrs))
	for _, a := range addrs {
		pk, err := sol.PublicKeyFromBase58(a)
		if err != nil {
			resp.Errors = append(resp.Errors, types.ErrorEntry{Address: a, Error: "invalid public key"})
			continue
		}
		valid = append(valid, pk)
	}

	sem := make(chan struct{}, h.MaxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, pk := range valid {
		pk := pk
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; wg.Done() }()
			ctx := r.Context()
			if h.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, h.Timeout)
				defer cancel()
			}
			lamports, err := conn.Balance(ctx, pk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				resp.Errors = append(resp.Errors, types.ErrorEntry{Address: pk.String(), Error: err.Error()})
				return
			}
			resp.Balances = append(resp.Balances, types.BalanceEntry{
				Address:  pk.String(),
				Lamports: lamports,
				Sol:      types.LamportsToSol(lamports),
			})
		}()
	}
	wg.Wait()

	sort.Slice(resp.Balances, func(i, j int) bool { return resp.Balances[i].Address < resp.Balances[j].Address })
	sort.SliceStable(resp.Errors, func(i, j int) bool { return resp.Errors[i].Address < resp.Errors[j].Address })
	jsonutil.JSON(w, http.StatusOK, resp)
}
