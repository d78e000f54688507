package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/report"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/solana"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/types"
	"github.com/magicblock-labs/ephemeral-conjunto/pkg/jsonutil"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// HealthHandler runs every check concurrently and reports 503 if any fails.
type HealthHandler struct {
	Checks  map[string]Check
	Timeout time.Duration
}

// NewHealthHandler checks getHealth on both validators and pings the run
// store.
func NewHealthHandler(proxy, ephem *solana.Connection, rec report.Recorder, timeout time.Duration) *HealthHandler {
	rpcCheck := func(c *solana.Connection) Check {
		return func(ctx context.Context) error { return solana.WaitHealthy(ctx, c, 1, 0) }
	}
	h := &HealthHandler{
		Checks: map[string]Check{
			solana.ProxyName: rpcCheck(proxy),
			solana.EphemName: rpcCheck(ephem),
		},
		Timeout: timeout,
	}
	if rec != nil {
		h.Checks["store"] = rec.Ping
	}
	return h
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]string, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		i, check := i, h.Checks[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := check(ctx); err != nil {
				results[i] = err.Error()
				return
			}
			results[i] = "ok"
		}()
	}
	wg.Wait()

	resp := types.HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	code := http.StatusOK
	for i, name := range names {
		resp.Checks[name] = results[i]
		if results[i] != "ok" {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}
	jsonutil.JSON(w, code, resp)
}
