package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	sol "github.com/gagliardetto/solana-go"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/config"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/scenario"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/types"
	"github.com/magicblock-labs/ephemeral-conjunto/pkg/jsonutil"
)

// TransferRunner is satisfied by *scenario.Runner.
type TransferRunner interface {
	SystemTransfer(ctx context.Context, opts scenario.TransferOptions) (*scenario.TransferResult, error)
}

type TransferHandler struct {
	Runner   TransferRunner
	Defaults scenario.TransferOptions
	Timeout  time.Duration
}

func NewTransferHandler(runner TransferRunner, defaults scenario.TransferOptions, timeout time.Duration) *TransferHandler {
	return &TransferHandler{Runner: runner, Defaults: defaults, Timeout: timeout}
}

var errBadSource = errors.New("blockhash_source must be ephemeral or proxy")

func (h *TransferHandler) options(req types.TransferRequest) (scenario.TransferOptions, error) {
	o := h.Defaults
	if req.To != "" {
		pk, err := sol.PublicKeyFromBase58(req.To)
		if err != nil {
			return o, errors.New("invalid recipient")
		}
		o.To = pk
	}
	if req.Lamports != 0 {
		o.Lamports = req.Lamports
	}
	switch src := config.BlockhashSource(req.BlockhashSource); src {
	case "":
	case config.BlockhashFromEphem, config.BlockhashFromProxy:
		o.BlockhashSource = src
	default:
		return o, errBadSource
	}
	if req.Confirm != nil {
		o.NoConfirm = !*req.Confirm
	}
	if req.SkipPreflight != nil {
		o.Preflight = !*req.SkipPreflight
	}
	return o, nil
}

// ServeHTTP handles POST /api/transfer.
func (h *TransferHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req types.TransferRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "bad request")
		return
	}
	opts, err := h.options(req)
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	res, err := h.Runner.SystemTransfer(ctx, opts)
	if err != nil {
		body := map[string]string{"error": err.Error()}
		if res != nil {
			body["run_id"] = res.RunID
			if res.Signature != (sol.Signature{}) {
				body["signature"] = res.Signature.String()
			}
		}
		jsonutil.JSON(w, http.StatusBadGateway, body)
		return
	}

	out := types.TransferResponse{
		RunID:           res.RunID,
		Signature:       res.Signature.String(),
		Payer:           res.Payer.String(),
		To:              res.To.String(),
		Lamports:        res.Lamports,
		Blockhash:       res.Blockhash.String(),
		BlockhashSource: string(res.BlockhashSource),
		Confirmed:       res.Confirmed,
		ConfirmMs:       res.ConfirmationTime.Milliseconds(),
	}
	for _, s := range res.FundingSigs {
		out.FundingSigs = append(out.FundingSigs, s.String())
	}
	jsonutil.JSON(w, http.StatusOK, out)
}
