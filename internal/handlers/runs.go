package handlers

import (
	"net/http"
	"strconv"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/report"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/types"
	"github.com/magicblock-labs/ephemeral-conjunto/pkg/jsonutil"
)

type RunsHandler struct{ Recorder report.Recorder }

// ServeHTTP handles GET /api/runs?scenario=&limit=.
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			jsonutil.Error(w, http.StatusBadRequest, "bad limit")
			return
		}
		limit = n
	}
	runs, err := h.Recorder.List(r.Context(), r.URL.Query().Get("scenario"), limit)
	if err != nil {
		jsonutil.Error(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []report.Run{}
	}
	jsonutil.JSON(w, http.StatusOK, types.RunsResponse{Runs: runs})
}
