package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.ObserveAirdrop("ephemeral", nil)
	m.ObserveAirdrop("ephemeral", errors.New("faucet dry"))
	m.ObserveSend("proxy", nil)
	m.ObserveConfirmation("proxy", 1500*time.Millisecond)
	m.ObserveNotification()
	m.ObserveScenario("account subscription", nil)

	require.Equal(t, 1.0, testutil.ToFloat64(m.Airdrops.WithLabelValues("ephemeral", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Airdrops.WithLabelValues("ephemeral", OutcomeError)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.TxSent.WithLabelValues("proxy", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Notifications))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ScenarioRuns.WithLabelValues("account subscription", OutcomeOK)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAirdrop("x", nil)
	m.ObserveSend("x", nil)
	m.ObserveConfirmation("x", time.Second)
	m.ObserveNotification()
	m.ObserveScenario("x", nil)
	require.NotNil(t, m.Handler())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveSend("proxy", nil)
	ts := httptest.NewServer(m.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), "conjunto_transactions_sent_total")
}
