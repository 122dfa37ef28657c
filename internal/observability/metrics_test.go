package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTx(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("", reg)

	m.RecordTx("create_rep", 0, time.Millisecond)
	m.RecordTx("mint", 1, time.Millisecond)
	m.RecordTx("mint", 2, time.Millisecond)
	m.RecordTx("burn", 3, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TxTotal.WithLabelValues("mint")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Trades.WithLabelValues("mint")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Trades.WithLabelValues("burn")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LastSeq))
}

func TestRecordTxFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordTxFailure("mint", "OutputMismatch", time.Millisecond)
	m.RecordTxFailure("mint", "OutputMismatch", time.Millisecond)
	m.RecordTxFailure("burn", "SlippageExceeded", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TxFailures.WithLabelValues("mint", "OutputMismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxFailures.WithLabelValues("burn", "SlippageExceeded")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TxTotal.WithLabelValues("mint")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTx("mint", 1, time.Second)
		m.RecordTxFailure("mint", "Internal", time.Second)
		m.RecordPublished(3)
		m.RecordSinkFailure("projection")
		m.SetWSClients(2)
		m.RecordWSDropped()
		m.RecordReplayed()
		m.RecordHTTP("GET", "/healthz", "200", time.Second)
		m.RecordRateLimited()
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("", reg)
	m.RecordPublished(4)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "rep_events_published_total 4"))
}
