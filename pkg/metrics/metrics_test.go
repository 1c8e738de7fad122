package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordImport_CountsAddedAndUpdated(t *testing.T) {
	m := New(DefaultConfig("texflow-test"))

	m.RecordImport("success", 3, 2, 150*time.Millisecond)
	m.RecordImport("success", 0, 5, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImportsTotal.WithLabelValues("texflow-test", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OrdersMerged.WithLabelValues("texflow-test", "added")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.OrdersMerged.WithLabelValues("texflow-test", "updated")))
}

func TestSnapshotAndSyncGauges(t *testing.T) {
	m := New(DefaultConfig("texflow-test"))

	m.RecordSnapshot(42)
	m.SetLedgerSyncConnected(true)
	assert.Equal(t, 42.0, testutil.ToFloat64(m.SnapshotSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerSyncConnected))

	m.SetLedgerSyncConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LedgerSyncConnected))
}

func TestHandler_ExposesNamespace(t *testing.T) {
	m := New(DefaultConfig("texflow-test"))
	m.RecordHTTPRequest("GET", "/api/v1/orders", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "texflow_http_requests_total")
}
