package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(votes.WithLabelValues("ok"))
	RecordVote("ok")
	assert.Equal(t, before+1, testutil.ToFloat64(votes.WithLabelValues("ok")))

	before = testutil.ToFloat64(ledgerMoves.WithLabelValues("convert"))
	RecordLedger("convert", 0)
	RecordLedger("convert", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(ledgerMoves.WithLabelValues("convert")))

	before = testutil.ToFloat64(jobRuns.WithLabelValues("results", "false"))
	RecordJob("results", false)
	assert.Equal(t, before+1, testutil.ToFloat64(jobRuns.WithLabelValues("results", "false")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordImpression("funded")
	RecordRecalc("day", "computed", 10*time.Millisecond)
	RecordHTTP("GET", "", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "glowshot_feed_impressions_total")
	assert.Contains(t, body, "glowshot_results_recalculations_total")
	assert.Contains(t, body, `route="unmatched"`)
}
