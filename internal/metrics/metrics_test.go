package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flynn-ai/hybridcall/internal/hybrid"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

func TestRecorder_Outcomes(t *testing.T) {
	onDevice := testutil.ToFloat64(Resolutions.WithLabelValues(OutcomeOnDevice))
	cloud := testutil.ToFloat64(Resolutions.WithLabelValues(OutcomeCloud))
	failed := testutil.ToFloat64(Resolutions.WithLabelValues(OutcomeError))
	fast := testutil.ToFloat64(FastPath)
	decomposed := testutil.ToFloat64(Decomposed)
	reasons := testutil.ToFloat64(FallbackReasons.WithLabelValues("DECOMPOSITION_FAILURE"))
	local := testutil.ToFloat64(Tokens.WithLabelValues("local"))

	var r Recorder
	ctx := context.Background()
	require.NoError(t, r.Record(ctx, hybrid.Record{Source: protocol.SourceOnDevice, FastPath: true, TotalTimeMs: 40, LocalTokens: 30}))
	require.NoError(t, r.Record(ctx, hybrid.Record{Source: protocol.SourceCloud, Parts: 2, Reason: "DECOMPOSITION_FAILURE", TotalTimeMs: 900}))
	require.NoError(t, r.Record(ctx, hybrid.Record{Err: errors.New("boom"), Reason: "NO_CONSENSUS"}))

	assert.InDelta(t, onDevice+1, testutil.ToFloat64(Resolutions.WithLabelValues(OutcomeOnDevice)), 1e-9)
	assert.InDelta(t, cloud+1, testutil.ToFloat64(Resolutions.WithLabelValues(OutcomeCloud)), 1e-9)
	assert.InDelta(t, failed+1, testutil.ToFloat64(Resolutions.WithLabelValues(OutcomeError)), 1e-9)
	assert.InDelta(t, fast+1, testutil.ToFloat64(FastPath), 1e-9)
	assert.InDelta(t, decomposed+1, testutil.ToFloat64(Decomposed), 1e-9)
	assert.InDelta(t, reasons+1, testutil.ToFloat64(FallbackReasons.WithLabelValues("DECOMPOSITION_FAILURE")), 1e-9)
	assert.InDelta(t, local+30, testutil.ToFloat64(Tokens.WithLabelValues("local")), 1e-9)
}

func TestHandler(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Record(context.Background(), hybrid.Record{Source: protocol.SourceOnDevice, TotalTimeMs: 12}))

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "hybridcall_resolutions_total")

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/healthz", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
