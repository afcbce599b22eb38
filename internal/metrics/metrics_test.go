package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/scaffold-dashboard/internal/metrics"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.Refresh(metrics.RefreshSuccess)
	m.Refresh(metrics.RefreshFailure)
	m.UnauthorizedRetry()
	m.SignOut(metrics.SignOutRefreshFailed)
	m.Login(metrics.LoginSuccess)
	done := m.RefreshStarted()
	done()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `dashboard_token_refresh_total{outcome="success"} 1`)
	require.Contains(t, string(body), `dashboard_token_refresh_total{outcome="failure"} 1`)
	require.Contains(t, string(body), `dashboard_unauthorized_retries_total 1`)
	require.Contains(t, string(body), `dashboard_signouts_total{reason="refresh_failed"} 1`)
	require.Contains(t, string(body), `dashboard_logins_total{outcome="success"} 1`)
	require.Contains(t, string(body), `dashboard_refresh_inflight 0`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.Refresh(metrics.RefreshSuccess)
	m.UnauthorizedRetry()
	m.SignOut(metrics.SignOutUser)
	m.Login(metrics.LoginRejected)
	m.RefreshStarted()()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
