package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/scaffold-dashboard/auth"
	"github.com/jrsteele09/scaffold-dashboard/backend"
	"github.com/jrsteele09/scaffold-dashboard/internal/metrics"
	"github.com/jrsteele09/scaffold-dashboard/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signOutRecord struct {
	sessionID string
	reason    string
}

type testFixture struct {
	mux     *http.ServeMux
	server  *httptest.Server
	store   *sessions.InMemoryStore
	metrics *metrics.Metrics
	manager *auth.Manager
	api     *backend.Client // Authenticated through auth.Transport

	refreshCalls atomic.Int32
	refreshBody  func(w http.ResponseWriter, r *http.Request)

	mu       sync.Mutex
	signOuts []signOutRecord
}

func setupTestFixture(t *testing.T, opts ...auth.ManagerOption) *testFixture {
	t.Helper()

	f := &testFixture{
		mux:     http.NewServeMux(),
		store:   sessions.NewInMemoryStore(),
		metrics: metrics.New(),
	}
	f.mux.HandleFunc("POST "+backend.PathRefreshToken, func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		f.refreshBody(w, r)
	})
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)

	plain := backend.New(f.server.URL, f.server.Client())
	opts = append([]auth.ManagerOption{
		auth.WithMetrics(f.metrics),
		auth.WithSignOutListener(func(id, reason string) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.signOuts = append(f.signOuts, signOutRecord{sessionID: id, reason: reason})
		}),
	}, opts...)
	f.manager = auth.NewManager(plain, f.store, opts...)

	f.api = backend.New(f.server.URL, &http.Client{
		Transport: &auth.Transport{
			Base:     f.server.Client().Transport,
			Sessions: f.manager,
			Metrics:  f.metrics,
			Timeout:  2 * time.Second,
		},
	})
	return f
}

func (f *testFixture) signOutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.signOuts)
}

func (f *testFixture) seedSession(t *testing.T, accessToken, refreshToken string) *sessions.Session {
	t.Helper()
	s := sessions.New(time.Now(), time.Hour)
	s.Subject = "user-1"
	s.Email = "jane@example.com"
	s.AccessToken = accessToken
	s.RefreshToken = refreshToken
	s.AccessTokenExpires = time.Now().Add(10 * time.Minute)
	require.NoError(t, f.store.Upsert(context.Background(), s, time.Hour))
	return s
}

func (f *testFixture) stored(t *testing.T, id string) *sessions.Session {
	t.Helper()
	s, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func makeAccessToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": subject,
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func writeEnvelope(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": status < 300,
		"data":    data,
		"message": message,
	})
}

// refreshTo answers refresh requests with the given pair, checking the
// refresh token sent.
func refreshTo(t *testing.T, wantRefresh, accessToken, refreshToken string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, wantRefresh, body["refreshToken"])
		time.Sleep(20 * time.Millisecond)
		pair := map[string]string{"accessToken": accessToken}
		if refreshToken != "" {
			pair["refreshToken"] = refreshToken
		}
		writeEnvelope(w, http.StatusOK, pair, "")
	}
}

func refreshFails(w http.ResponseWriter, _ *http.Request) {
	time.Sleep(20 * time.Millisecond)
	writeEnvelope(w, http.StatusUnauthorized, nil, "Refresh token expired")
}

// jobsRequiring serves /jobs for callers presenting want and rejects everything
// else once n rejected callers have arrived, so they all hold the stale token
// at the same moment.
func jobsRequiring(want string, n int32) http.HandlerFunc {
	var stale atomic.Int32
	release := make(chan struct{})
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer "+want {
			writeEnvelope(w, http.StatusOK, map[string]any{"results": []any{}}, "")
			return
		}
		if stale.Add(1) == n {
			close(release)
		}
		select {
		case <-release:
		case <-time.After(time.Second):
		}
		writeEnvelope(w, http.StatusUnauthorized, nil, "jwt expired")
	}
}
