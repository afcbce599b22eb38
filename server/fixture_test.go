package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/scaffold-dashboard/auth"
	"github.com/jrsteele09/scaffold-dashboard/backend"
	"github.com/jrsteele09/scaffold-dashboard/internal/config"
	"github.com/jrsteele09/scaffold-dashboard/internal/metrics"
	"github.com/jrsteele09/scaffold-dashboard/server"
	"github.com/jrsteele09/scaffold-dashboard/server/resetflow"
	"github.com/jrsteele09/scaffold-dashboard/sessions"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "jane@example.com"
	testPassword = "pa55word"
)

type testFixture struct {
	backendMux *http.ServeMux
	backend    *httptest.Server
	app        *httptest.Server
	client     *http.Client // Cookie jar, does not follow redirects
	store      *sessions.InMemoryStore
	manager    *auth.Manager
	resetFlows *resetflow.InMemoryRepo

	accessToken  atomic.Value // string the fake backend accepts
	refreshCalls atomic.Int32
	refreshOK    atomic.Bool
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("SESSION_SECRET", "server-test-secret")
	t.Setenv("APP_NAME", "Scaffold Dashboard")
	t.Setenv("ENV", "TEST")

	f := &testFixture{
		backendMux: http.NewServeMux(),
		store:      sessions.NewInMemoryStore(),
		resetFlows: resetflow.NewInMemoryRepo(),
	}
	f.accessToken.Store(makeAccessToken(t, time.Now().Add(15*time.Minute)))
	f.refreshOK.Store(true)
	f.registerBackendRoutes(t)
	f.backend = httptest.NewServer(f.backendMux)
	t.Cleanup(f.backend.Close)

	m := metrics.New()
	f.manager = auth.NewManager(backend.New(f.backend.URL, f.backend.Client()), f.store, auth.WithMetrics(m))
	api := backend.New(f.backend.URL, &http.Client{Transport: &auth.Transport{
		Base:     f.backend.Client().Transport,
		Sessions: f.manager,
		Metrics:  m,
		Timeout:  2 * time.Second,
	}})

	srv, err := server.New(config.New(), server.Services{
		Sessions:   f.manager,
		API:        api,
		ResetFlows: f.resetFlows,
		Metrics:    m,
	})
	require.NoError(t, err)
	f.app = httptest.NewServer(srv)
	t.Cleanup(f.app.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	f.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return f
}

func makeAccessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
		"jti": time.Now().String(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func writeEnvelope(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "data": data, "message": message})
}

func (f *testFixture) authorised(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+f.accessToken.Load().(string)
}

func (f *testFixture) registerBackendRoutes(t *testing.T) {
	f.backendMux.HandleFunc("POST "+backend.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != testEmail || body["password"] != testPassword {
			writeEnvelope(w, http.StatusUnauthorized, nil, "Invalid email or password")
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"accessToken":  f.accessToken.Load(),
			"refreshToken": "refresh-1",
			"_id":          "user-1",
			"role":         "manager",
			"user":         map[string]any{"id": "user-1", "email": testEmail, "username": "jane"},
		}, "")
	})

	f.backendMux.HandleFunc("POST "+backend.PathRefreshToken, func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		if !f.refreshOK.Load() {
			writeEnvelope(w, http.StatusUnauthorized, nil, "Refresh token expired")
			return
		}
		fresh := makeAccessToken(t, time.Now().Add(15*time.Minute))
		f.accessToken.Store(fresh)
		writeEnvelope(w, http.StatusOK, map[string]any{"accessToken": fresh}, "")
	})

	today := time.Now().UTC().Format(time.RFC3339)
	f.backendMux.HandleFunc("GET "+backend.PathUsers, func(w http.ResponseWriter, r *http.Request) {
		if !f.authorised(r) {
			writeEnvelope(w, http.StatusUnauthorized, nil, "jwt expired")
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"results": []map[string]any{
				{"id": "u1", "username": "staffer", "role": "staff", "createdAt": today},
				{"id": "u2", "username": "boss", "role": "manager", "createdAt": today},
			},
			"pagination": map[string]any{"page": 1, "limit": 100, "totalDocs": 42},
		}, "")
	})

	f.backendMux.HandleFunc("GET "+backend.PathJobs, func(w http.ResponseWriter, r *http.Request) {
		if !f.authorised(r) {
			writeEnvelope(w, http.StatusUnauthorized, nil, "jwt expired")
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"results":    []map[string]any{{"id": "j1", "title": "Tower scaffold", "createdAt": today}},
			"pagination": map[string]any{"page": 1, "limit": 50, "totalDocs": 7},
		}, "")
	})

	f.backendMux.HandleFunc("POST "+backend.PathForgotPassword, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, nil, "OTP sent")
	})
	f.backendMux.HandleFunc("POST "+backend.PathVerifyOTP, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["otp"] != "123456" {
			writeEnvelope(w, http.StatusBadRequest, nil, "OTP is invalid or expired")
			return
		}
		writeEnvelope(w, http.StatusOK, nil, "")
	})
	f.backendMux.HandleFunc("POST "+backend.PathResetPassword, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != testEmail || body["otp"] != "123456" || body["newPassword"] == "" {
			writeEnvelope(w, http.StatusBadRequest, nil, "bad reset")
			return
		}
		writeEnvelope(w, http.StatusOK, nil, "")
	})
}

func (f *testFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := f.client.Get(f.app.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *testFixture) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := f.client.PostForm(f.app.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	resp := f.postForm(t, server.RouteLogin, url.Values{"email": {testEmail}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func (f *testFixture) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	u, err := url.Parse(f.app.URL)
	require.NoError(t, err)
	for _, c := range f.client.Jar.Cookies(u) {
		if c.Name == "dashboard_session" {
			return c
		}
	}
	return nil
}

func (f *testFixture) onlySession(t *testing.T) *sessions.Session {
	t.Helper()
	cookie := f.sessionCookie(t)
	require.NotNil(t, cookie)
	codec, err := sessions.NewCodec("server-test-secret")
	require.NoError(t, err)
	artifact, err := codec.Decode(cookie.Value)
	require.NoError(t, err)
	s, err := f.store.Get(context.Background(), artifact.ID)
	require.NoError(t, err)
	return s
}

func location(resp *http.Response) string {
	return resp.Header.Get("Location")
}

func bodyContains(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), want)
}
