package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/scaffold-dashboard/auth"
	"github.com/jrsteele09/scaffold-dashboard/backend"
	errs "github.com/jrsteele09/scaffold-dashboard/internal/errors"
	"github.com/jrsteele09/scaffold-dashboard/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SignIn(t *testing.T) {
	exp := time.Unix(1893456000, 0) // 2030-01-01
	f := setupTestFixture(t)
	access := makeAccessToken(t, "user-1", exp)

	f.mux.HandleFunc("POST "+backend.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["password"] {
		case "pa55word":
			writeEnvelope(w, http.StatusOK, map[string]any{
				"accessToken":  access,
				"refreshToken": "refresh-1",
				"user":         map[string]any{"id": "user-1", "email": body["email"], "name": "Jane Doe", "role": "Manager"},
			}, "")
		case "boom":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>"))
		default:
			writeEnvelope(w, http.StatusBadRequest, nil, "Incorrect password")
		}
	})

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
		wantMsg  string
	}{
		{name: "missing email", email: " ", password: "pa55word", wantErr: errs.ErrMissingCredentials},
		{name: "missing password", email: "jane@example.com", password: "", wantErr: errs.ErrMissingCredentials},
		{name: "rejected", email: "jane@example.com", password: "wrong", wantErr: errs.ErrInvalidCredentials, wantMsg: "Incorrect password"},
		{name: "malformed response", email: "jane@example.com", password: "boom", wantErr: errs.ErrInvalidResponse},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := f.manager.SignIn(context.Background(), tc.email, tc.password)
			require.ErrorIs(t, err, tc.wantErr)
			require.Nil(t, s)
			if tc.wantMsg != "" {
				require.Contains(t, err.Error(), tc.wantMsg)
			}
		})
	}

	t.Run("success", func(t *testing.T) {
		s, err := f.manager.SignIn(context.Background(), "jane@example.com", "pa55word")
		require.NoError(t, err)

		require.NotEmpty(t, s.ID)
		require.Equal(t, "user-1", s.Subject)
		require.Equal(t, "Jane Doe", s.Name)
		require.Equal(t, sessions.RoleManager, s.Role)
		require.Equal(t, access, s.AccessToken)
		require.Equal(t, "refresh-1", s.RefreshToken)
		require.Equal(t, exp.UnixMilli(), s.AccessTokenExpires.UnixMilli())
		require.Empty(t, s.Error)

		stored := f.stored(t, s.ID)
		require.Equal(t, s.AccessToken, stored.AccessToken)
	})
}

func TestManager_CurrentRefreshesProactively(t *testing.T) {
	f := setupTestFixture(t)
	fresh := makeAccessToken(t, "user-1", time.Now().Add(15*time.Minute))
	f.refreshBody = refreshTo(t, "refresh-1", fresh, "")

	s := f.seedSession(t, "old-access", "refresh-1")
	s.AccessTokenExpires = time.Now().Add(2 * time.Second) // inside the 5s skew
	require.NoError(t, f.store.Upsert(context.Background(), s, time.Hour))

	got, err := f.manager.Current(context.Background(), s.ID)
	require.NoError(t, err)
	require.Equal(t, fresh, got.AccessToken)
	require.Equal(t, "refresh-1", got.RefreshToken, "refresh token kept when not rotated")
	require.Equal(t, int32(1), f.refreshCalls.Load())

	// Fresh now, no second call.
	got, err = f.manager.Current(context.Background(), s.ID)
	require.NoError(t, err)
	require.Equal(t, fresh, got.AccessToken)
	require.Equal(t, int32(1), f.refreshCalls.Load())
}

func TestManager_RefreshAfterUnauthorized(t *testing.T) {
	t.Run("late caller reuses stored token", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.seedSession(t, "already-refreshed", "refresh-2")

		got, err := f.manager.RefreshAfterUnauthorized(context.Background(), s.ID, "stale-access")
		require.NoError(t, err)
		require.Equal(t, "already-refreshed", got.AccessToken)
		require.Zero(t, f.refreshCalls.Load())
	})

	t.Run("no refresh token makes no call", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.seedSession(t, "stale-access", "")

		got, err := f.manager.RefreshAfterUnauthorized(context.Background(), s.ID, "stale-access")
		require.NoError(t, err)
		require.Equal(t, sessions.RefreshAccessTokenError, got.Error)
		require.Empty(t, got.AccessToken)
		require.False(t, got.Usable())
		require.Zero(t, f.refreshCalls.Load())
		require.Equal(t, 1, f.signOutCount())
	})

	t.Run("rotated refresh token is stored", func(t *testing.T) {
		f := setupTestFixture(t)
		fresh := makeAccessToken(t, "user-1", time.Now().Add(15*time.Minute))
		f.refreshBody = refreshTo(t, "refresh-1", fresh, "refresh-2")
		s := f.seedSession(t, "stale-access", "refresh-1")

		got, err := f.manager.RefreshAfterUnauthorized(context.Background(), s.ID, "stale-access")
		require.NoError(t, err)
		require.Equal(t, fresh, got.AccessToken)
		require.Equal(t, "refresh-2", got.RefreshToken)
		require.Equal(t, "refresh-2", f.stored(t, s.ID).RefreshToken)
	})

	t.Run("caller cancellation does not cancel the refresh", func(t *testing.T) {
		f := setupTestFixture(t)
		fresh := makeAccessToken(t, "user-1", time.Now().Add(15*time.Minute))
		f.refreshBody = refreshTo(t, "refresh-1", fresh, "")
		s := f.seedSession(t, "stale-access", "refresh-1")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.manager.RefreshAfterUnauthorized(ctx, s.ID, "stale-access")
		require.ErrorIs(t, err, context.Canceled)

		require.Eventually(t, func() bool {
			latest, err := f.store.Get(context.Background(), s.ID)
			return err == nil && latest.AccessToken == fresh
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.manager.RefreshAfterUnauthorized(context.Background(), "missing", "x")
		require.ErrorIs(t, err, errs.ErrSessionNotFound)
	})
}

func TestManager_Resolve(t *testing.T) {
	t.Run("store copy wins over the cookie", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.seedSession(t, "access-2", "refresh-2")

		artifact := s.Clone()
		artifact.AccessToken = "access-1"
		artifact.RefreshToken = "refresh-1"

		got, err := f.manager.Resolve(context.Background(), artifact)
		require.NoError(t, err)
		require.Equal(t, "access-2", got.AccessToken)
	})

	t.Run("lost session is re-seeded", func(t *testing.T) {
		f := setupTestFixture(t)
		artifact := sessions.New(time.Now(), time.Hour)
		artifact.AccessToken = "access-1"
		artifact.RefreshToken = "refresh-1"
		artifact.AccessTokenExpires = time.Now().Add(10 * time.Minute)

		got, err := f.manager.Resolve(context.Background(), artifact)
		require.NoError(t, err)
		require.Equal(t, "access-1", got.AccessToken)
		require.Equal(t, "access-1", f.stored(t, artifact.ID).AccessToken)
	})

	t.Run("signed out session stays signed out", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.seedSession(t, "access-1", "refresh-1")
		require.NoError(t, f.manager.SignOut(context.Background(), s.ID))

		_, err := f.manager.Resolve(context.Background(), s)
		require.ErrorIs(t, err, errs.ErrSessionExpired)
	})

	t.Run("expired artifact", func(t *testing.T) {
		f := setupTestFixture(t, auth.WithNowTime(func() time.Time { return time.Now().Add(2 * time.Hour) }))
		artifact := sessions.New(time.Now(), time.Hour)
		artifact.AccessToken = "access-1"

		_, err := f.manager.Resolve(context.Background(), artifact)
		require.ErrorIs(t, err, errs.ErrSessionExpired)
	})

	t.Run("invalid artifact", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.manager.Resolve(context.Background(), &sessions.Session{})
		require.ErrorIs(t, err, errs.ErrInvalidSession)
	})
}

func TestManager_SignOut(t *testing.T) {
	f := setupTestFixture(t)
	s := f.seedSession(t, "access-1", "refresh-1")

	require.NoError(t, f.manager.SignOut(context.Background(), s.ID))
	require.NoError(t, f.manager.SignOut(context.Background(), s.ID))
	require.NoError(t, f.manager.SignOut(context.Background(), "missing"))
	require.NoError(t, f.manager.SignOut(context.Background(), ""))

	require.Equal(t, 1, f.signOutCount())
	require.Equal(t, signOutRecord{sessionID: s.ID, reason: "user"}, f.signOuts[0])

	_, err := f.manager.Current(context.Background(), s.ID)
	require.ErrorIs(t, err, errs.ErrSessionExpired)
}

// blockingRefresh holds refresh requests until release is closed and tells
// the test when the first one arrived.
func blockingRefresh(started chan<- struct{}, release <-chan struct{}, answer func(http.ResponseWriter)) func(http.ResponseWriter, *http.Request) {
	var once sync.Once
	return func(w http.ResponseWriter, _ *http.Request) {
		once.Do(func() { close(started) })
		<-release
		answer(w)
	}
}

func TestManager_SignOutDuringRefresh(t *testing.T) {
	tests := []struct {
		name   string
		answer func(w http.ResponseWriter)
	}{
		{
			name: "refreshed tokens are dropped",
			answer: func(w http.ResponseWriter) {
				writeEnvelope(w, http.StatusOK, map[string]string{
					"accessToken":  "access-2",
					"refreshToken": "refresh-2",
				}, "")
			},
		},
		{
			name: "failed refresh does not sign out again",
			answer: func(w http.ResponseWriter) {
				writeEnvelope(w, http.StatusUnauthorized, nil, "Refresh token expired")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t)
			s := f.seedSession(t, "access-1", "refresh-1")

			started := make(chan struct{})
			release := make(chan struct{})
			f.refreshBody = blockingRefresh(started, release, tc.answer)

			done := make(chan *sessions.Session, 1)
			go func() {
				refreshed, err := f.manager.RefreshAfterUnauthorized(context.Background(), s.ID, "access-1")
				assert.NoError(t, err)
				done <- refreshed
			}()

			select {
			case <-started:
			case <-time.After(2 * time.Second):
				close(release)
				t.Fatal("refresh never reached the backend")
			}
			require.NoError(t, f.manager.SignOut(context.Background(), s.ID))
			close(release)

			var refreshed *sessions.Session
			select {
			case refreshed = <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("refresh did not settle")
			}
			require.NotNil(t, refreshed)
			require.False(t, refreshed.Usable())

			latest := f.stored(t, s.ID)
			require.Equal(t, sessions.SignedOutError, latest.Error)
			require.Empty(t, latest.AccessToken)
			require.Empty(t, latest.RefreshToken)

			_, err := f.manager.Current(context.Background(), s.ID)
			require.ErrorIs(t, err, errs.ErrSessionExpired)
			_, err = f.manager.Resolve(context.Background(), s)
			require.ErrorIs(t, err, errs.ErrSessionExpired)

			require.Equal(t, 1, f.signOutCount())
			require.Equal(t, signOutRecord{sessionID: s.ID, reason: "user"}, f.signOuts[0])
			require.Equal(t, int32(1), f.refreshCalls.Load())
		})
	}
}

func TestManager_ConcurrentSignOutNotifiesOnce(t *testing.T) {
	f := setupTestFixture(t)
	s := f.seedSession(t, "access-1", "refresh-1")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.manager.SignOut(context.Background(), s.ID))
		}()
	}
	wg.Wait()

	require.Equal(t, 1, f.signOutCount())
	require.Equal(t, sessions.SignedOutError, f.stored(t, s.ID).Error)
}
