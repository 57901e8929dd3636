package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/Rrens/chat-archive/internal/retry"
	"github.com/Rrens/chat-archive/internal/security"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "data": data})
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

func testUser() *domain.User {
	return &domain.User{ID: uuid.New(), Email: "user@example.com"}
}

func freshSession(user *domain.User, token string) *domain.AuthSession {
	return &domain.AuthSession{
		AccessToken:  token,
		RefreshToken: "refresh-" + token,
		TokenType:    "bearer",
		ExpiresIn:    3600,
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		User:         user,
	}
}

func TestClient_SignInWithPassword(t *testing.T) {
	user := testUser()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		var body domain.UserLogin
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password != "correct" {
			writeErr(w, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
			return
		}
		writeData(w, http.StatusOK, domain.AuthResponse{User: user, Session: freshSession(user, "tok")})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := &MemorySessionStore{}
	c := NewClient(srv.URL, nil, store, zerolog.Nop())

	var events []AuthEvent
	unsub := c.OnAuthStateChange(func(e AuthEvent, _ *domain.AuthSession) { events = append(events, e) })
	defer unsub()

	_, err := c.SignInWithPassword(context.Background(), user.Email, "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid login credentials", err.Error())
	assert.Equal(t, "invalid_credentials", apiErr.Code)
	assert.False(t, retry.IsNetworkError(err))

	resp, err := c.SignInWithPassword(context.Background(), user.Email, "correct")
	require.NoError(t, err)
	assert.Equal(t, user.Email, resp.User.Email)
	assert.Equal(t, "tok", c.Session().AccessToken)

	saved, _ := store.Load()
	require.NotNil(t, saved)
	assert.Equal(t, "tok", saved.AccessToken)
	assert.Equal(t, []AuthEvent{EventInitialSession, EventSignedIn}, events)
}

func TestClient_NetworkFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "down for maintenance")
	}))
	c := NewClient(srv.URL, nil, nil, zerolog.Nop())

	_, err := c.CountRows(context.Background(), domain.TableServiceConnections)
	assert.True(t, retry.IsNetworkError(err))

	srv.Close()
	_, err = c.GetSession(context.Background())
	require.Error(t, err)
	assert.True(t, retry.IsNetworkError(err))
}

func TestClient_RefreshIsShared(t *testing.T) {
	user := testUser()
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		time.Sleep(20 * time.Millisecond)
		writeData(w, http.StatusOK, freshSession(nil, "new"))
	})
	mux.HandleFunc("/api/v1/tables/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer new", r.Header.Get("Authorization"))
		writeData(w, http.StatusOK, map[string]any{"table": "chats", "count": 3})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	expired := freshSession(user, "old")
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	store := &MemorySessionStore{}
	require.NoError(t, store.Save(expired))
	c := NewClient(srv.URL, nil, store, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := c.CountRows(context.Background(), domain.TableChats)
			assert.NoError(t, err)
			assert.Equal(t, int64(3), n)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, user.Email, c.Session().User.Email)
}

func TestClient_RejectedRefreshSignsOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	expired := freshSession(testUser(), "old")
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	store := &MemorySessionStore{}
	require.NoError(t, store.Save(expired))
	c := NewClient(srv.URL, nil, store, zerolog.Nop())

	var last AuthEvent
	c.OnAuthStateChange(func(e AuthEvent, _ *domain.AuthSession) { last = e })

	_, err := c.ListServices(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Nil(t, c.Session())
	assert.Equal(t, EventSignedOut, last)
}

func TestClient_GetSessionClearsRevokedSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/session", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, domain.AuthResponse{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := &MemorySessionStore{}
	require.NoError(t, store.Save(freshSession(testUser(), "tok")))
	c := NewClient(srv.URL, nil, store, zerolog.Nop())

	resp, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, resp.User)
	assert.Nil(t, resp.Session)
	assert.Nil(t, c.Session())
}

func TestClient_SignOut(t *testing.T) {
	var revoked atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		revoked.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := &MemorySessionStore{}
	require.NoError(t, store.Save(freshSession(testUser(), "tok")))
	c := NewClient(srv.URL, nil, store, zerolog.Nop())

	require.NoError(t, c.SignOut(context.Background()))
	assert.True(t, revoked.Load())
	assert.Nil(t, c.Session())

	saved, _ := store.Load()
	assert.Nil(t, saved)
}

func TestAPIError_NetworkFailure(t *testing.T) {
	assert.True(t, (&APIError{Status: 0}).NetworkFailure())
	assert.True(t, (&APIError{Status: http.StatusBadGateway}).NetworkFailure())
	assert.True(t, (&APIError{Status: 500, Code: "PGRST_CONNECTION_ERROR"}).NetworkFailure())
	assert.False(t, (&APIError{Status: 400, Code: "weak_password"}).NetworkFailure())
}

func TestFileSessionStore(t *testing.T) {
	enc, err := security.NewEncryptorFromSecret("test passphrase")
	require.NoError(t, err)
	store := NewFileSessionStore(filepath.Join(t.TempDir(), "nested", "session"), enc)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, store.Save(freshSession(testUser(), "tok")))
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.AccessToken)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
