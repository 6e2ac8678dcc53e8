package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusfix/campusfix/internal/accounts"
	"github.com/campusfix/campusfix/internal/notifications"
	"github.com/campusfix/campusfix/internal/passreset"
	"github.com/campusfix/campusfix/internal/twofactor"
	"github.com/campusfix/campusfix/pkg/jwt"
)

// memStore is a map-backed store covering the account and reset token
// interfaces the auth flows touch.
type memStore struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*accounts.User
	tokens map[string]*passreset.Token
	codes  map[uuid.UUID][]string
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[uuid.UUID]*accounts.User),
		tokens: make(map[string]*passreset.Token),
		codes:  make(map[uuid.UUID][]string),
	}
}

func (m *memStore) CreateUser(_ context.Context, user *accounts.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return accounts.ErrEmailAlreadyExists
		}
	}
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, accounts.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, accounts.ErrUserNotFound
}

func (m *memStore) UpdateUser(_ context.Context, user *accounts.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return accounts.ErrUserNotFound
	}
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, userID uuid.UUID, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return accounts.ErrUserNotFound
	}
	user.PasswordHash = hash
	return nil
}

func (m *memStore) SaveTwoFactorSecret(_ context.Context, userID uuid.UUID, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return accounts.ErrUserNotFound
	}
	user.TwoFactorSecret = secret
	return nil
}

func (m *memStore) EnableTwoFactor(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return accounts.ErrUserNotFound
	}
	user.TwoFactorEnabled = true
	return nil
}

func (m *memStore) DisableTwoFactor(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return accounts.ErrUserNotFound
	}
	user.TwoFactorEnabled = false
	user.TwoFactorSecret = ""
	return nil
}

func (m *memStore) ReplaceBackupCodes(_ context.Context, userID uuid.UUID, hashes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[userID] = append([]string(nil), hashes...)
	return nil
}

func (m *memStore) ConsumeBackupCode(_ context.Context, userID uuid.UUID, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, h := range m.codes[userID] {
		if h == hash {
			m.codes[userID] = append(m.codes[userID][:i], m.codes[userID][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CountBackupCodes(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes[userID]), nil
}

func (m *memStore) DeleteBackupCodes(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, userID)
	return nil
}

func (m *memStore) InvalidateAndCreate(_ context.Context, token *passreset.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == token.UserID {
			t.Used = true
		}
	}
	clone := *token
	m.tokens[token.Token] = &clone
	return nil
}

func (m *memStore) GetByToken(_ context.Context, raw string) (*passreset.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[raw]
	if !ok {
		return nil, passreset.ErrTokenNotFound
	}
	clone := *token
	return &clone, nil
}

func (m *memStore) Consume(_ context.Context, token *passreset.Token, passwordHash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tokens[token.Token]
	if !ok {
		return passreset.ErrTokenNotFound
	}
	if stored.Used {
		return passreset.ErrTokenAlreadyUsed
	}
	stored.Used = true
	user, ok := m.users[token.UserID]
	if !ok {
		return accounts.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

var (
	_ accounts.Storage          = (*memStore)(nil)
	_ twofactor.UserStore       = (*memStore)(nil)
	_ twofactor.BackupCodeStore = (*memStore)(nil)
	_ passreset.Store           = (*memStore)(nil)
	_ passreset.UserStore       = (*memStore)(nil)
)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *memStore) {
	t.Helper()

	store := newMemStore()
	jwtSvc, err := jwt.New("test-signing-key-0123456789abcdef")
	require.NoError(t, err)

	accountsSvc := accounts.NewService(store, jwtSvc, accounts.WithBcryptCost(4))
	markers := twofactor.NewMemoryMarkerStore(twofactor.DefaultMarkerTTL, 0)
	t.Cleanup(markers.Close)
	twofactorSvc := twofactor.NewService(store, store, markers, "CampusFix")
	passresetSvc := passreset.NewService(store, store, passreset.WithBcryptCost(4))
	notifs := notifications.NewManager(notifications.NewMemoryStorage(), notifications.NoOpDeliverer{})

	h := NewHandler(accountsSvc, twofactorSvc, passresetSvc, nil, notifs, opts...)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, client *http.Client, url string, body any, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func getJSON(t *testing.T, client *http.Client, url, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	resp, body := getJSON(t, srv.Client(), srv.URL+"/api/v1/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestRegisterLoginMe(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	client := srv.Client()

	resp, body := postJSON(t, client, srv.URL+"/api/v1/auth/register", map[string]string{
		"email":      "maria@campus.edu",
		"password":   "Sup3rSecret",
		"first_name": "Maria",
		"last_name":  "Lopez",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Contains(t, body, "tokens")

	resp, body = postJSON(t, client, srv.URL+"/api/v1/auth/login", map[string]string{
		"email":    "maria@campus.edu",
		"password": "Sup3rSecret",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tokens, ok := body["tokens"].(map[string]any)
	require.True(t, ok)
	access, _ := tokens["access_token"].(string)
	require.NotEmpty(t, access)

	resp, me := getJSON(t, client, srv.URL+"/api/v1/me/", access)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "maria@campus.edu", me["email"])

	resp, _ = getJSON(t, client, srv.URL+"/api/v1/me/", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	client := srv.Client()

	_, _ = postJSON(t, client, srv.URL+"/api/v1/auth/register", map[string]string{
		"email":    "jon@campus.edu",
		"password": "Sup3rSecret",
	}, "")

	resp, _ := postJSON(t, client, srv.URL+"/api/v1/auth/login", map[string]string{
		"email":    "jon@campus.edu",
		"password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTwoFactorLoginFlow(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)
	client := srv.Client()

	resp, body := postJSON(t, client, srv.URL+"/api/v1/auth/register", map[string]string{
		"email":    "kim@campus.edu",
		"password": "Sup3rSecret",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	access := body["tokens"].(map[string]any)["access_token"].(string)

	resp, setup := postJSON(t, client, srv.URL+"/api/v1/me/2fa/setup", map[string]string{}, access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, setup["secret"])

	// Enabled flag is flipped directly; computing a valid code here
	// would just re-test the TOTP package.
	user, err := store.GetUserByEmail(context.Background(), "kim@campus.edu")
	require.NoError(t, err)
	require.NoError(t, store.EnableTwoFactor(context.Background(), user.ID))

	resp, body = postJSON(t, client, srv.URL+"/api/v1/auth/login", map[string]string{
		"email":    "kim@campus.edu",
		"password": "Sup3rSecret",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["two_factor_required"])
	assert.NotContains(t, body, "tokens")
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, WithDevMode(true))
	client := srv.Client()

	_, _ = postJSON(t, client, srv.URL+"/api/v1/auth/register", map[string]string{
		"email":    "lee@campus.edu",
		"password": "Sup3rSecret",
	}, "")

	resp, body := postJSON(t, client, srv.URL+"/api/v1/auth/password/forgot", map[string]string{
		"email": "lee@campus.edu",
	}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	resp, _ = postJSON(t, client, srv.URL+"/api/v1/auth/password/reset", map[string]string{
		"token":    token,
		"password": "N3wSecret!",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, client, srv.URL+"/api/v1/auth/login", map[string]string{
		"email":    "lee@campus.edu",
		"password": "N3wSecret!",
	}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Same token again is rejected.
	resp, _ = postJSON(t, client, srv.URL+"/api/v1/auth/password/reset", map[string]string{
		"token":    token,
		"password": "An0therOne!",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPasswordResetReissueInvalidatesPrior(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, WithDevMode(true))
	client := srv.Client()

	_, _ = postJSON(t, client, srv.URL+"/api/v1/auth/register", map[string]string{
		"email":    "noa@campus.edu",
		"password": "Sup3rSecret",
	}, "")

	resp, body := postJSON(t, client, srv.URL+"/api/v1/auth/password/forgot", map[string]string{
		"email": "noa@campus.edu",
	}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	first, _ := body["token"].(string)
	require.NotEmpty(t, first)

	resp, body = postJSON(t, client, srv.URL+"/api/v1/auth/password/forgot", map[string]string{
		"email": "noa@campus.edu",
	}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	second, _ := body["token"].(string)
	require.NotEmpty(t, second)
	require.NotEqual(t, first, second)

	// The earlier token died the moment the second was issued.
	resp, _ = postJSON(t, client, srv.URL+"/api/v1/auth/password/reset", map[string]string{
		"token":    first,
		"password": "N3wSecret!",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, client, srv.URL+"/api/v1/auth/password/reset", map[string]string{
		"token":    second,
		"password": "N3wSecret!",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, client, srv.URL+"/api/v1/auth/password/reset", map[string]string{
		"token":    second,
		"password": "An0therOne!",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, client, srv.URL+"/api/v1/auth/login", map[string]string{
		"email":    "noa@campus.edu",
		"password": "N3wSecret!",
	}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, WithDevMode(true))
	resp, body := postJSON(t, srv.Client(), srv.URL+"/api/v1/auth/password/forgot", map[string]string{
		"email": "nobody@campus.edu",
	}, "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.NotContains(t, body, "token")
}

func TestAuthRateLimit(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	client := srv.Client()

	var last int
	for i := 0; i < 12; i++ {
		resp, _ := postJSON(t, client, srv.URL+"/api/v1/auth/login", map[string]string{
			"email":    fmt.Sprintf("probe%d@campus.edu", i),
			"password": "whatever1!",
		}, "")
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRefreshRoundTrip(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	client := srv.Client()

	_, body := postJSON(t, client, srv.URL+"/api/v1/auth/register", map[string]string{
		"email":    "ana@campus.edu",
		"password": "Sup3rSecret",
	}, "")
	refresh := body["tokens"].(map[string]any)["refresh_token"].(string)

	// Token payloads carry second-granularity timestamps; a later iat
	// guarantees a distinct token.
	time.Sleep(1100 * time.Millisecond)

	resp, pair := postJSON(t, client, srv.URL+"/api/v1/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, pair["access_token"])
	assert.NotEqual(t, refresh, pair["refresh_token"])
}
