package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hearth/infrastructure"
	"hearth/internal/user"
)

type memoryUserRepo struct {
	byEmail map[string]*user.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{byEmail: make(map[string]*user.User)}
}

func (m *memoryUserRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, infrastructure.ErrUserNotFound
}

func (m *memoryUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, infrastructure.ErrUserNotFound
	}
	return u, nil
}

func (m *memoryUserRepo) Create(_ context.Context, u *user.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return infrastructure.ErrUserAlreadyExists
	}
	m.byEmail[u.Email] = u
	return nil
}

func (m *memoryUserRepo) SetPresence(context.Context, uuid.UUID, bool, time.Time) error {
	return nil
}

func (m *memoryUserRepo) DeviceTokens(context.Context, []uuid.UUID) ([]string, error) {
	return nil, nil
}

func (m *memoryUserRepo) Emails(context.Context, []uuid.UUID) ([]string, error) { return nil, nil }

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegister(t *testing.T) {
	repo := newMemoryUserRepo()
	h := NewJSONHandler(repo, NewTokens(testSecret, time.Hour), 60)

	rec := postJSON(t, h.Register, map[string]string{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "curiosity-killed-the-cat-9",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	require.NotEmpty(t, body["user_id"])

	u, err := repo.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, body["user_id"], u.ID.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("curiosity-killed-the-cat-9")),
		"stored hash verifies against the original password")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMemoryUserRepo()
	h := NewJSONHandler(repo, NewTokens(testSecret, time.Hour), 60)

	input := map[string]string{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "curiosity-killed-the-cat-9",
	}
	require.Equal(t, http.StatusCreated, postJSON(t, h.Register, input).Code)
	assert.Equal(t, http.StatusConflict, postJSON(t, h.Register, input).Code)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	h := NewJSONHandler(newMemoryUserRepo(), NewTokens(testSecret, time.Hour), 60)

	rec := postJSON(t, h.Register, map[string]string{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "123456",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	h := NewJSONHandler(newMemoryUserRepo(), NewTokens(testSecret, time.Hour), 60)

	rec := postJSON(t, h.Register, map[string]string{"password": "curiosity-killed-the-cat-9"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	repo := newMemoryUserRepo()
	tokens := NewTokens(testSecret, time.Hour)
	h := NewJSONHandler(repo, tokens, 60)

	require.Equal(t, http.StatusCreated, postJSON(t, h.Register, map[string]string{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "curiosity-killed-the-cat-9",
	}).Code)

	rec := postJSON(t, h.Login, map[string]string{
		"email":    "alice@example.com",
		"password": "curiosity-killed-the-cat-9",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)

	claims, err := tokens.Validate(body["access_token"])
	require.NoError(t, err)
	assert.Equal(t, body["user_id"], claims.UserID.String())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newMemoryUserRepo()
	h := NewJSONHandler(repo, NewTokens(testSecret, time.Hour), 60)

	require.Equal(t, http.StatusCreated, postJSON(t, h.Register, map[string]string{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "curiosity-killed-the-cat-9",
	}).Code)

	rec := postJSON(t, h.Login, map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, h.Login, map[string]string{
		"email":    "nobody@example.com",
		"password": "curiosity-killed-the-cat-9",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
