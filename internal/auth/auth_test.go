package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bandmaster/bandmaster/internal/apperr"
	"github.com/bandmaster/bandmaster/internal/user"
)

type oneUserStore struct{ u user.User }

func (s oneUserStore) FindByID(_ context.Context, id string) (user.User, error) {
	if id == s.u.ID {
		return s.u, nil
	}
	return user.User{}, apperr.NotFound("user not found")
}

func (s oneUserStore) FindByLogin(_ context.Context, login string) (user.User, error) {
	if login == s.u.Login {
		return s.u, nil
	}
	return user.User{}, apperr.NotFound("user not found")
}

func (s oneUserStore) Create(_ context.Context, u user.User) (user.User, error) { return u, nil }

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret")

	tok, err := svc.IssueJWT("u1", "student")
	require.NoError(t, err)

	claims, err := svc.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Sub)
	assert.Equal(t, "student", claims.Role)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	tok, err := NewService("secret-a").IssueJWT("u1", "admin")
	require.NoError(t, err)

	_, err = NewService("secret-b").Parse(tok)
	assert.Error(t, err)
}

func TestLoginHandler(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	users := oneUserStore{u: user.User{ID: "u1", Login: "alice", PasswordHash: string(hash), Role: user.RoleStudent}}
	svc := NewService("test-secret")
	h := LoginHandler(svc, users)

	t.Run("valid credentials", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"login":"alice","password":"hunter22"}`))
		rec := httptest.NewRecorder()
		h(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "access_token")
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"login":"alice","password":"nope"}`))
		rec := httptest.NewRecorder()
		h(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"login":"bob","password":"hunter22"}`))
		rec := httptest.NewRecorder()
		h(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestJWTMiddleware(t *testing.T) {
	svc := NewService("test-secret")
	var gotSub, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
	})
	mw := JWTMiddleware(svc)(next)

	tok, err := svc.IssueJWT("u1", "admin")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", gotSub)
	assert.Equal(t, "admin", gotRole)

	req = httptest.NewRequest("GET", "/me", nil)
	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "missing bearer token")

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
