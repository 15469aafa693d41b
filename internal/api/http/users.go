package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/bandmaster/bandmaster/internal/apperr"
	"github.com/bandmaster/bandmaster/internal/auth"
	"github.com/bandmaster/bandmaster/internal/billing"
	"github.com/bandmaster/bandmaster/internal/user"
)

type registerRequest struct {
	Login     string `json:"login" validate:"required,min=3,max=64"`
	Password  string `json:"password" validate:"required,min=6,max=128"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=32"`
	City      string `json:"city" validate:"max=100"`
}

// POST /auth/register
func RegisterHandler(users user.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, apperr.Invalid("invalid registration: %v", err))
			return
		}
		if _, err := users.FindByLogin(r.Context(), req.Login); err == nil {
			writeError(w, apperr.Invalid("login %q is already taken", req.Login))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, err)
			return
		}
		created, err := users.Create(r.Context(), user.User{
			Login:        req.Login,
			PasswordHash: string(hash),
			Role:         user.RoleStudent,
			Profile: &user.Profile{
				FirstName: req.FirstName,
				LastName:  req.LastName,
				Phone:     req.Phone,
				City:      req.City,
			},
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":    created.ID,
			"login": created.Login,
			"role":  created.Role,
		})
	}
}

// GET /me
func MeHandler(users user.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		u, err := users.FindByID(r.Context(), sub)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      u.ID,
			"login":   u.Login,
			"role":    u.Role,
			"balance": u.Balance,
			"profile": u.Profile,
		})
	}
}

// GET /balance
func GetBalanceHandler(balance billing.Balance) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		amount, err := balance.Get(r.Context(), sub)
		if err != nil {
			writeError(w, err)
			return
		}
		hasEnough, err := balance.HasEnough(r.Context(), sub)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"balance": amount, "hasEnough": hasEnough})
	}
}

type creditRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// POST /users/{userID}/credit (admin top-up)
func CreditBalanceHandler(balance billing.Balance) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		var req creditRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, apperr.Invalid("invalid credit request: %v", err))
			return
		}
		if err := balance.Credit(r.Context(), userID, req.Amount); err != nil {
			writeError(w, err)
			return
		}
		amount, err := balance.Get(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"balance": amount})
	}
}
