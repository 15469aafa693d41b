package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bandmaster/bandmaster/internal/apperr"
	"github.com/bandmaster/bandmaster/internal/auth"
	"github.com/bandmaster/bandmaster/internal/exam"
)

type submitRequest struct {
	Answers map[string]any `json:"answers"`
}

// POST /exams/{examID}/submit
func SubmitAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		sub := auth.SubjectFromContext(r.Context())

		var req submitRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.Answers == nil {
			req.Answers = map[string]any{}
		}

		view, err := svc.Submit(r.Context(), examID, sub, req.Answers)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// GET /attempts/{attemptID}
//
// Students may only read their own attempts. Admins may read any.
func GetAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		sub := auth.SubjectFromContext(r.Context())
		role := auth.RoleFromContext(r.Context())

		view, err := svc.GetAttempt(r.Context(), attemptID)
		if err != nil {
			writeError(w, err)
			return
		}
		if role != "admin" && (view.User == nil || view.User.ID != sub) {
			writeError(w, apperr.Forbidden("attempt belongs to another user"))
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// GET /users/{userID}/attempts
//
// A student may list their own history; admins may list anyone's.
func ListUserAttemptsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		sub := auth.SubjectFromContext(r.Context())
		role := auth.RoleFromContext(r.Context())

		if role != "admin" && userID != sub {
			writeError(w, apperr.Forbidden("cannot list another user's attempts"))
			return
		}
		list, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /attempts (admin)
func ListAllAttemptsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListAllAttempts(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
