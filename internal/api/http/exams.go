package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bandmaster/bandmaster/internal/apperr"
	"github.com/bandmaster/bandmaster/internal/auth"
	"github.com/bandmaster/bandmaster/internal/billing"
	"github.com/bandmaster/bandmaster/internal/exam"
)

var validate = validator.New()

type createExamRequest struct {
	Title   string       `json:"title" validate:"required,min=1,max=200"`
	Type    exam.Type    `json:"type" validate:"required"`
	Content exam.Content `json:"content"`
}

// POST /exams (admin)
func CreateExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createExamRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, apperr.Invalid("invalid exam: %v", err))
			return
		}
		created, err := svc.CreateExam(r.Context(), exam.Exam{
			Title:   req.Title,
			Type:    req.Type,
			Content: req.Content,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// GET /exams
func ListExamsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListExams(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /exams/{examID}
//
// This is the paid surface: the entitlement gate runs before the exam is
// returned, so the first successful fetch charges the caller and opens a
// draft attempt. Repeat fetches ride the open draft for free.
func GetExamHandler(svc *exam.Service, gate *billing.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		sub := auth.SubjectFromContext(r.Context())

		if err := gate.EnsureAccess(r.Context(), sub, examID); err != nil {
			writeError(w, err)
			return
		}
		e, err := svc.GetExam(r.Context(), examID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}
