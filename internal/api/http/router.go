// Package http wires the public REST surface. Handlers stay thin: decode,
// authorize, delegate to the service layer, encode.
package http

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/bandmaster/bandmaster/internal/auth"
	"github.com/bandmaster/bandmaster/internal/billing"
	"github.com/bandmaster/bandmaster/internal/exam"
	"github.com/bandmaster/bandmaster/internal/logging"
	"github.com/bandmaster/bandmaster/internal/metrics"
	"github.com/bandmaster/bandmaster/internal/rbac"
	"github.com/bandmaster/bandmaster/internal/user"
)

type Deps struct {
	Exams       *exam.Service
	Users       user.Store
	Auth        *auth.Service
	Gate        *billing.Gate
	Balance     billing.Balance
	Log         *logrus.Logger
	Metrics     *metrics.Metrics
	DB          *sql.DB
	CORSOrigins []string
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if d.Log != nil {
		r.Use(logging.RequestLogger(d.Log))
	}
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Users))
	r.Post("/auth/register", RegisterHandler(d.Users))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		pr.Get("/me", MeHandler(d.Users))

		pr.With(rbac.Require("exam:create")).
			Post("/exams", CreateExamHandler(d.Exams))
		pr.With(rbac.Require("exam:view")).
			Get("/exams", ListExamsHandler(d.Exams))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", GetExamHandler(d.Exams, d.Gate))

		pr.With(rbac.Require("attempt:submit")).
			Post("/exams/{examID}/submit", SubmitAttemptHandler(d.Exams))

		pr.With(rbac.Require("attempt:view-all")).
			Get("/attempts", ListAllAttemptsHandler(d.Exams))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", GetAttemptHandler(d.Exams))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/users/{userID}/attempts", ListUserAttemptsHandler(d.Exams))

		pr.With(rbac.Require("balance:view")).
			Get("/balance", GetBalanceHandler(d.Balance))
		pr.With(rbac.Require("balance:credit")).
			Post("/users/{userID}/credit", CreditBalanceHandler(d.Balance))
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			if err := d.DB.PingContext(r.Context()); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
