package main

import (
	"context"
	"net/http"
	"time"

	api "github.com/bandmaster/bandmaster/internal/api/http"
	"github.com/bandmaster/bandmaster/internal/auth"
	"github.com/bandmaster/bandmaster/internal/billing"
	"github.com/bandmaster/bandmaster/internal/config"
	"github.com/bandmaster/bandmaster/internal/db"
	"github.com/bandmaster/bandmaster/internal/eventlog"
	"github.com/bandmaster/bandmaster/internal/exam"
	"github.com/bandmaster/bandmaster/internal/logging"
	"github.com/bandmaster/bandmaster/internal/metrics"
	"github.com/bandmaster/bandmaster/internal/oracle"
	"github.com/bandmaster/bandmaster/internal/scoring"
	"github.com/bandmaster/bandmaster/internal/storage"
	"github.com/bandmaster/bandmaster/internal/user"
)

func main() {
	cfg := config.Load()
	log := logging.New("gateway")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("db open failed")
	}

	users := user.NewSQLStore(dbh)
	store := exam.NewSQLStore(dbh)
	events := eventlog.New(dbh)
	m := metrics.New("gateway")

	blobs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.WithError(err).Fatal("blob store init failed")
	}

	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set, writing and speaking sections will score zero")
	}
	oc := oracle.New(oracle.Config{
		APIKey:       cfg.OpenAIAPIKey,
		Model:        cfg.OpenAIModel,
		WhisperModel: cfg.OpenAIWhisperModel,
		BaseURL:      cfg.OpenAIBaseURL,
	}, logging.Component(log, "oracle"))

	subjective := scoring.NewSubjective(oc, oc, blobs, logging.Component(log, "scoring"), m)
	scorer := scoring.NewComposite(subjective)

	balance := billing.NewSQLBalance(dbh, db.Driver(cfg.DBDriver), cfg.ExamCost)
	gate := billing.NewGate(balance, store, cfg.ExamCost, events, logging.Component(log, "billing"), m)

	authSvc := auth.NewService(cfg.AuthSecret)
	svc := exam.NewService(store, users, scorer, events, logging.Component(log, "exam"), m)

	// pick attempts stranded mid-scoring back up before serving traffic
	if err := svc.RecoverPending(context.Background()); err != nil {
		log.WithError(err).Warn("pending attempt recovery failed")
	}

	r := api.NewRouter(api.Deps{
		Exams:       svc,
		Users:       users,
		Auth:        authSvc,
		Gate:        gate,
		Balance:     balance,
		Log:         log,
		Metrics:     m,
		DB:          dbh,
		CORSOrigins: cfg.CORSOrigins,
	})

	log.WithField("addr", cfg.HTTPAddr).WithField("db", cfg.DBDriver).Info("listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
