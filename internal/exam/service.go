package exam

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bandmaster/bandmaster/internal/apperr"
	"github.com/bandmaster/bandmaster/internal/eventlog"
	"github.com/bandmaster/bandmaster/internal/metrics"
	"github.com/bandmaster/bandmaster/internal/scoring"
	"github.com/bandmaster/bandmaster/internal/user"
)

// Scorer grades a full attempt. Satisfied by scoring.Composite.
type Scorer interface {
	Score(ctx context.Context, view scoring.ExamView, answers map[string]any) scoring.Result
}

// Service owns the attempt lifecycle: draft -> submitted -> scored.
// Submission and scoring happen in one synchronous pass.
type Service struct {
	store   Store
	users   user.Store
	scorer  Scorer
	events  *eventlog.Log
	log     *logrus.Entry
	metrics *metrics.Metrics
}

func NewService(store Store, users user.Store, scorer Scorer, events *eventlog.Log, log *logrus.Entry, m *metrics.Metrics) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{store: store, users: users, scorer: scorer, events: events, log: log, metrics: m}
}

func (s *Service) CreateExam(ctx context.Context, e Exam) (Exam, error) {
	if e.Title == "" {
		return Exam{}, apperr.Invalid("title is required")
	}
	if err := ValidateContent(e.Type, e.Content); err != nil {
		return Exam{}, err
	}
	return s.store.PutExam(ctx, e)
}

func (s *Service) ListExams(ctx context.Context) ([]Summary, error) {
	return s.store.ListExams(ctx)
}

// GetExam returns the student-facing exam with every correct answer
// stripped. Entitlement is the caller's concern (the gate runs first).
func (s *Service) GetExam(ctx context.Context, id string) (Exam, error) {
	e, err := s.store.GetExam(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	return Redact(e), nil
}

// Submit promotes the user's draft attempt (or defensively creates a
// submitted one), scores it synchronously and persists the result.
func (s *Service) Submit(ctx context.Context, examID, userID string, answers map[string]any) (AttemptView, error) {
	e, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return AttemptView{}, err
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return AttemptView{}, err
	}
	if answers == nil {
		answers = map[string]any{}
	}

	a, err := s.store.FindDraft(ctx, userID, examID)
	switch {
	case err == nil:
		a.Answers = answers
		a.Status = StatusSubmitted
		if err := s.store.SaveAttempt(ctx, a); err != nil {
			return AttemptView{}, fmt.Errorf("save submitted attempt: %w", err)
		}
	case apperr.IsNotFound(err):
		// No draft means the gate never ran for this attempt. Should not
		// happen under correct client flow, but submission still counts.
		a, err = s.store.CreateSubmitted(ctx, userID, examID, answers)
		if err != nil {
			return AttemptView{}, fmt.Errorf("create submitted attempt: %w", err)
		}
	default:
		return AttemptView{}, err
	}

	_ = s.events.Append(ctx, eventlog.TypeAttemptSubmitted, a.ID, map[string]string{
		"exam_id": examID, "user_id": userID,
	})

	sc, details, err := s.scoreAttempt(ctx, e, &a)
	if err != nil {
		return AttemptView{}, err
	}

	view := AttemptView{
		ID:        a.ID,
		Answers:   a.Answers,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
		Exam:      &Summary{ID: e.ID, Title: e.Title, Type: e.Type},
		User:      summarizeUser(u),
		Score:     &sc,
		Details:   details,
	}
	return view, nil
}

// scoreAttempt computes and persists the score, then marks the attempt
// scored. It is idempotent per attempt: the score row is keyed by
// attempt id, so re-running for an attempt stuck in "submitted" simply
// overwrites the same row.
func (s *Service) scoreAttempt(ctx context.Context, e Exam, a *Attempt) (Score, *scoring.Details, error) {
	result := s.scorer.Score(ctx, ScoringView(e), a.Answers)

	detailsJSON, err := json.Marshal(result.Details)
	if err != nil {
		return Score{}, nil, err
	}
	sc := Score{
		AttemptID: a.ID,
		Listening: result.Listening,
		Reading:   result.Reading,
		Writing:   result.Writing,
		Speaking:  result.Speaking,
		Overall:   result.Overall,
	}
	sc, err = s.store.SaveScore(ctx, sc, string(detailsJSON))
	if err != nil {
		return Score{}, nil, fmt.Errorf("save score: %w", err)
	}

	a.Status = StatusScored
	if err := s.store.SaveAttempt(ctx, *a); err != nil {
		return Score{}, nil, fmt.Errorf("mark attempt scored: %w", err)
	}
	s.metrics.IncAttemptScored()
	_ = s.events.Append(ctx, eventlog.TypeAttemptScored, a.ID, sc)

	details := result.Details
	return sc, &details, nil
}

// RecoverPending re-scores attempts left in "submitted" by a crash
// between submission and scoring. Safe to run at every startup.
func (s *Service) RecoverPending(ctx context.Context) error {
	attempts, err := s.store.ListSubmitted(ctx)
	if err != nil {
		return err
	}
	for _, a := range attempts {
		e, err := s.store.GetExam(ctx, a.ExamID)
		if err != nil {
			s.log.WithError(err).WithField("attempt_id", a.ID).Warn("recovery: exam load failed")
			continue
		}
		a := a
		if _, _, err := s.scoreAttempt(ctx, e, &a); err != nil {
			s.log.WithError(err).WithField("attempt_id", a.ID).Warn("recovery: scoring failed")
			continue
		}
		s.log.WithField("attempt_id", a.ID).Info("recovered stuck attempt")
	}
	return nil
}

// GetAttempt loads an attempt with its exam, user and score hydrated.
func (s *Service) GetAttempt(ctx context.Context, id string) (AttemptView, error) {
	a, err := s.store.GetAttempt(ctx, id)
	if err != nil {
		return AttemptView{}, err
	}
	return s.hydrate(ctx, a, true)
}

// ListForUser loads a user's attempts with exam and score only: the
// owner is known, so the user relation is not re-fetched per row.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]AttemptView, error) {
	attempts, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.hydrateAll(ctx, attempts, false)
}

// ListAllAttempts is the admin view: every attempt with exam, user and
// score.
func (s *Service) ListAllAttempts(ctx context.Context) ([]AttemptView, error) {
	attempts, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.hydrateAll(ctx, attempts, true)
}

func (s *Service) hydrateAll(ctx context.Context, attempts []Attempt, withUser bool) ([]AttemptView, error) {
	out := make([]AttemptView, 0, len(attempts))
	for _, a := range attempts {
		v, err := s.hydrate(ctx, a, withUser)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) hydrate(ctx context.Context, a Attempt, withUser bool) (AttemptView, error) {
	v := AttemptView{
		ID:        a.ID,
		Answers:   a.Answers,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if e, err := s.store.GetExam(ctx, a.ExamID); err == nil {
		v.Exam = &Summary{ID: e.ID, Title: e.Title, Type: e.Type}
	}
	if withUser {
		if u, err := s.users.FindByID(ctx, a.UserID); err == nil {
			v.User = summarizeUser(u)
		}
	}
	if sc, detailsJSON, err := s.store.GetScoreByAttempt(ctx, a.ID); err == nil {
		v.Score = &sc
		if detailsJSON != "" {
			var d scoring.Details
			if json.Unmarshal([]byte(detailsJSON), &d) == nil {
				v.Details = &d
			}
		}
	}
	return v, nil
}
