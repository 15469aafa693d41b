package billing

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/bandmaster/bandmaster/internal/apperr"
	"github.com/bandmaster/bandmaster/internal/eventlog"
	"github.com/bandmaster/bandmaster/internal/exam"
	"github.com/bandmaster/bandmaster/internal/metrics"
)

// DraftStore is the slice of attempt persistence the gate needs: an
// existing draft attempt is the proof a user already paid for an exam.
type DraftStore interface {
	FindDraft(ctx context.Context, userID, examID string) (exam.Attempt, error)
	CreateDraft(ctx context.Context, userID, examID string) (exam.Attempt, error)
}

// Gate decides whether a user may open an exam, charging the balance
// exactly once per attempt. Retries and reloads reuse the draft attempt
// instead of charging again.
type Gate struct {
	balance  Balance
	attempts DraftStore
	events   *eventlog.Log
	log      *logrus.Entry
	metrics  *metrics.Metrics
	cost     float64

	// sf serializes the check-deduct-create critical section per
	// (user, exam) so two racing requests cannot both charge. The
	// partial unique index on draft attempts backstops multi-process
	// deployments.
	sf singleflight.Group
}

func NewGate(balance Balance, attempts DraftStore, examCost float64, events *eventlog.Log, log *logrus.Entry, m *metrics.Metrics) *Gate {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Gate{balance: balance, attempts: attempts, cost: examCost, events: events, log: log, metrics: m}
}

// EnsureAccess grants access when a draft attempt already exists, and
// otherwise charges the balance and records a new draft.
func (g *Gate) EnsureAccess(ctx context.Context, userID, examID string) error {
	if userID == "" {
		return apperr.Unauthenticated("user context is required")
	}

	if _, err := g.attempts.FindDraft(ctx, userID, examID); err == nil {
		g.metrics.IncDraftReuse()
		return nil
	} else if !apperr.IsNotFound(err) {
		return err
	}

	_, err, _ := g.sf.Do(userID+"|"+examID, func() (any, error) {
		return nil, g.chargeAndCreateDraft(ctx, userID, examID)
	})
	return err
}

func (g *Gate) chargeAndCreateDraft(ctx context.Context, userID, examID string) error {
	// Re-check under the lock: a racer may have just created the draft.
	if _, err := g.attempts.FindDraft(ctx, userID, examID); err == nil {
		g.metrics.IncDraftReuse()
		return nil
	} else if !apperr.IsNotFound(err) {
		return err
	}

	ok, err := g.balance.HasEnough(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		balance, _ := g.balance.Get(ctx, userID)
		return apperr.Forbidden("Insufficient balance. You need %.0f to take an exam. Your current balance: %.0f",
			g.cost, balance)
	}

	if err := g.balance.Deduct(ctx, userID); err != nil {
		return err
	}
	g.metrics.IncExamCharge()
	_ = g.events.Append(ctx, eventlog.TypeBalanceCharged, userID, map[string]any{
		"exam_id": examID, "amount": g.cost,
	})

	a, err := g.attempts.CreateDraft(ctx, userID, examID)
	if err != nil {
		if exam.IsUniqueViolation(err) {
			// Another process won the race after we charged; the draft
			// exists, so access stands. The double charge is repaired by
			// refunding our deduction.
			g.log.WithFields(logrus.Fields{"user_id": userID, "exam_id": examID}).
				Warn("draft race lost after charge, refunding")
			return g.balance.Credit(ctx, userID, g.cost)
		}
		return err
	}
	_ = g.events.Append(ctx, eventlog.TypeDraftCreated, a.ID, map[string]string{
		"exam_id": examID, "user_id": userID,
	})
	g.log.WithFields(logrus.Fields{"user_id": userID, "exam_id": examID, "attempt_id": a.ID}).
		Info("exam access charged")
	return nil
}
