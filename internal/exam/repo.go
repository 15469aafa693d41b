package exam

import "context"

// ExamStore is the catalog side of persistence.
type ExamStore interface {
	PutExam(ctx context.Context, e Exam) (Exam, error)
	GetExam(ctx context.Context, id string) (Exam, error) // full exam, answer keys included
	ListExams(ctx context.Context) ([]Summary, error)
}

// AttemptStore persists attempts. Loaders are explicit about what they
// hydrate so each operation states exactly which relations it needs.
type AttemptStore interface {
	FindDraft(ctx context.Context, userID, examID string) (Attempt, error)
	CreateDraft(ctx context.Context, userID, examID string) (Attempt, error)
	CreateSubmitted(ctx context.Context, userID, examID string, answers map[string]any) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	SaveAttempt(ctx context.Context, a Attempt) error
	ListSubmitted(ctx context.Context) ([]Attempt, error)
	ListByUser(ctx context.Context, userID string) ([]Attempt, error)
	ListAll(ctx context.Context) ([]Attempt, error)
}

// ScoreStore persists the one-to-one attempt score plus its detailed
// breakdown. SaveScore is an upsert by attempt so re-scoring an attempt
// stuck in "submitted" stays idempotent.
type ScoreStore interface {
	SaveScore(ctx context.Context, sc Score, detailsJSON string) (Score, error)
	GetScoreByAttempt(ctx context.Context, attemptID string) (Score, string, error)
}

// Store is the full persistence collaborator the lifecycle manager uses.
type Store interface {
	ExamStore
	AttemptStore
	ScoreStore
}
