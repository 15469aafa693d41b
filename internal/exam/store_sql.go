package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bandmaster/bandmaster/internal/apperr"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) PutExam(ctx context.Context, e Exam) (Exam, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().Unix()
	cj, err := json.Marshal(e.Content)
	if err != nil {
		return Exam{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO exams (id,title,type,content_json,created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, type=EXCLUDED.type, content_json=EXCLUDED.content_json`,
		e.ID, e.Title, e.Type, string(cj), e.CreatedAt)
	if err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,type,content_json,created_at FROM exams WHERE id=$1`, id)
	var e Exam
	var cjson string
	if err := row.Scan(&e.ID, &e.Title, &e.Type, &cjson, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, apperr.NotFound("exam not found")
		}
		return Exam{}, err
	}
	if err := json.Unmarshal([]byte(cjson), &e.Content); err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) ListExams(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,title,type FROM exams ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Summary{}
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.Type); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *SQLStore) FindDraft(ctx context.Context, userID, examID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,exam_id,user_id,status,answers_json,created_at,updated_at
		 FROM attempts WHERE user_id=$1 AND exam_id=$2 AND status='draft'`,
		userID, examID)
	return scanAttempt(row)
}

func (s *SQLStore) CreateDraft(ctx context.Context, userID, examID string) (Attempt, error) {
	return s.insertAttempt(ctx, userID, examID, StatusDraft, map[string]any{})
}

func (s *SQLStore) CreateSubmitted(ctx context.Context, userID, examID string, answers map[string]any) (Attempt, error) {
	return s.insertAttempt(ctx, userID, examID, StatusSubmitted, answers)
}

func (s *SQLStore) insertAttempt(ctx context.Context, userID, examID string, status AttemptStatus, answers map[string]any) (Attempt, error) {
	if answers == nil {
		answers = map[string]any{}
	}
	now := time.Now().Unix()
	a := Attempt{
		ID:        uuid.NewString(),
		ExamID:    examID,
		UserID:    userID,
		Status:    status,
		Answers:   answers,
		CreatedAt: now,
		UpdatedAt: now,
	}
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return Attempt{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempts (id,exam_id,user_id,status,answers_json,created_at,updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.ExamID, a.UserID, a.Status, string(aj), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,exam_id,user_id,status,answers_json,created_at,updated_at FROM attempts WHERE id=$1`, id)
	return scanAttempt(row)
}

func (s *SQLStore) SaveAttempt(ctx context.Context, a Attempt) error {
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE attempts SET status=$1, answers_json=$2, updated_at=$3 WHERE id=$4`,
		a.Status, string(aj), time.Now().Unix(), a.ID)
	return err
}

func (s *SQLStore) ListSubmitted(ctx context.Context) ([]Attempt, error) {
	return s.listAttempts(ctx,
		`SELECT id,exam_id,user_id,status,answers_json,created_at,updated_at
		 FROM attempts WHERE status='submitted' ORDER BY created_at`)
}

func (s *SQLStore) ListByUser(ctx context.Context, userID string) ([]Attempt, error) {
	return s.listAttempts(ctx,
		`SELECT id,exam_id,user_id,status,answers_json,created_at,updated_at
		 FROM attempts WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (s *SQLStore) ListAll(ctx context.Context) ([]Attempt, error) {
	return s.listAttempts(ctx,
		`SELECT id,exam_id,user_id,status,answers_json,created_at,updated_at
		 FROM attempts ORDER BY created_at DESC`)
}

func (s *SQLStore) listAttempts(ctx context.Context, query string, args ...any) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var ajson string
	if err := row.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &ajson, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, apperr.NotFound("attempt not found")
		}
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
		a.Answers = map[string]any{}
	}
	return a, nil
}

func (s *SQLStore) SaveScore(ctx context.Context, sc Score, detailsJSON string) (Score, error) {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO scores
		(id,attempt_id,listening,reading,writing,speaking,overall,details_json)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (attempt_id) DO UPDATE SET
		  listening=EXCLUDED.listening, reading=EXCLUDED.reading,
		  writing=EXCLUDED.writing, speaking=EXCLUDED.speaking,
		  overall=EXCLUDED.overall, details_json=EXCLUDED.details_json`,
		sc.ID, sc.AttemptID, sc.Listening, sc.Reading, sc.Writing, sc.Speaking, sc.Overall, detailsJSON)
	if err != nil {
		return Score{}, err
	}
	return s.getScore(ctx, sc.AttemptID)
}

func (s *SQLStore) getScore(ctx context.Context, attemptID string) (Score, error) {
	sc, _, err := s.GetScoreByAttempt(ctx, attemptID)
	return sc, err
}

func (s *SQLStore) GetScoreByAttempt(ctx context.Context, attemptID string) (Score, string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,attempt_id,listening,reading,writing,speaking,overall,details_json
		 FROM scores WHERE attempt_id=$1`, attemptID)
	var sc Score
	var details string
	if err := row.Scan(&sc.ID, &sc.AttemptID, &sc.Listening, &sc.Reading, &sc.Writing,
		&sc.Speaking, &sc.Overall, &details); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Score{}, "", apperr.NotFound("score not found")
		}
		return Score{}, "", err
	}
	return sc, details, nil
}

// IsUniqueViolation reports whether an insert lost the race against the
// partial unique index on draft attempts.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
