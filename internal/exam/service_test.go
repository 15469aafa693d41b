package exam

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandmaster/bandmaster/internal/apperr"
	"github.com/bandmaster/bandmaster/internal/scoring"
	"github.com/bandmaster/bandmaster/internal/user"
)

// memStore is an in-memory Store for lifecycle tests.
type memStore struct {
	exams    map[string]Exam
	attempts map[string]Attempt
	scores   map[string]Score // keyed by attempt id
	details  map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		exams:    map[string]Exam{},
		attempts: map[string]Attempt{},
		scores:   map[string]Score{},
		details:  map[string]string{},
	}
}

func (m *memStore) PutExam(_ context.Context, e Exam) (Exam, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.exams[e.ID] = e
	return e, nil
}

func (m *memStore) GetExam(_ context.Context, id string) (Exam, error) {
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, apperr.NotFound("exam %s not found", id)
	}
	return e, nil
}

func (m *memStore) ListExams(_ context.Context) ([]Summary, error) {
	out := make([]Summary, 0, len(m.exams))
	for _, e := range m.exams {
		out = append(out, Summary{ID: e.ID, Title: e.Title, Type: e.Type})
	}
	return out, nil
}

func (m *memStore) FindDraft(_ context.Context, userID, examID string) (Attempt, error) {
	for _, a := range m.attempts {
		if a.UserID == userID && a.ExamID == examID && a.Status == StatusDraft {
			return a, nil
		}
	}
	return Attempt{}, apperr.NotFound("no draft attempt")
}

func (m *memStore) CreateDraft(_ context.Context, userID, examID string) (Attempt, error) {
	a := Attempt{ID: uuid.NewString(), UserID: userID, ExamID: examID, Status: StatusDraft, Answers: map[string]any{}}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *memStore) CreateSubmitted(_ context.Context, userID, examID string, answers map[string]any) (Attempt, error) {
	a := Attempt{ID: uuid.NewString(), UserID: userID, ExamID: examID, Status: StatusSubmitted, Answers: answers}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *memStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, apperr.NotFound("attempt %s not found", id)
	}
	return a, nil
}

func (m *memStore) SaveAttempt(_ context.Context, a Attempt) error {
	m.attempts[a.ID] = a
	return nil
}

func (m *memStore) ListSubmitted(_ context.Context) ([]Attempt, error) {
	var out []Attempt
	for _, a := range m.attempts {
		if a.Status == StatusSubmitted {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]Attempt, error) {
	var out []Attempt
	for _, a := range m.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListAll(_ context.Context) ([]Attempt, error) {
	var out []Attempt
	for _, a := range m.attempts {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) SaveScore(_ context.Context, sc Score, detailsJSON string) (Score, error) {
	if existing, ok := m.scores[sc.AttemptID]; ok {
		sc.ID = existing.ID
	} else if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	m.scores[sc.AttemptID] = sc
	m.details[sc.AttemptID] = detailsJSON
	return sc, nil
}

func (m *memStore) GetScoreByAttempt(_ context.Context, attemptID string) (Score, string, error) {
	sc, ok := m.scores[attemptID]
	if !ok {
		return Score{}, "", apperr.NotFound("no score for attempt")
	}
	return sc, m.details[attemptID], nil
}

type memUsers struct {
	users map[string]user.User
}

func (m *memUsers) FindByID(_ context.Context, id string) (user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return user.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (m *memUsers) FindByLogin(_ context.Context, login string) (user.User, error) {
	for _, u := range m.users {
		if u.Login == login {
			return u, nil
		}
	}
	return user.User{}, apperr.NotFound("user not found")
}

func (m *memUsers) Create(_ context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	m.users[u.ID] = u
	return u, nil
}

// stubScorer returns a fixed result and counts invocations.
type stubScorer struct {
	result scoring.Result
	calls  int
}

func (s *stubScorer) Score(context.Context, scoring.ExamView, map[string]any) scoring.Result {
	s.calls++
	return s.result
}

func listeningExam() Exam {
	return Exam{
		ID:    "e1",
		Title: "Listening Mock 1",
		Type:  TypeListening,
		Content: Content{
			Listening: &ListeningContent{Sections: []ListeningSection{{
				Questions: []Question{{ID: "q1", Prompt: "?", CorrectAnswer: AnswerKey{"a"}}},
			}}},
		},
	}
}

func newTestService(store Store, users user.Store, scorer Scorer) *Service {
	return NewService(store, users, scorer, nil, nil, nil)
}

func TestSubmitPromotesDraft(t *testing.T) {
	store := newMemStore()
	users := &memUsers{users: map[string]user.User{"u1": {ID: "u1", Login: "alice", Role: user.RoleStudent}}}
	scorer := &stubScorer{result: scoring.Result{Listening: 9.0, Overall: 2.3}}
	svc := newTestService(store, users, scorer)

	_, err := store.PutExam(context.Background(), listeningExam())
	require.NoError(t, err)
	draft, err := store.CreateDraft(context.Background(), "u1", "e1")
	require.NoError(t, err)

	view, err := svc.Submit(context.Background(), "e1", "u1", map[string]any{"listening_q1": "a"})
	require.NoError(t, err)

	assert.Equal(t, draft.ID, view.ID, "the open draft is promoted, not a new attempt")
	assert.Equal(t, StatusScored, view.Status)
	require.NotNil(t, view.Score)
	assert.Equal(t, 9.0, view.Score.Listening)
	assert.Equal(t, 2.3, view.Score.Overall)
	require.NotNil(t, view.User)
	assert.Equal(t, "alice", view.User.Login)
	assert.Equal(t, 1, scorer.calls)
	assert.Len(t, store.attempts, 1)
}

func TestSubmitWithoutDraftStillCounts(t *testing.T) {
	store := newMemStore()
	users := &memUsers{users: map[string]user.User{"u1": {ID: "u1", Login: "alice"}}}
	svc := newTestService(store, users, &stubScorer{})

	_, err := store.PutExam(context.Background(), listeningExam())
	require.NoError(t, err)

	view, err := svc.Submit(context.Background(), "e1", "u1", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, StatusScored, view.Status)
	assert.Len(t, store.attempts, 1)
}

func TestSubmitUnknownExam(t *testing.T) {
	store := newMemStore()
	users := &memUsers{users: map[string]user.User{"u1": {ID: "u1"}}}
	svc := newTestService(store, users, &stubScorer{})

	_, err := svc.Submit(context.Background(), "missing", "u1", nil)
	assert.True(t, apperr.IsNotFound(err))
}

func TestSubmitUnknownUser(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &memUsers{users: map[string]user.User{}}, &stubScorer{})

	_, err := store.PutExam(context.Background(), listeningExam())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "e1", "ghost", nil)
	assert.True(t, apperr.IsNotFound(err))
}

func TestResubmitOverwritesScore(t *testing.T) {
	store := newMemStore()
	users := &memUsers{users: map[string]user.User{"u1": {ID: "u1"}}}
	scorer := &stubScorer{result: scoring.Result{Listening: 4.0, Overall: 1.0}}
	svc := newTestService(store, users, scorer)

	_, err := store.PutExam(context.Background(), listeningExam())
	require.NoError(t, err)

	first, err := svc.Submit(context.Background(), "e1", "u1", map[string]any{})
	require.NoError(t, err)

	// force the attempt back to draft and submit again with a better result
	a := store.attempts[first.ID]
	a.Status = StatusDraft
	store.attempts[a.ID] = a
	scorer.result = scoring.Result{Listening: 9.0, Overall: 2.3}

	second, err := svc.Submit(context.Background(), "e1", "u1", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 9.0, second.Score.Listening)
	assert.Len(t, store.scores, 1, "the score row is upserted per attempt, never duplicated")
}

func TestRecoverPendingScoresStuckAttempts(t *testing.T) {
	store := newMemStore()
	users := &memUsers{users: map[string]user.User{"u1": {ID: "u1"}}}
	scorer := &stubScorer{result: scoring.Result{Listening: 6.0, Overall: 1.5}}
	svc := newTestService(store, users, scorer)

	_, err := store.PutExam(context.Background(), listeningExam())
	require.NoError(t, err)
	stuck, err := store.CreateSubmitted(context.Background(), "u1", "e1", map[string]any{"listening_q1": "a"})
	require.NoError(t, err)

	require.NoError(t, svc.RecoverPending(context.Background()))

	assert.Equal(t, StatusScored, store.attempts[stuck.ID].Status)
	sc, _, err := store.GetScoreByAttempt(context.Background(), stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, sc.Listening)
	assert.Equal(t, 1, scorer.calls)
}

func TestRecoverPendingSkipsBrokenAttempts(t *testing.T) {
	store := newMemStore()
	users := &memUsers{users: map[string]user.User{"u1": {ID: "u1"}}}
	scorer := &stubScorer{result: scoring.Result{Overall: 1.0}}
	svc := newTestService(store, users, scorer)

	_, err := store.PutExam(context.Background(), listeningExam())
	require.NoError(t, err)
	// orphan references an exam that no longer exists
	orphan, err := store.CreateSubmitted(context.Background(), "u1", "gone", nil)
	require.NoError(t, err)
	ok, err := store.CreateSubmitted(context.Background(), "u1", "e1", nil)
	require.NoError(t, err)

	require.NoError(t, svc.RecoverPending(context.Background()))

	assert.Equal(t, StatusSubmitted, store.attempts[orphan.ID].Status, "broken attempts are left for inspection")
	assert.Equal(t, StatusScored, store.attempts[ok.ID].Status)
}

func TestCreateExamValidation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &memUsers{users: map[string]user.User{}}, &stubScorer{})

	_, err := svc.CreateExam(context.Background(), Exam{Type: TypeListening})
	assert.True(t, apperr.IsInvalid(err), "missing title")

	bad := listeningExam()
	bad.Content.Listening.Sections[0].Questions[0].CorrectAnswer = nil
	_, err = svc.CreateExam(context.Background(), bad)
	assert.True(t, apperr.IsInvalid(err), "objective question without an answer key")

	_, err = svc.CreateExam(context.Background(), listeningExam())
	assert.NoError(t, err)
}

func TestGetExamIsRedacted(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &memUsers{users: map[string]user.User{}}, &stubScorer{})

	_, err := store.PutExam(context.Background(), listeningExam())
	require.NoError(t, err)

	e, err := svc.GetExam(context.Background(), "e1")
	require.NoError(t, err)
	require.NotNil(t, e.Content.Listening)
	assert.Nil(t, e.Content.Listening.Sections[0].Questions[0].CorrectAnswer)

	// the stored exam keeps its key
	full, err := store.GetExam(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, AnswerKey{"a"}, full.Content.Listening.Sections[0].Questions[0].CorrectAnswer)
}
