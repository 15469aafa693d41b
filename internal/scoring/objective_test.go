package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listeningSections() []ObjectiveSection {
	return []ObjectiveSection{
		{Questions: []ObjectiveQuestion{
			{ID: "q1", Prompt: "First speaker's name?", Correct: []string{"Sarah"}},
			{ID: "q2", Prompt: "Meeting time?", Correct: []string{"10 am", "10:00"}},
		}},
	}
}

func TestScoreObjectivePartialCredit(t *testing.T) {
	answers := map[string]any{
		"listening_q1": "sarah", // case-insensitive match
		"listening_q2": "noon",
	}
	res := ScoreObjective(listeningSections(), answers, SkillListening)

	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 4.0, res.Band) // 50%

	require.Len(t, res.Questions, 2)
	assert.True(t, res.Questions[0].Correct)
	assert.Equal(t, "Correct.", res.Questions[0].Explanation)
	assert.False(t, res.Questions[1].Correct)
	assert.Equal(t, "Incorrect. Expected: 10 am / 10:00", res.Questions[1].Explanation)
}

func TestScoreObjectiveAnswerSet(t *testing.T) {
	answers := map[string]any{"listening_q2": "  10:00  "}
	res := ScoreObjective(listeningSections(), answers, SkillListening)
	assert.True(t, res.Questions[1].Correct, "any member of the accepted set matches")
}

func TestScoreObjectiveWhitespaceNormalization(t *testing.T) {
	sections := []ObjectiveSection{{Questions: []ObjectiveQuestion{
		{ID: "q1", Correct: []string{"New   York"}},
	}}}
	res := ScoreObjective(sections, map[string]any{"listening_q1": " new york "}, SkillListening)
	assert.Equal(t, 1, res.Correct)
}

func TestScoreObjectiveMissingAnswers(t *testing.T) {
	res := ScoreObjective(listeningSections(), map[string]any{}, SkillListening)
	assert.Equal(t, 0, res.Correct)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 0.0, res.Band)
	for _, q := range res.Questions {
		assert.False(t, q.Correct)
		assert.Empty(t, q.UserAnswer)
	}
}

func TestScoreObjectiveEmptyAnswerNeverMatchesEmptyKey(t *testing.T) {
	sections := []ObjectiveSection{{Questions: []ObjectiveQuestion{
		{ID: "q1", Correct: []string{""}},
	}}}
	res := ScoreObjective(sections, map[string]any{"listening_q1": ""}, SkillListening)
	assert.Equal(t, 0, res.Correct)
}

func TestScoreObjectiveSkillKeyIsolation(t *testing.T) {
	// a reading answer must not satisfy a listening question with the same ID
	answers := map[string]any{"reading_q1": "Sarah"}
	res := ScoreObjective(listeningSections(), answers, SkillListening)
	assert.Equal(t, 0, res.Correct)
}

func TestScoreObjectiveNonStringAnswer(t *testing.T) {
	sections := []ObjectiveSection{{Questions: []ObjectiveQuestion{
		{ID: "q1", Correct: []string{"42"}},
	}}}
	res := ScoreObjective(sections, map[string]any{"listening_q1": float64(42)}, SkillListening)
	assert.Equal(t, 1, res.Correct, "JSON numbers are stringified before comparison")
}

func TestScoreObjectiveNoContent(t *testing.T) {
	res := ScoreObjective(nil, map[string]any{"listening_q1": "x"}, SkillListening)
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 0.0, res.Band)
	assert.Empty(t, res.Questions)
}
