package scoring

import (
	"fmt"
	"strings"
)

// ScoreObjective tallies correctness for one deterministic skill
// (listening or reading) across its sections in source order. Answers
// are looked up under "<skill>_<questionID>". Absent content yields a
// zero result rather than an error.
func ScoreObjective(sections []ObjectiveSection, answers map[string]any, skill string) SkillResult {
	res := SkillResult{Questions: []QuestionResult{}}
	for _, sec := range sections {
		for _, q := range sec.Questions {
			res.Total++
			raw := answers[skill+"_"+q.ID]
			userAnswer := answerString(raw)
			correct := isCorrect(q.Correct, userAnswer)
			if correct {
				res.Correct++
			}
			res.Questions = append(res.Questions, QuestionResult{
				QuestionID:  q.ID,
				UserAnswer:  userAnswer,
				Correct:     correct,
				Explanation: explain(correct, q.Correct),
			})
		}
	}
	res.Band = Band(res.Correct, res.Total)
	return res
}

// isCorrect compares the normalized user answer against the normalized
// correct answer, or any member when the key is a set. A missing or
// empty answer is never correct.
func isCorrect(correct []string, userAnswer string) bool {
	norm := normalizeAnswer(userAnswer)
	if norm == "" {
		return false
	}
	for _, c := range correct {
		if normalizeAnswer(c) == norm {
			return true
		}
	}
	return false
}

// normalizeAnswer trims, case-folds and collapses internal whitespace.
func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func explain(correct bool, key []string) string {
	if correct {
		return "Correct."
	}
	if len(key) == 0 {
		return "Incorrect."
	}
	return fmt.Sprintf("Incorrect. Expected: %s", strings.Join(key, " / "))
}

// answerString renders a raw submitted value for comparison. Answers
// arrive as decoded JSON, so anything non-string is stringified.
func answerString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
