package exam

import (
	"github.com/bandmaster/bandmaster/internal/scoring"
	"github.com/bandmaster/bandmaster/internal/user"
)

// ScoringView projects the exam's content into the minimal shape the
// scorers need, answer keys included.
func ScoringView(e Exam) scoring.ExamView {
	var v scoring.ExamView
	c := e.Content

	if c.Listening != nil {
		v.Listening = make([]scoring.ObjectiveSection, 0, len(c.Listening.Sections))
		for _, s := range c.Listening.Sections {
			v.Listening = append(v.Listening, objectiveSection(s.Questions))
		}
	}
	if c.Reading != nil {
		v.Reading = make([]scoring.ObjectiveSection, 0, len(c.Reading.Passages))
		for _, p := range c.Reading.Passages {
			v.Reading = append(v.Reading, objectiveSection(p.Questions))
		}
	}
	if c.Writing != nil {
		v.Writing = make([]scoring.WritingTaskView, 0, len(c.Writing.Tasks))
		for _, t := range c.Writing.Tasks {
			v.Writing = append(v.Writing, scoring.WritingTaskView{
				TaskNumber: t.TaskNumber,
				Type:       t.Type,
				Title:      t.Title,
			})
		}
	}
	if c.Speaking != nil {
		v.Speaking = make([]scoring.SpeakingPartView, 0, len(c.Speaking.Parts))
		for _, p := range c.Speaking.Parts {
			v.Speaking = append(v.Speaking, scoring.SpeakingPartView{
				PartNumber: p.PartNumber,
				Title:      p.Title,
				Topic:      p.Topic,
			})
		}
	}
	return v
}

func objectiveSection(qs []Question) scoring.ObjectiveSection {
	sec := scoring.ObjectiveSection{Questions: make([]scoring.ObjectiveQuestion, 0, len(qs))}
	for _, q := range qs {
		sec.Questions = append(sec.Questions, scoring.ObjectiveQuestion{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Correct: []string(q.CorrectAnswer),
		})
	}
	return sec
}

type UserSummary struct {
	ID      string        `json:"id"`
	Login   string        `json:"login"`
	Role    string        `json:"role"`
	Profile *user.Profile `json:"profile,omitempty"`
}

// AttemptView is the serialized attempt returned to clients: attempt
// metadata, exam/user summaries, score and the detailed breakdown.
type AttemptView struct {
	ID        string           `json:"id"`
	Answers   map[string]any   `json:"answers"`
	Status    AttemptStatus    `json:"status"`
	CreatedAt int64            `json:"createdAt"`
	UpdatedAt int64            `json:"updatedAt"`
	Exam      *Summary         `json:"exam"`
	User      *UserSummary     `json:"user"`
	Score     *Score           `json:"score"`
	Details   *scoring.Details `json:"detailedResults,omitempty"`
}

func summarizeUser(u user.User) *UserSummary {
	return &UserSummary{
		ID:      u.ID,
		Login:   u.Login,
		Role:    string(u.Role),
		Profile: u.Profile,
	}
}
