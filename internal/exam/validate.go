package exam

import (
	"github.com/bandmaster/bandmaster/internal/apperr"
)

// ValidateContent runs consistency checks at the content-ingestion
// boundary. Objective questions must carry an id and an answer key;
// identifiers must be unique within their skill.
func ValidateContent(t Type, c Content) error {
	switch t {
	case TypeFull, TypeListening, TypeReading, TypeWriting, TypeSpeaking:
	default:
		return apperr.Invalid("unknown exam type: %s", t)
	}

	if c.Listening != nil {
		seen := map[string]bool{}
		for _, s := range c.Listening.Sections {
			if err := checkQuestions(s.Questions, "listening", seen); err != nil {
				return err
			}
		}
	}
	if c.Reading != nil {
		seen := map[string]bool{}
		for _, p := range c.Reading.Passages {
			if err := checkQuestions(p.Questions, "reading", seen); err != nil {
				return err
			}
		}
	}
	if c.Writing != nil {
		seen := map[string]bool{}
		for _, t := range c.Writing.Tasks {
			if t.Type != "task1" && t.Type != "task2" {
				return apperr.Invalid("writing task %d: type must be task1 or task2", t.TaskNumber)
			}
			if seen[t.Type] {
				return apperr.Invalid("duplicate writing task type: %s", t.Type)
			}
			seen[t.Type] = true
		}
	}
	if c.Speaking != nil {
		seen := map[int]bool{}
		for _, p := range c.Speaking.Parts {
			if p.PartNumber <= 0 {
				return apperr.Invalid("speaking part numbers must be positive")
			}
			if seen[p.PartNumber] {
				return apperr.Invalid("duplicate speaking part number: %d", p.PartNumber)
			}
			seen[p.PartNumber] = true
		}
	}
	return nil
}

func checkQuestions(qs []Question, skill string, seen map[string]bool) error {
	for _, q := range qs {
		if q.ID == "" {
			return apperr.Invalid("%s question id is required", skill)
		}
		if seen[q.ID] {
			return apperr.Invalid("duplicate %s question id: %s", skill, q.ID)
		}
		seen[q.ID] = true
		if len(q.CorrectAnswer) == 0 {
			return apperr.Invalid("%s question %s: correctAnswer is required", skill, q.ID)
		}
	}
	return nil
}
