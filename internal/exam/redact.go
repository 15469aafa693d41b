package exam

// Redact strips correct answers from the student-facing exam view.
// Only listening and reading carry an answer key; writing and speaking
// content is returned as-is.
func Redact(e Exam) Exam {
	c := e.Content

	if c.Listening != nil {
		lc := *c.Listening
		lc.Sections = make([]ListeningSection, len(c.Listening.Sections))
		for i, s := range c.Listening.Sections {
			s.Questions = stripAnswers(s.Questions)
			lc.Sections[i] = s
		}
		c.Listening = &lc
	}

	if c.Reading != nil {
		rc := *c.Reading
		rc.Passages = make([]ReadingPassage, len(c.Reading.Passages))
		for i, p := range c.Reading.Passages {
			p.Questions = stripAnswers(p.Questions)
			rc.Passages[i] = p
		}
		c.Reading = &rc
	}

	e.Content = c
	return e
}

func stripAnswers(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		q.CorrectAnswer = nil
		out[i] = q
	}
	return out
}
