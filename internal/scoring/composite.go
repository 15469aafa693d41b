package scoring

import "context"

// Composite combines the four skill scorers into one attempt score.
type Composite struct {
	subjective *Subjective
}

func NewComposite(subjective *Subjective) *Composite {
	return &Composite{subjective: subjective}
}

// Score grades every skill the exam's content defines. Skills absent
// from the content contribute 0 and are left out of the breakdown.
//
// The overall band divides by 4 unconditionally, including for partial
// exam types that define fewer skills. That mirrors the shipped product
// behavior and is deliberately not "fixed" here.
func (c *Composite) Score(ctx context.Context, view ExamView, answers map[string]any) Result {
	var res Result

	if view.Listening != nil {
		sr := ScoreObjective(view.Listening, answers, SkillListening)
		res.Listening = sr.Band
		res.Details.Listening = &sr
	}
	if view.Reading != nil {
		sr := ScoreObjective(view.Reading, answers, SkillReading)
		res.Reading = sr.Band
		res.Details.Reading = &sr
	}
	if view.Writing != nil {
		wr := c.subjective.ScoreWriting(ctx, view.Writing, answers)
		res.Writing = wr.OverallScore
		res.Details.Writing = wr
	}
	if view.Speaking != nil {
		sp := c.subjective.ScoreSpeaking(ctx, view.Speaking, answers)
		res.Speaking = sp.Score
		res.Details.Speaking = sp
	}

	res.Overall = round1((res.Listening + res.Reading + res.Writing + res.Speaking) / 4)
	return res
}
