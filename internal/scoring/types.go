package scoring

import "context"

// Skill names used to build answer keys ("<skill>_<questionID>").
const (
	SkillListening = "listening"
	SkillReading   = "reading"
	SkillWriting   = "writing"
	SkillSpeaking  = "speaking"
)

// ObjectiveQuestion is the minimal view of a question needed for grading.
type ObjectiveQuestion struct {
	ID      string
	Prompt  string
	Correct []string // one entry, or a set of acceptable answers
}

// ObjectiveSection is one listening section or reading passage.
type ObjectiveSection struct {
	Questions []ObjectiveQuestion
}

type WritingTaskView struct {
	TaskNumber int
	Type       string // "task1" or "task2"
	Title      string
}

type SpeakingPartView struct {
	PartNumber int
	Title      string
	Topic      string
}

// ExamView is the grading-side projection of an exam's content. A nil
// slice means the exam does not define that skill.
type ExamView struct {
	Listening []ObjectiveSection
	Reading   []ObjectiveSection
	Writing   []WritingTaskView
	Speaking  []SpeakingPartView
}

type QuestionResult struct {
	QuestionID  string `json:"questionId"`
	UserAnswer  string `json:"userAnswer"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
}

type SkillResult struct {
	Band      float64          `json:"band"`
	Correct   int              `json:"correct"`
	Total     int              `json:"total"`
	Questions []QuestionResult `json:"questions"`
}

type WritingResult struct {
	Task1Score    float64 `json:"task1Score"`
	Task2Score    float64 `json:"task2Score"`
	OverallScore  float64 `json:"overallScore"`
	Task1Feedback string  `json:"task1Feedback"`
	Task2Feedback string  `json:"task2Feedback"`
}

type SpeakingPartResult struct {
	PartNumber int     `json:"partNumber"`
	Score      float64 `json:"score"`
	WordCount  int     `json:"wordCount"`
	Feedback   string  `json:"feedback"`
}

type SpeakingResult struct {
	Score float64              `json:"score"`
	Parts []SpeakingPartResult `json:"parts"`
}

// Details is the per-question/per-part breakdown returned with a scored
// attempt. Skills absent from the exam's content are omitted.
type Details struct {
	Listening *SkillResult    `json:"listening,omitempty"`
	Reading   *SkillResult    `json:"reading,omitempty"`
	Writing   *WritingResult  `json:"writing,omitempty"`
	Speaking  *SpeakingResult `json:"speaking,omitempty"`
}

type Result struct {
	Listening float64 `json:"listening"`
	Reading   float64 `json:"reading"`
	Writing   float64 `json:"writing"`
	Speaking  float64 `json:"speaking"`
	Overall   float64 `json:"overall"`
	Details   Details `json:"detailedResults"`
}

// OracleWritingResult is the normalized response of the external oracle
// for a writing task pair. Scores are raw per-task bands, not combined.
type OracleWritingResult struct {
	Task1Score    float64
	Task2Score    float64
	Task1Feedback string
	Task2Feedback string
}

type OracleSpeakingResult struct {
	Score    float64
	Feedback string
}

// Oracle is the external subjective-scoring provider. Implementations
// return errors freely; every call site here absorbs them into zeroed
// results so a scoring outage never fails an attempt.
type Oracle interface {
	ScoreWriting(ctx context.Context, task1, task2, task1Type, task2Type string) (OracleWritingResult, error)
	ScoreSpeaking(ctx context.Context, transcript string, partNumber int, topic string) (OracleSpeakingResult, error)
}

// Transcriber converts an audio payload to text. An empty transcript or
// a bracketed placeholder signals failure; errors are treated the same.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, partNumber int) (string, error)
}
