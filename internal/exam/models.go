package exam

import (
	"encoding/json"
	"fmt"
)

type Type string

const (
	TypeFull      Type = "full"
	TypeListening Type = "listening"
	TypeReading   Type = "reading"
	TypeWriting   Type = "writing"
	TypeSpeaking  Type = "speaking"
)

// AnswerKey is a correct answer that may arrive as a single string or a
// set of acceptable strings in the content JSON.
type AnswerKey []string

func (k *AnswerKey) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*k = AnswerKey{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err == nil {
		*k = AnswerKey(many)
		return nil
	}
	return fmt.Errorf("correctAnswer must be a string or an array of strings")
}

func (k AnswerKey) MarshalJSON() ([]byte, error) {
	if len(k) == 1 {
		return json.Marshal(k[0])
	}
	return json.Marshal([]string(k))
}

type Question struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"` // multiple-choice, fill-blank, true-false, matching, short-answer
	Prompt        string    `json:"question"`
	Options       []string  `json:"options,omitempty"`
	CorrectAnswer AnswerKey `json:"correctAnswer,omitempty"`
	Points        float64   `json:"points"`
}

type ListeningSection struct {
	SectionNumber int        `json:"sectionNumber"`
	AudioURL      string     `json:"audioUrl,omitempty"`
	Transcript    string     `json:"transcript,omitempty"`
	Questions     []Question `json:"questions"`
}

type ReadingPassage struct {
	PassageNumber int        `json:"passageNumber"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Questions     []Question `json:"questions"`
}

type WritingTask struct {
	TaskNumber  int    `json:"taskNumber"`
	Type        string `json:"type"` // "task1" or "task2"
	Title       string `json:"title"`
	Description string `json:"description"`
	WordCount   int    `json:"wordCount"`
	ImageURL    string `json:"imageUrl,omitempty"` // task 1 graphs/charts
}

type SpeakingPart struct {
	PartNumber  int      `json:"partNumber"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Questions   []string `json:"questions,omitempty"`
	Topic       string   `json:"topic,omitempty"`
	TimeLimit   int      `json:"timeLimit,omitempty"`
}

type ListeningContent struct {
	Sections       []ListeningSection `json:"sections"`
	TotalQuestions int                `json:"totalQuestions"`
}

type ReadingContent struct {
	Passages       []ReadingPassage `json:"passages"`
	TotalQuestions int              `json:"totalQuestions"`
}

type WritingContent struct {
	Tasks []WritingTask `json:"tasks"`
}

type SpeakingContent struct {
	Parts []SpeakingPart `json:"parts"`
}

// Content is the exam's skill sections as a closed set of tagged
// variants. A nil skill pointer means the exam does not test that skill.
type Content struct {
	Description  string            `json:"description,omitempty"`
	ExamDuration int               `json:"examDuration"` // minutes
	Listening    *ListeningContent `json:"listening,omitempty"`
	Reading      *ReadingContent   `json:"reading,omitempty"`
	Writing      *WritingContent   `json:"writing,omitempty"`
	Speaking     *SpeakingContent  `json:"speaking,omitempty"`
}

type Exam struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Type      Type    `json:"type"`
	Content   Content `json:"content"`
	CreatedAt int64   `json:"created_at,omitempty"`
}

type Summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  Type   `json:"type"`
}

type AttemptStatus string

const (
	StatusDraft     AttemptStatus = "draft"
	StatusSubmitted AttemptStatus = "submitted"
	StatusScored    AttemptStatus = "scored"
)

// Attempt crosses draft (entitlement proof), submitted (answers in,
// scoring pending) and scored. Never deleted by the scoring path.
type Attempt struct {
	ID        string         `json:"id"`
	ExamID    string         `json:"exam_id"`
	UserID    string         `json:"user_id"`
	Status    AttemptStatus  `json:"status"`
	Answers   map[string]any `json:"answers"`
	CreatedAt int64          `json:"created_at"`
	UpdatedAt int64          `json:"updated_at"`
}

// Score is created once at the submit-and-score transition, one-to-one
// with its attempt.
type Score struct {
	ID        string  `json:"id"`
	AttemptID string  `json:"-"`
	Listening float64 `json:"listening"`
	Reading   float64 `json:"reading"`
	Writing   float64 `json:"writing"`
	Speaking  float64 `json:"speaking"`
	Overall   float64 `json:"overall"`
}
