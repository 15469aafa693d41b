// Package oracle implements the scoring.Oracle and scoring.Transcriber
// collaborators against the OpenAI API. Callers must treat this client
// as unreliable: every error is meant to be absorbed into a zero score.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bandmaster/bandmaster/internal/scoring"
)

type Config struct {
	APIKey       string
	Model        string
	WhisperModel string
	BaseURL      string
	Timeout      time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *logrus.Entry
}

func New(cfg Config, log *logrus.Entry) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.WhisperModel == "" {
		cfg.WhisperModel = "whisper-1"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: log}
}

var _ scoring.Oracle = (*Client)(nil)
var _ scoring.Transcriber = (*Client)(nil)

const writingPrompt = `You are an IELTS examiner. Evaluate the following IELTS Writing responses according to official IELTS band descriptors (Task Achievement/Response, Coherence and Cohesion, Lexical Resource, Grammatical Range and Accuracy).

Task 1 (%s):
%s

Task 2 (%s):
%s

Provide scores for each task (0.0 to 9.0) and detailed feedback in the following JSON format:
{
  "task1": {"score": 0.0, "taskAchievement": "...", "coherence": "...", "lexicalResource": "...", "grammar": "...", "overallFeedback": "..."},
  "task2": {"score": 0.0, "taskResponse": "...", "coherence": "...", "lexicalResource": "...", "grammar": "...", "overallFeedback": "..."}
}

Be strict and accurate. Use official IELTS band descriptors.`

const speakingPrompt = `You are an IELTS examiner. Evaluate the following IELTS Speaking response (Part %d) according to official IELTS band descriptors (Fluency and Coherence, Lexical Resource, Grammatical Range and Accuracy, Pronunciation).

Topic: %s
Transcript:
%s

Provide a score (0.0 to 9.0) and detailed feedback in the following JSON format:
{"score": 0.0, "fluency": "...", "lexicalResource": "...", "grammar": "...", "pronunciation": "...", "overallFeedback": "..."}

Be strict and accurate. Use official IELTS band descriptors.`

func (c *Client) ScoreWriting(ctx context.Context, task1, task2, task1Type, task2Type string) (scoring.OracleWritingResult, error) {
	if c.cfg.APIKey == "" {
		return scoring.OracleWritingResult{}, errors.New("oracle api key not configured")
	}
	if task1Type == "" {
		task1Type = "General"
	}
	if task2Type == "" {
		task2Type = "Essay"
	}
	prompt := fmt.Sprintf(writingPrompt, task1Type, orDefault(task1, "No response provided"),
		task2Type, orDefault(task2, "No response provided"))

	content, err := c.chatJSON(ctx, prompt)
	if err != nil {
		return scoring.OracleWritingResult{}, err
	}

	var parsed struct {
		Task1 struct {
			Score           float64 `json:"score"`
			TaskAchievement string  `json:"taskAchievement"`
			Coherence       string  `json:"coherence"`
			LexicalResource string  `json:"lexicalResource"`
			Grammar         string  `json:"grammar"`
			OverallFeedback string  `json:"overallFeedback"`
		} `json:"task1"`
		Task2 struct {
			Score           float64 `json:"score"`
			TaskResponse    string  `json:"taskResponse"`
			Coherence       string  `json:"coherence"`
			LexicalResource string  `json:"lexicalResource"`
			Grammar         string  `json:"grammar"`
			OverallFeedback string  `json:"overallFeedback"`
		} `json:"task2"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return scoring.OracleWritingResult{}, fmt.Errorf("parse oracle response: %w", err)
	}

	return scoring.OracleWritingResult{
		Task1Score: clampBand(parsed.Task1.Score),
		Task2Score: clampBand(parsed.Task2.Score),
		Task1Feedback: fmt.Sprintf("Task Achievement: %s\nCoherence: %s\nLexical Resource: %s\nGrammar: %s\n\n%s",
			orDefault(parsed.Task1.TaskAchievement, "N/A"), orDefault(parsed.Task1.Coherence, "N/A"),
			orDefault(parsed.Task1.LexicalResource, "N/A"), orDefault(parsed.Task1.Grammar, "N/A"),
			parsed.Task1.OverallFeedback),
		Task2Feedback: fmt.Sprintf("Task Response: %s\nCoherence: %s\nLexical Resource: %s\nGrammar: %s\n\n%s",
			orDefault(parsed.Task2.TaskResponse, "N/A"), orDefault(parsed.Task2.Coherence, "N/A"),
			orDefault(parsed.Task2.LexicalResource, "N/A"), orDefault(parsed.Task2.Grammar, "N/A"),
			parsed.Task2.OverallFeedback),
	}, nil
}

func (c *Client) ScoreSpeaking(ctx context.Context, transcript string, partNumber int, topic string) (scoring.OracleSpeakingResult, error) {
	if c.cfg.APIKey == "" {
		return scoring.OracleSpeakingResult{}, errors.New("oracle api key not configured")
	}
	prompt := fmt.Sprintf(speakingPrompt, partNumber, orDefault(topic, "General topic"), transcript)

	content, err := c.chatJSON(ctx, prompt)
	if err != nil {
		return scoring.OracleSpeakingResult{}, err
	}

	var parsed struct {
		Score           float64 `json:"score"`
		Fluency         string  `json:"fluency"`
		LexicalResource string  `json:"lexicalResource"`
		Grammar         string  `json:"grammar"`
		Pronunciation   string  `json:"pronunciation"`
		OverallFeedback string  `json:"overallFeedback"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return scoring.OracleSpeakingResult{}, fmt.Errorf("parse oracle response: %w", err)
	}

	feedback := fmt.Sprintf("Fluency: %s\nLexical Resource: %s\nGrammar: %s\nPronunciation: %s\n\n%s",
		orDefault(parsed.Fluency, "N/A"), orDefault(parsed.LexicalResource, "N/A"),
		orDefault(parsed.Grammar, "N/A"), orDefault(parsed.Pronunciation, "N/A"),
		parsed.OverallFeedback)

	return scoring.OracleSpeakingResult{Score: clampBand(parsed.Score), Feedback: feedback}, nil
}

// chatJSON runs one chat completion constrained to a JSON object and
// returns the message content.
func (c *Client) chatJSON(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": "You are an expert IELTS examiner. Always respond with valid JSON only, no additional text."},
			{"role": "user", "content": prompt},
		},
		"temperature":     0.3,
		"response_format": map[string]string{"type": "json_object"},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return "", c.apiError(res)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("empty oracle response")
	}
	return out.Choices[0].Message.Content, nil
}

// Transcribe sends the audio payload to the transcription endpoint.
func (c *Client) Transcribe(ctx context.Context, audio []byte, partNumber int) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New("oracle api key not configured")
	}
	if len(audio) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fmt.Sprintf("speaking_part%d.webm", partNumber))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	_ = mw.WriteField("model", c.cfg.WhisperModel)
	_ = mw.WriteField("language", "en")
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return "", c.apiError(res)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *Client) apiError(res *http.Response) error {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.NewDecoder(res.Body).Decode(&body)
	if body.Error.Code == "insufficient_quota" {
		c.log.Error("oracle quota exhausted, check API billing")
	}
	if body.Error.Message != "" {
		return fmt.Errorf("oracle: %s (%s)", body.Error.Message, res.Status)
	}
	return fmt.Errorf("oracle: %s", res.Status)
}

func clampBand(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 9 {
		return 9
	}
	return v
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
