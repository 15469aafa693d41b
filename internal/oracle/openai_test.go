package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatResponse(t *testing.T, content any) []byte {
	t.Helper()
	inner, err := json.Marshal(content)
	require.NoError(t, err)
	out, err := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"content": string(inner)}}},
	})
	require.NoError(t, err)
	return out
}

func TestScoreWritingParsesResponse(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write(chatResponse(t, map[string]any{
			"task1": map[string]any{"score": 6.5, "taskAchievement": "good", "overallFeedback": "solid"},
			"task2": map[string]any{"score": 7.0, "taskResponse": "strong", "overallFeedback": "well argued"},
		}))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	res, err := c.ScoreWriting(context.Background(), "essay one", "essay two", "Letter", "Essay")
	require.NoError(t, err)

	assert.Equal(t, 6.5, res.Task1Score)
	assert.Equal(t, 7.0, res.Task2Score)
	assert.Contains(t, res.Task1Feedback, "good")
	assert.Contains(t, res.Task2Feedback, "well argued")

	rf, ok := gotReq["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", rf["type"], "responses must be constrained to JSON")
}

func TestScoreWritingClampsOutOfRangeScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(chatResponse(t, map[string]any{
			"task1": map[string]any{"score": 12.0},
			"task2": map[string]any{"score": -3.0},
		}))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	res, err := c.ScoreWriting(context.Background(), "a", "b", "", "")
	require.NoError(t, err)
	assert.Equal(t, 9.0, res.Task1Score)
	assert.Equal(t, 0.0, res.Task2Score)
}

func TestScoreSpeakingParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(chatResponse(t, map[string]any{
			"score": 7.5, "fluency": "natural pace", "overallFeedback": "confident delivery",
		}))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	res, err := c.ScoreSpeaking(context.Background(), "my transcript", 2, "Hometown")
	require.NoError(t, err)
	assert.Equal(t, 7.5, res.Score)
	assert.Contains(t, res.Feedback, "natural pace")
	assert.Contains(t, res.Feedback, "confident delivery")
}

func TestUpstreamErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"rate_limit_exceeded","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	_, err := c.ScoreSpeaking(context.Background(), "t", 1, "topic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestMissingAPIKey(t *testing.T) {
	c := New(Config{}, nil)
	_, err := c.ScoreWriting(context.Background(), "a", "b", "", "")
	assert.Error(t, err)
	_, err = c.ScoreSpeaking(context.Background(), "t", 1, "")
	assert.Error(t, err)
	_, err = c.Transcribe(context.Background(), []byte("x"), 1)
	assert.Error(t, err)
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		_, _ = w.Write([]byte(`{"text":"hello from the recording"}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	text, err := c.Transcribe(context.Background(), []byte("webm-bytes"), 1)
	require.NoError(t, err)
	assert.Equal(t, "hello from the recording", text)
}
