package scoring

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bandmaster/bandmaster/internal/metrics"
	"github.com/bandmaster/bandmaster/internal/storage"
)

// Subjective orchestrates externally-delegated scoring for writing and
// speaking. Oracle and transcription failures are absorbed here: the
// worst case is a zeroed result carrying diagnostic feedback.
type Subjective struct {
	oracle  Oracle
	stt     Transcriber
	blobs   storage.BlobStore // optional; persists submitted audio
	log     *logrus.Entry
	metrics *metrics.Metrics
}

func NewSubjective(oracle Oracle, stt Transcriber, blobs storage.BlobStore, log *logrus.Entry, m *metrics.Metrics) *Subjective {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Subjective{oracle: oracle, stt: stt, blobs: blobs, log: log, metrics: m}
}

const (
	noResponseFeedback  = "No response provided."
	oracleDownFeedback  = "Automated scoring is temporarily unavailable; this task was scored 0. Please contact support if the problem persists."
	noUsableTranscript  = "No usable response for this part."
	transcriptionFailed = "The recorded audio could not be transcribed; this part was scored 0."
)

// ScoreWriting grades the two writing tasks through the oracle. The
// combined score weights task 2 double; a single answered task stands
// alone; two empty tasks short-circuit without calling the oracle.
func (s *Subjective) ScoreWriting(ctx context.Context, tasks []WritingTaskView, answers map[string]any) *WritingResult {
	task1 := strings.TrimSpace(answerString(answers["writing_task1"]))
	task2 := strings.TrimSpace(answerString(answers["writing_task2"]))

	if task1 == "" && task2 == "" {
		return &WritingResult{
			Task1Feedback: noResponseFeedback,
			Task2Feedback: noResponseFeedback,
		}
	}

	var t1Type, t2Type string
	for _, t := range tasks {
		switch t.Type {
		case "task1":
			t1Type = t.Title
		case "task2":
			t2Type = t.Title
		}
	}

	or, err := s.oracle.ScoreWriting(ctx, task1, task2, t1Type, t2Type)
	if err != nil {
		s.metrics.IncOracleCall("writing", "error")
		s.log.WithError(err).Warn("writing oracle call failed, scoring 0")
		return &WritingResult{
			Task1Feedback: oracleDownFeedback,
			Task2Feedback: oracleDownFeedback,
		}
	}
	s.metrics.IncOracleCall("writing", "ok")

	res := &WritingResult{
		Task1Score:    or.Task1Score,
		Task2Score:    or.Task2Score,
		Task1Feedback: or.Task1Feedback,
		Task2Feedback: or.Task2Feedback,
	}
	switch {
	case task1 != "" && task2 != "":
		res.OverallScore = round1((or.Task1Score + 2*or.Task2Score) / 3)
	case task1 != "":
		res.OverallScore = or.Task1Score
		res.Task2Feedback = noResponseFeedback
	default:
		res.OverallScore = or.Task2Score
		res.Task1Feedback = noResponseFeedback
	}
	return res
}

// ScoreSpeaking resolves a transcript per part (text answer first, then
// transcribed audio), scores the usable ones through the oracle, and
// averages over the usable parts only. Oracle calls per part run
// concurrently and are individually fault-isolated.
func (s *Subjective) ScoreSpeaking(ctx context.Context, parts []SpeakingPartView, answers map[string]any) *SpeakingResult {
	res := &SpeakingResult{Parts: make([]SpeakingPartResult, len(parts))}

	type job struct {
		idx        int
		transcript string
		part       SpeakingPartView
	}
	var jobs []job

	for i, p := range parts {
		res.Parts[i] = SpeakingPartResult{PartNumber: p.PartNumber}
		transcript := s.resolveTranscript(ctx, p.PartNumber, answers)
		trimmed := strings.TrimSpace(transcript)
		if trimmed == "" || strings.HasPrefix(trimmed, "[") {
			res.Parts[i].Feedback = noUsableTranscript
			continue
		}
		res.Parts[i].WordCount = len(strings.Fields(trimmed))
		jobs = append(jobs, job{idx: i, transcript: trimmed, part: p})
	}

	if len(jobs) == 0 {
		return res
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			topic := j.part.Topic
			if topic == "" {
				topic = j.part.Title
			}
			or, err := s.oracle.ScoreSpeaking(gctx, j.transcript, j.part.PartNumber, topic)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.metrics.IncOracleCall("speaking", "error")
				s.log.WithError(err).WithField("part", j.part.PartNumber).
					Warn("speaking oracle call failed, scoring 0")
				res.Parts[j.idx].Feedback = oracleDownFeedback
				return nil
			}
			s.metrics.IncOracleCall("speaking", "ok")
			res.Parts[j.idx].Score = or.Score
			res.Parts[j.idx].Feedback = or.Feedback
			return nil
		})
	}
	_ = g.Wait()

	sum := 0.0
	for _, j := range jobs {
		sum += res.Parts[j.idx].Score
	}
	res.Score = round1(sum / float64(len(jobs)))
	return res
}

// resolveTranscript prefers a direct text answer; otherwise it decodes
// the audio payload, keeps a copy in blob storage, and transcribes it.
// Every failure path returns "" so the part is treated as unanswered.
func (s *Subjective) resolveTranscript(ctx context.Context, partNumber int, answers map[string]any) string {
	if text := answerString(answers[fmt.Sprintf("speaking_part%d", partNumber)]); strings.TrimSpace(text) != "" {
		return text
	}
	payload := answerString(answers[fmt.Sprintf("speaking_part%d_audio", partNumber)])
	if payload == "" {
		return ""
	}
	audio, err := decodeAudio(payload)
	if err != nil || len(audio) == 0 {
		s.metrics.IncTranscriptionFailure()
		return ""
	}
	if s.blobs != nil {
		key := fmt.Sprintf("speaking/part%d_%d.webm", partNumber, time.Now().UnixNano())
		if _, err := s.blobs.Put(key, bytes.NewReader(audio)); err != nil {
			s.log.WithError(err).Warn("persisting speaking audio failed")
		}
	}
	if s.stt == nil {
		s.metrics.IncTranscriptionFailure()
		return ""
	}
	transcript, err := s.stt.Transcribe(ctx, audio, partNumber)
	if err != nil {
		s.metrics.IncTranscriptionFailure()
		s.log.WithError(err).WithField("part", partNumber).Warn("transcription failed")
		return ""
	}
	return transcript
}

// decodeAudio accepts raw base64 or a data URI ("data:...;base64,....").
func decodeAudio(payload string) ([]byte, error) {
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}
