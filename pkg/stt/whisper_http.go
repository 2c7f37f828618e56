package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/talkloop/voiceagent/pkg/audio"
	"github.com/talkloop/voiceagent/pkg/voiceerr"
)

// WhisperHTTP is a reference Engine backed by any Whisper-compatible HTTP
// transcription endpoint (multipart file upload, JSON `{text: ...}`
// response). It exists for local development and tests; the production
// transcription model is out of scope.
type WhisperHTTP struct {
	apiKey     string
	url        string
	model      string
	sampleRate int
	client     *http.Client
}

// NewWhisperHTTP creates a reference transcription client. model defaults
// to "whisper-1".
func NewWhisperHTTP(apiKey, url, model string, sampleRate int) *WhisperHTTP {
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperHTTP{
		apiKey:     apiKey,
		url:        url,
		model:      model,
		sampleRate: sampleRate,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *WhisperHTTP) Name() string { return "whisper-http" }

// Transcribe converts samples to int16 PCM, wraps it in a WAV container,
// and uploads it as multipart form data.
func (s *WhisperHTTP) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	pcm := make([]int16, len(samples))
	for i, f := range samples {
		v := f * 32768.0
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		pcm[i] = int16(v)
	}
	buf := make([]byte, len(pcm)*2)
	for i, s16 := range pcm {
		buf[i*2] = byte(s16)
		buf[i*2+1] = byte(s16 >> 8)
	}
	wavData := audio.NewWavBuffer(buf, s.sampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("model", s.model); err != nil {
		return Result{}, voiceerr.STTError(err)
	}
	if opts.Language != "" {
		if err := writer.WriteField("language", opts.Language); err != nil {
			return Result{}, voiceerr.STTError(err)
		}
	}
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return Result{}, voiceerr.STTError(err)
	}
	if _, err := io.Copy(part, bytes.NewReader(wavData)); err != nil {
		return Result{}, voiceerr.STTError(err)
	}
	if err := writer.Close(); err != nil {
		return Result{}, voiceerr.STTError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return Result{}, voiceerr.STTError(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, voiceerr.STTError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Result{}, voiceerr.STTError(fmt.Errorf("transcription error (status %d): %s", resp.StatusCode, respBody))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, voiceerr.STTError(err)
	}

	return Result{Text: result.Text, Model: s.model, Language: opts.Language}, nil
}
