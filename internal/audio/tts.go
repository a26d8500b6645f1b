package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/debate-arena/client-go/pkg/voice"
)

const ttsAPIVersion = "2025-04-16"

// Synthesizer calls a Cartesia-style bytes TTS endpoint: POST the transcript
// plus voice spec, receive raw audio in the response body.
type Synthesizer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSynthesizer builds a synthesizer for the endpoint at baseURL.
func NewSynthesizer(baseURL, apiKey string) *Synthesizer {
	return &Synthesizer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// NewSynthesizerWithClient builds a synthesizer with a custom HTTP client.
func NewSynthesizerWithClient(baseURL, apiKey string, client *http.Client) *Synthesizer {
	s := NewSynthesizer(baseURL, apiKey)
	s.httpClient = client
	return s
}

type ttsRequest struct {
	ModelID          string         `json:"model_id"`
	Transcript       string         `json:"transcript"`
	Voice            ttsVoiceSpec   `json:"voice"`
	OutputFormat     ttsOutput      `json:"output_format"`
	GenerationConfig *ttsGeneration `json:"generation_config,omitempty"`
}

type ttsVoiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type ttsOutput struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

type ttsGeneration struct {
	Speed float64 `json:"speed,omitempty"`
	Pitch float64 `json:"pitch,omitempty"`
}

// Synthesize converts text to audio with the handle's voice, pitch and rate.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, v voice.Handle) ([]byte, error) {
	reqBody := ttsRequest{
		ModelID:    "sonic-3",
		Transcript: text,
		Voice:      ttsVoiceSpec{Mode: "id", ID: v.VoiceID},
		OutputFormat: ttsOutput{
			Container:  "wav",
			Encoding:   "pcm_s16le",
			SampleRate: 24000,
		},
	}
	if v.Rate != 0 || v.Pitch != 0 {
		reqBody.GenerationConfig = &ttsGeneration{Speed: v.Rate, Pitch: v.Pitch}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("tts: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Cartesia-Version", ttsAPIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return []byte{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("tts: error %d: %s", resp.StatusCode, string(errBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: read audio: %w", err)
	}
	return audio, nil
}
