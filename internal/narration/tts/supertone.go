package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"scenecast/internal/failure"
	"scenecast/internal/llm"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultSupertoneURL   = "https://supertoneapi.com"
	DefaultSupertoneModel = "sona_speech_1"

	supertoneKeyHeader = "x-sup-api-key"
)

// SupertoneEngine calls the Supertone text-to-speech REST API
type SupertoneEngine struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type supertoneRequest struct {
	Text          string                 `json:"text"`
	Language      string                 `json:"language"`
	Model         string                 `json:"model"`
	VoiceSettings supertoneVoiceSettings `json:"voice_settings"`
}

type supertoneVoiceSettings struct {
	Speed         float64 `json:"speed"`
	PitchShift    int     `json:"pitch_shift"`
	PitchVariance int     `json:"pitch_variance"`
}

func NewSupertoneEngine(cfg SupertoneConfig) (*SupertoneEngine, error) {
	if cfg.APIKey == "" {
		return nil, failure.Newf(failure.Permanent, "supertone", "API key is not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSupertoneURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultSupertoneModel
	}

	return &SupertoneEngine{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

func (s *SupertoneEngine) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if req.Voice == "" {
		return nil, failure.Newf(failure.Permanent, "supertone", "no voice selected")
	}
	language := req.Language
	if language == "" {
		language = "ko"
	}

	body, err := json.Marshal(supertoneRequest{
		Text:     req.Text,
		Language: language,
		Model:    s.model,
		VoiceSettings: supertoneVoiceSettings{
			Speed:         req.Speed,
			PitchShift:    req.Pitch,
			PitchVariance: 1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", s.baseURL, url.PathEscape(req.Voice))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set(supertoneKeyHeader, s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, llm.Wrap("supertone", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, failure.Newf(failure.VoiceNotFound, "supertone", "voice %q not found", req.Voice)
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, failure.Newf(llm.KindForStatus(resp.StatusCode), "supertone", "Error (%d): %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.New(failure.Transient, "supertone", fmt.Errorf("failed to read audio: %w", err))
	}
	if len(data) == 0 {
		return nil, failure.Newf(failure.Empty, "supertone", "empty audio response")
	}

	logrus.WithFields(logrus.Fields{
		"voice": req.Voice,
		"bytes": len(data),
	}).Debug("Supertone synthesis complete")
	return data, nil
}

// ListVoices accepts either {"items": [...]} or a bare list
func (s *SupertoneEngine) ListVoices(ctx context.Context) ([]Voice, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set(supertoneKeyHeader, s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, llm.Wrap("supertone.voices", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, failure.Newf(failure.Permanent, "supertone.voices", "invalid API key")
	case http.StatusNotFound:
		return nil, failure.Newf(failure.Permanent, "supertone.voices", "voice endpoint not found, check the base URL")
	default:
		return nil, failure.Newf(llm.KindForStatus(resp.StatusCode), "supertone.voices", "HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read voices: %w", err)
	}
	return decodeVoices(raw)
}

// supertoneVoice is the subset of the voice listing the app reads
type supertoneVoice struct {
	VoiceID   string `json:"voice_id"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail_image_url"`
}

// decodeVoices drops entries without a name or id
func decodeVoices(raw []byte) ([]Voice, error) {
	var wrapped struct {
		Items []supertoneVoice `json:"items"`
	}
	items := wrapped.Items
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Items != nil {
		items = wrapped.Items
	} else if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}

	voices := make([]Voice, 0, len(items))
	for _, item := range items {
		if item.VoiceID == "" || item.Name == "" {
			continue
		}
		voices = append(voices, Voice{ID: item.VoiceID, Name: item.Name, Thumbnail: item.Thumbnail})
	}
	return voices, nil
}
