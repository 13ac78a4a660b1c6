// Package speech synthesizes spoken audio for explanations.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/giygas/rxscan-api/interfaces"
	"github.com/giygas/rxscan-api/metrics"
	"github.com/sashabaranov/go-openai"
)

// ContentType is the MIME type of the audio Speak returns
const ContentType = "audio/mpeg"

var ErrEmptyText = errors.New("text to speak is empty")

var _ interfaces.Speaker = (*OpenAI)(nil)

// OpenAI implements the Speaker interface using the OpenAI speech endpoint
type OpenAI struct {
	client *openai.Client
	voice  openai.SpeechVoice
	model  openai.SpeechModel
}

// NewOpenAI creates a speaker. baseURL may be empty for the public API.
func NewOpenAI(apiKey, voice, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required for speech")
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		voice:  openai.SpeechVoice(voice),
		model:  openai.TTSModel1,
	}, nil
}

// Speak returns MP3 audio for text. The model infers the spoken language from the text,
// so lang is only recorded.
func (s *OpenAI) Speak(ctx context.Context, text, lang string) (audio []byte, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	defer func(start time.Time) { metrics.ObserveCollaborator("speaker", start, err) }(time.Now())

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech (%s): %w", lang, err)
	}
	defer resp.Close()

	audio, err = io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading speech audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech service returned no audio")
	}
	return audio, nil
}
