// Package tts provides speech synthesis adapters.
package tts

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"doctalk/internal/domain/entities"
)

// OpenAIAdapter implements ports.SpeechSynthesizer using the OpenAI speech
// API. Output is mp3.
type OpenAIAdapter struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

// NewOpenAIAdapter creates an OpenAI speech adapter.
func NewOpenAIAdapter(client *openai.Client, model, voice string) *OpenAIAdapter {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &OpenAIAdapter{
		client: client,
		model:  openai.SpeechModel(model),
		voice:  openai.SpeechVoice(voice),
	}
}

// Synthesize converts text to an mp3 byte stream.
func (a *OpenAIAdapter) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := a.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          a.model,
		Input:          text,
		Voice:          a.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrSynthesis, err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: reading audio stream: %v", entities.ErrSynthesis, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio stream", entities.ErrSynthesis)
	}
	return audio, nil
}
