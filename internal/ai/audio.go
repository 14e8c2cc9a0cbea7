package ai

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// Transcribe converts recorded audio into text using the configured
// transcription model. filename carries the original extension so the API
// can detect the container format.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("transcription filename is empty")
	}

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.TranscribeModel,
		Reader:   audio,
		FilePath: filename,
	})
	if err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}

	return resp.Text, nil
}

// Speak synthesizes speech audio for the given text using the configured
// speech model and voice. The caller must close the returned stream.
func (c *Client) Speak(ctx context.Context, text string) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("speech input is empty")
	}

	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(c.cfg.SpeechModel),
		Input: text,
		Voice: openai.SpeechVoice(c.cfg.SpeechVoice),
	})
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}

	return resp, nil
}
