// Package agent talks to the hosted language model.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"phronesis/models"
)

// ErrModelCommunication wraps every failure to obtain a reply from the model
var ErrModelCommunication = errors.New("model communication failed")

// GeminiClient sends interview turns to Gemini. The system prompt is passed
// as a system instruction on every request; history is replayed by the caller.
type GeminiClient struct {
	client            *genai.Client
	model             string
	systemInstruction string
	temperature       float32
}

// NewGeminiClient creates a client bound to one model and system prompt
func NewGeminiClient(ctx context.Context, apiKey, model, systemInstruction string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{
		client:            client,
		model:             model,
		systemInstruction: systemInstruction,
		temperature:       0.7,
	}, nil
}

// Model returns the model name requests are sent to
func (g *GeminiClient) Model() string {
	return g.model
}

// Send forwards message with its prior history and returns the reply text
func (g *GeminiClient) Send(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	contents := BuildContents(history, message)

	temp := g.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if g.systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(g.systemInstruction, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelCommunication, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response", ErrModelCommunication)
	}
	return text, nil
}

// BuildContents converts the interview history into Gemini contents, ending
// with the outgoing message. Empty entries are skipped.
func BuildContents(history []models.ChatMessage, message string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Text, roleFor(m.Speaker)))
	}
	if strings.TrimSpace(message) != "" {
		contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))
	}
	return contents
}

func roleFor(s models.Speaker) genai.Role {
	if s == models.SpeakerAgent {
		return genai.RoleModel
	}
	return genai.RoleUser
}
