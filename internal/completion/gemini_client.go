// internal/completion/gemini_client.go
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// GeminiCompleter sends each request to a Google Gemini model.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter creates a completer backed by a Google Gemini model.
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, errors.New("Google Gemini API key is required")
	}
	if model == "" {
		return nil, errors.New("model name is required for Gemini")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		log.Errorf("Failed to create Gemini client: %v", err)
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

func (c *GeminiCompleter) ProviderName() string {
	return "gemini"
}

// Close releases the underlying client connection.
func (c *GeminiCompleter) Close() error {
	return c.client.Close()
}

func (c *GeminiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	log.WithFields(log.Fields{"model": c.model, "role": req.Role}).Info("Calling Gemini GenerateContent")

	model := c.client.GenerativeModel(c.model)
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		log.Errorf("Gemini API GenerateContent failed: %v", err)
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	text, reason := extractContentFromGenaiResponse(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w (finish reason: %s)", ErrEmptyOutput, reason)
	}
	return text, nil
}

// extractContentFromGenaiResponse extracts text and the finish reason from a response object.
func extractContentFromGenaiResponse(resp *genai.GenerateContentResponse) (text string, finishReason string) {
	if resp == nil {
		return "", ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if txt, ok := part.(genai.Text); ok {
					text += string(txt)
				}
			}
		}
		// Use the finish reason from the first candidate (usually only one)
		if finishReason == "" && cand.FinishReason != genai.FinishReasonUnspecified {
			finishReason = cand.FinishReason.String()
		}
	}
	if finishReason == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			finishReason = resp.PromptFeedback.BlockReason.String()
		} else {
			finishReason = "stop"
		}
	}
	return text, finishReason
}
