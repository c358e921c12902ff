package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/siherrmann/ragpipe/model"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiLLM generates answers through the Gemini API.
type GeminiLLM struct {
	client *genai.Client
	model  string
}

// NewGeminiLLM creates a Gemini client. apiKey falls back to the
// GEMINI_API_KEY environment variable, modelName to DefaultGeminiModel.
func NewGeminiLLM(ctx context.Context, apiKey string, modelName string) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no Gemini API key provided")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiLLM{client: client, model: modelName}, nil
}

// Generate implements LLM. API failures are mapped onto the retryable
// error categories.
func (g *GeminiLLM) Generate(ctx context.Context, system string, history []model.Turn, prompt string) (string, error) {
	var contents []*genai.Content
	for _, turn := range history {
		var role genai.Role = genai.RoleUser
		if turn.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", categorizeGeminiError(err)
	}

	text := response.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrTransient)
	}
	return text, nil
}

// categorizeGeminiError maps an API error onto the retry categories by
// HTTP status code.
func categorizeGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case apiErr.Code == http.StatusRequestTimeout || apiErr.Code >= 500:
		return fmt.Errorf("%w: %v", ErrTransient, err)
	default:
		return err
	}
}
