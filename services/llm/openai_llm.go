package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client *openai.Client
	model  string
}

// openaiKeySecretPath is where container deployments mount the API key
// when it is not passed through the environment.
const openaiKeySecretPath = "/run/secrets/openai_api_key"

func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey, err := resolveOpenAIKey()
	if err != nil {
		return nil, err
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, using default", "model", model)
	}
	slog.Info("Initializing OpenAI generation backend", "model", model)
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// resolveOpenAIKey prefers the environment and falls back to the
// mounted secret file.
func resolveOpenAIKey() (string, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}
	raw, err := os.ReadFile(openaiKeySecretPath)
	if err != nil {
		return "", fmt.Errorf("OPENAI_API_KEY is not set and no secret file at %s", openaiKeySecretPath)
	}
	slog.Info("Loaded the OpenAI API key from the mounted secret", "path", openaiKeySecretPath)
	return strings.TrimSpace(string(raw)), nil
}

// Complete implements the GenerationClient interface.
func (o *OpenAIClient) Complete(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	slog.Debug("Generating text via OpenAI", "model", o.model)
	systemRoleContent := os.Getenv("SYSTEM_ROLE_PROMPT_PERSONA")
	if systemRoleContent == "" {
		systemRoleContent = "You are a helpful recipe assistant."
	}
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemRoleContent},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", &GenerationError{
			Backend: "openai",
			Timeout: errors.Is(err, context.DeadlineExceeded),
			Cause:   err,
		}
	}

	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices or empty content")
		return "", &GenerationError{Backend: "openai", Cause: fmt.Errorf("OpenAI returned no choices")}
	}
	slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
