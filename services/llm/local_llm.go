package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// LocalCompletionClient talks to a llama.cpp / TGI / vLLM-style local
// completion server over HTTP. Different servers answer with different
// JSON shapes; extractCompletionText normalizes them.
type LocalCompletionClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	format     PromptFormat
}

type localCompletionPayload struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Temperature *float32 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

func NewLocalCompletionClient() (*LocalCompletionClient, error) {
	baseURL := os.Getenv("LLM_SERVICE_URL_BASE")
	if baseURL == "" {
		return nil, fmt.Errorf("LLM_SERVICE_URL_BASE environment variable not set")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	model := os.Getenv("LLM_MODEL_NAME")
	format := ResolvePromptFormat(model)
	slog.Info("Initializing local completion client",
		"base_url", baseURL, "model", model, "prompt_format", format.String())
	return &LocalCompletionClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
		model:      model,
		format:     format,
	}, nil
}

// Complete implements the GenerationClient interface.
func (l *LocalCompletionClient) Complete(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {

	completionURL := l.baseURL + "/completion"
	payload := localCompletionPayload{
		Prompt: l.format.Render(os.Getenv("SYSTEM_ROLE_PROMPT_PERSONA"), prompt),
	}
	if params.MaxTokens != nil {
		payload.NPredict = *params.MaxTokens
		payload.MaxTokens = params.MaxTokens
	} else {
		payload.NPredict = 1024
	}
	if params.Temperature != nil {
		payload.Temperature = params.Temperature
	} else {
		var defaultTemperature float32 = 0.2
		payload.Temperature = &defaultTemperature
	}
	if params.TopK != nil {
		payload.TopK = params.TopK
	}
	if params.TopP != nil {
		payload.TopP = params.TopP
	} else {
		var defaultTopP float32 = 0.9
		payload.TopP = &defaultTopP
	}
	if params.Stop != nil {
		payload.Stop = params.Stop
	}

	reqBodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", &GenerationError{Backend: "local", Cause: fmt.Errorf("failed to marshal the payload: %w", err)}
	}
	slog.Debug("Calling local completion server", "url", completionURL, "model", l.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, completionURL, bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		return "", &GenerationError{Backend: "local", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", &GenerationError{
			Backend: "local",
			Timeout: errors.Is(err, context.DeadlineExceeded),
			Cause:   fmt.Errorf("failed to reach the completion server: %w", err),
		}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GenerationError{Backend: "local", Cause: fmt.Errorf("failed to read the completion response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &GenerationError{
			Backend: "local",
			Cause:   fmt.Errorf("completion server returned status %d: %s", resp.StatusCode, truncateForLog(body)),
		}
	}
	text, err := extractCompletionText(body)
	if err != nil {
		return "", &GenerationError{Backend: "local", Cause: err}
	}
	return text, nil
}

// Upstream wire shapes. Servers disagree on where the generated text
// lives; each shape below is observed in the wild.
type choicesShape struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

type completionShape struct {
	Completion string `json:"completion"`
}

type contentBlocksShape struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

type flatShape struct {
	Content string `json:"content"`
	Text    string `json:"text"`
}

// extractCompletionText pulls the generated text out of a completion
// response body, trying in order:
//
//  1. {"choices":[{"text":"..."}]}     (OpenAI-completions / vLLM)
//  2. {"completion":"..."}             (single completion field)
//  3. {"content":[{"text":"..."}]}     (content-block list)
//  4. {"content":"..."} or {"text":"..."} (llama.cpp flat fields)
//
// It fails when none of the shapes yields non-empty text.
func extractCompletionText(body []byte) (string, error) {
	var choices choicesShape
	if err := json.Unmarshal(body, &choices); err == nil && len(choices.Choices) > 0 {
		if text := choices.Choices[0].Text; text != "" {
			return text, nil
		}
	}
	var completion completionShape
	if err := json.Unmarshal(body, &completion); err == nil && completion.Completion != "" {
		return completion.Completion, nil
	}
	var blocks contentBlocksShape
	if err := json.Unmarshal(body, &blocks); err == nil && len(blocks.Content) > 0 {
		if text := blocks.Content[0].Text; text != "" {
			return text, nil
		}
	}
	var flat flatShape
	if err := json.Unmarshal(body, &flat); err == nil {
		if flat.Content != "" {
			return flat.Content, nil
		}
		if flat.Text != "" {
			return flat.Text, nil
		}
	}
	return "", fmt.Errorf("completion response matched no known wire shape: %s", truncateForLog(body))
}

func truncateForLog(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		return string(body[:maxLen]) + "..."
	}
	return string(body)
}
