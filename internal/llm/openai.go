package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/julianstephens/rehab/internal/keyring"
	"github.com/julianstephens/rehab/internal/logger"
)

const (
	DefaultModel = "gpt-4o-mini"
	secretPath   = "/run/secrets/openai_api_key"
)

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenAIClient struct {
	client *openai.Client
	model  string
}

var _ Generator = (*OpenAIClient)(nil)

// ResolveAPIKey returns explicit if set, then OPENAI_API_KEY, then the
// keyring, then the container secret file.
func ResolveAPIKey(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	if key := keyring.Lookup(keyring.SecretOpenAI); key != "" {
		return key
	}
	if b, err := os.ReadFile(secretPath); err == nil {
		logger.Debug("Read the OpenAI API key from the secrets mount")
		return strings.TrimSpace(string(b))
	}
	return ""
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	apiKey := ResolveAPIKey(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured: set OPENAI_API_KEY or run 'rehab keyring set openai'")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	oc := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	logger.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		model:  model,
	}, nil
}

func (o *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, t := range req.History {
		role := openai.ChatMessageRoleUser
		if t.Role == openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	creq := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: msgs,
		User:     req.User,
	}
	if req.Params.Temperature != nil {
		creq.Temperature = *req.Params.Temperature
	}
	if req.Params.MaxTokens != nil {
		creq.MaxCompletionTokens = *req.Params.MaxTokens
	}
	if req.Params.TopP != nil {
		creq.TopP = *req.Params.TopP
	}
	if len(req.Params.Stop) > 0 {
		creq.Stop = req.Params.Stop
	}

	logger.Debug("Generating text via OpenAI", "model", o.model, "turns", len(msgs))
	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	logger.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return text, nil
}
