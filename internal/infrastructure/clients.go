package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"buyerwatch/internal/entities"
	"buyerwatch/internal/interfaces"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

var errEmptyCompletion = errors.New("empty response from AI service")

// NewAIClient builds the generative client for cfg.Provider.
// It matches usecases.AIClientFactory.
func NewAIClient(ctx context.Context, cfg entities.AnswerConfig) (interfaces.AIClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", entities.ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case entities.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

func httpClientFor(cfg entities.AnswerConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

// GeminiClient calls generateContent; the SDK sends the key as x-goog-api-key
type GeminiClient struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGeminiClient(ctx context.Context, cfg entities.AnswerConfig) (*GeminiClient, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClientFor(cfg),
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(cfg.Temperature),
		TopP:        genai.Ptr(cfg.TopP),
	}
	if cfg.TopK > 0 {
		genCfg.TopK = genai.Ptr(float32(cfg.TopK))
	}
	if cfg.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}

	return &GeminiClient{client: client, model: model, config: genCfg}, nil
}

func (g *GeminiClient) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}

// OpenAIClient serves any OpenAI-compatible chat completion endpoint
type OpenAIClient struct {
	client *openai.Client
	model  string
	cfg    entities.AnswerConfig
}

func NewOpenAIClient(cfg entities.AnswerConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpClientFor(cfg)

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(clientCfg), model: model, cfg: cfg}
}

func (o *OpenAIClient) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: o.cfg.Temperature,
		TopP:        o.cfg.TopP,
		MaxTokens:   o.cfg.MaxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
