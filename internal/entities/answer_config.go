package entities

import "time"

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// AnswerConfig is handed to the responder on every call.
// A non-empty APIKey selects the remote generative service.
type AnswerConfig struct {
	APIKey             string
	Provider           string
	Model              string
	BaseURL            string
	Temperature        float32
	TopK               int
	TopP               float32
	MaxOutputTokens    int
	MaxContextMessages int
	Timeout            time.Duration
}

func (c AnswerConfig) HasCredential() bool {
	return c.APIKey != ""
}
