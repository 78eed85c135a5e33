package usecases

import (
	"context"
	"fmt"
	"strings"

	"buyerwatch/internal/entities"
	"buyerwatch/internal/interfaces"

	"go.uber.org/zap"
)

type Strategy string

const (
	StrategyKeyword Strategy = "keyword"
	StrategyRemote  Strategy = "remote"
)

const defaultContextMessages = 100

const promptInstructions = "You are an assistant for a community of home buyers waiting on a delayed " +
	"real-estate project. Answer the question using only the WhatsApp messages below. " +
	"If the messages do not contain the answer, say so briefly."

// AIClientFactory builds a generative client for one call's configuration
type AIClientFactory func(ctx context.Context, cfg entities.AnswerConfig) (interfaces.AIClient, error)

// AnswerStrategy produces an answer string; it never fails
type AnswerStrategy interface {
	Name() Strategy
	Answer(ctx context.Context, question string, messages []string) entities.Answer
}

// Responder picks exactly one strategy per call from the credential in cfg
type Responder struct {
	factory AIClientFactory
	logger  *zap.Logger
}

func NewResponder(factory AIClientFactory, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{factory: factory, logger: logger}
}

func (r *Responder) Select(cfg entities.AnswerConfig) AnswerStrategy {
	if cfg.HasCredential() {
		return &remoteStrategy{cfg: cfg, factory: r.factory, logger: r.logger}
	}
	return keywordStrategy{}
}

func (r *Responder) Answer(ctx context.Context, question string, messages []string, cfg entities.AnswerConfig) entities.Answer {
	return r.Select(cfg).Answer(ctx, question, messages)
}

type keywordStrategy struct{}

func (keywordStrategy) Name() Strategy { return StrategyKeyword }

func (keywordStrategy) Answer(_ context.Context, question string, messages []string) entities.Answer {
	text, category := AnswerFromMessages(question, messages)
	return entities.Answer{Text: text, Category: string(category), Strategy: string(StrategyKeyword)}
}

type remoteStrategy struct {
	cfg     entities.AnswerConfig
	factory AIClientFactory
	logger  *zap.Logger
}

func (s *remoteStrategy) Name() Strategy { return StrategyRemote }

func (s *remoteStrategy) Answer(ctx context.Context, question string, messages []string) entities.Answer {
	answer := entities.Answer{Strategy: string(StrategyRemote)}

	text, err := s.generate(ctx, BuildPrompt(question, messages, s.cfg.MaxContextMessages))
	if err != nil {
		s.logger.Warn("remote answer failed", zap.String("provider", s.cfg.Provider), zap.Error(err))
		answer.Text = RemoteErrorAnswer(err)
		return answer
	}
	answer.Text = text
	return answer
}

func (s *remoteStrategy) generate(ctx context.Context, prompt string) (string, error) {
	if s.factory == nil {
		return "", fmt.Errorf("no AI client configured")
	}
	client, err := s.factory(ctx, s.cfg)
	if err != nil {
		return "", err
	}
	return client.GenerateResponse(ctx, prompt)
}

// BuildPrompt joins the first limit messages with the question
func BuildPrompt(question string, messages []string, limit int) string {
	if limit <= 0 {
		limit = defaultContextMessages
	}
	if len(messages) > limit {
		messages = messages[:limit]
	}

	var sb strings.Builder
	sb.WriteString(promptInstructions)
	sb.WriteString("\n\nMessages:\n")
	sb.WriteString(strings.Join(messages, "\n"))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}

func RemoteErrorAnswer(err error) string {
	return fmt.Sprintf("Sorry, I couldn't get an answer from the AI service: %v", err)
}
