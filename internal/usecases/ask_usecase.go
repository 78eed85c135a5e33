package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"buyerwatch/internal/entities"
	"buyerwatch/internal/interfaces"

	"go.uber.org/zap"
)

// SettingAPIKey is the settings key holding an admin-provided AI credential
const SettingAPIKey = "ai_api_key"

const NoDataAnswer = "No chat data has been uploaded yet. " +
	"Ask an administrator to upload a WhatsApp chat export first."

var ErrEmptyQuestion = errors.New("question is empty")

type AskStore interface {
	interfaces.ChatStore
	interfaces.SettingsStore
	interfaces.StatsStore
}

// AskUsecase owns the preconditions around the responder: question
// validation, message loading, and credential lookup.
type AskUsecase struct {
	store     AskStore
	responder *Responder
	base      entities.AnswerConfig
	logger    *zap.Logger
}

func NewAskUsecase(store AskStore, responder *Responder, base entities.AnswerConfig, logger *zap.Logger) *AskUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AskUsecase{
		store:     store,
		responder: responder,
		base:      base,
		logger:    logger,
	}
}

// Ask answers one question against the stored chat collection
func (u *AskUsecase) Ask(ctx context.Context, question string) (entities.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return entities.Answer{}, ErrEmptyQuestion
	}

	messages, err := u.store.ListMessages(ctx)
	if err != nil {
		return entities.Answer{}, fmt.Errorf("load messages: %w", err)
	}
	if len(messages) == 0 {
		u.record(ctx, "", "no_data")
		return entities.Answer{Text: NoDataAnswer, Strategy: "no_data"}, nil
	}

	cfg, err := u.AnswerConfig(ctx)
	if err != nil {
		return entities.Answer{}, err
	}

	answer := u.responder.Answer(ctx, question, messages, cfg)
	u.logger.Info("question answered",
		zap.String("strategy", answer.Strategy),
		zap.String("category", answer.Category),
		zap.Int("messages", len(messages)))
	u.record(ctx, answer.Category, answer.Strategy)
	return answer, nil
}

// AnswerConfig returns the configured answer settings with a stored
// credential taking precedence over the configured one.
func (u *AskUsecase) AnswerConfig(ctx context.Context) (entities.AnswerConfig, error) {
	cfg := u.base
	stored, err := u.store.GetSetting(ctx, SettingAPIKey)
	if err != nil {
		return cfg, fmt.Errorf("load api key: %w", err)
	}
	if stored != "" {
		cfg.APIKey = stored
	}
	return cfg, nil
}

func (u *AskUsecase) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is empty")
	}
	return u.store.SetSetting(ctx, SettingAPIKey, key)
}

func (u *AskUsecase) ClearAPIKey(ctx context.Context) error {
	return u.store.DeleteSetting(ctx, SettingAPIKey)
}

// CredentialSource reports where the active credential comes from:
// "stored", "config" or "" when the keyword strategy is active.
func (u *AskUsecase) CredentialSource(ctx context.Context) (string, error) {
	stored, err := u.store.GetSetting(ctx, SettingAPIKey)
	if err != nil {
		return "", err
	}
	switch {
	case stored != "":
		return "stored", nil
	case u.base.HasCredential():
		return "config", nil
	}
	return "", nil
}

func (u *AskUsecase) Stats(ctx context.Context, days int) ([]entities.AskStat, error) {
	return u.store.AskStats(ctx, days)
}

func (u *AskUsecase) record(ctx context.Context, category, strategy string) {
	if category == "" {
		category = "none"
	}
	if err := u.store.RecordAsk(ctx, category, strategy); err != nil {
		u.logger.Warn("failed to record ask stats", zap.Error(err))
	}
}
