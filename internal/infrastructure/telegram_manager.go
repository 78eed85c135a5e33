package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"buyerwatch/internal/interfaces"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	welcomeText = "Welcome to the buyers' community bot! 👋\n\n" +
		"Ask anything about the project, for example its status, the builder, the RERA complaint, " +
		"construction updates or the delivery timeline. Send /ask <question> or just type your question."
	usageText   = "Please send a question, for example: /ask What is the current project status?"
	busyText    = "⏳ Still working on your previous question, please wait."
	failureText = "Sorry, something went wrong while answering. Please try again later."
)

// BotAPI is the part of *tgbotapi.BotAPI the community bot uses
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// CommunityBot answers buyers' questions over Telegram
type CommunityBot struct {
	api       BotAPI
	answerer  interfaces.QuestionAnswerer
	questions func() []string
	sessions  *SessionManager
	limiter   *MessageRateLimiter
	logger    *zap.Logger

	wg sync.WaitGroup
}

func NewTelegramBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return bot, nil
}

func NewCommunityBot(api BotAPI, answerer interfaces.QuestionAnswerer, questions func() []string,
	sessions *SessionManager, limiter *MessageRateLimiter, logger *zap.Logger) *CommunityBot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if questions == nil {
		questions = func() []string { return nil }
	}
	return &CommunityBot{
		api:       api,
		answerer:  answerer,
		questions: questions,
		sessions:  sessions,
		limiter:   limiter,
		logger:    logger,
	}
}

// Run polls for updates until ctx is done and waits for in-flight answers
func (b *CommunityBot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("telegram bot polling started")

	defer func() {
		b.api.StopReceivingUpdates()
		b.wg.Wait()
		b.logger.Info("telegram bot polling stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

func (b *CommunityBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *CommunityBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.sendMenu(chatID, welcomeText)
			return
		case "ask":
			b.answer(ctx, chatID, msg.CommandArguments())
			return
		default:
			b.send(tgbotapi.NewMessage(chatID, usageText))
			return
		}
	}
	b.answer(ctx, chatID, msg.Text)
}

func (b *CommunityBot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("telegram callback ack failed", zap.Error(err))
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	if cb.Data == callbackMenu {
		b.sendMenu(chatID, "Here are some questions you can ask:")
		return
	}
	questions := b.questions()
	if i, ok := questionIndex(cb.Data); ok && i < len(questions) {
		b.answer(ctx, chatID, questions[i])
	}
}

func (b *CommunityBot) answer(ctx context.Context, chatID int64, question string) {
	question = strings.TrimSpace(question)
	if question == "" {
		b.send(tgbotapi.NewMessage(chatID, usageText))
		return
	}

	if b.limiter != nil && !b.limiter.Allow(chatID) {
		wait := int(math.Ceil(b.limiter.WaitTime(chatID).Seconds()))
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("🚦 You're asking too quickly. Please wait %d seconds.", max(wait, 1))))
		return
	}
	if b.sessions != nil {
		if !b.sessions.TryStart(chatID) {
			b.send(tgbotapi.NewMessage(chatID, busyText))
			return
		}
		defer b.sessions.Finish(chatID)
	}

	ans, err := b.answerer.Ask(ctx, question)
	if err != nil {
		b.logger.Error("telegram answer failed", zap.Int64("chat_id", chatID), zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return
		}
		b.send(tgbotapi.NewMessage(chatID, failureText))
		return
	}

	reply := tgbotapi.NewMessage(chatID, ans.Text)
	reply.ReplyMarkup = FollowUpKeyboard()
	b.send(reply)
}

func (b *CommunityBot) sendMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if qs := b.questions(); len(qs) > 0 {
		msg.ReplyMarkup = SuggestedQuestionsKeyboard(qs)
	}
	b.send(msg)
}

func (b *CommunityBot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("telegram send failed", zap.Error(err))
	}
}
