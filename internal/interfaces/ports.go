package interfaces

import (
	"context"

	"buyerwatch/internal/entities"
)

type AIClient interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
}

// ChatStore holds the flat collection of chat lines in insertion order
type ChatStore interface {
	ReplaceMessages(ctx context.Context, batch entities.ChatImport, lines []string) error
	AppendMessages(ctx context.Context, source string, lines []string) error
	ListMessages(ctx context.Context) ([]string, error)
	CountMessages(ctx context.Context) (int, error)
	ClearMessages(ctx context.Context) error
	LastImport(ctx context.Context) (*entities.ChatImport, error)
}

// SettingsStore returns "" with a nil error for missing keys
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

type StatsStore interface {
	RecordAsk(ctx context.Context, category, strategy string) error
	AskStats(ctx context.Context, days int) ([]entities.AskStat, error)
}

type Store interface {
	ChatStore
	SettingsStore
	StatsStore
	Close() error
}

// QuestionAnswerer is implemented by the ask usecase; bots depend on it
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) (entities.Answer, error)
}

// DashboardSource serves the current dashboard dataset
type DashboardSource interface {
	Snapshot() entities.DashboardData
}
