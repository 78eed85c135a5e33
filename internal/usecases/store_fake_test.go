package usecases

import (
	"context"
	"errors"
	"sync"

	"buyerwatch/internal/entities"
)

type memStore struct {
	mu       sync.Mutex
	messages []string
	imports  []entities.ChatImport
	settings map[string]string
	asks     map[[2]string]int
	listErr  error
}

func newMemStore(messages ...string) *memStore {
	return &memStore{
		messages: messages,
		settings: map[string]string{},
		asks:     map[[2]string]int{},
	}
}

func (m *memStore) ReplaceMessages(_ context.Context, batch entities.ChatImport, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append([]string(nil), lines...)
	m.imports = append(m.imports, batch)
	return nil
}

func (m *memStore) AppendMessages(_ context.Context, _ string, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, lines...)
	return nil
}

func (m *memStore) ListMessages(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.messages...), nil
}

func (m *memStore) CountMessages(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages), nil
}

func (m *memStore) ClearMessages(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	m.imports = nil
	return nil
}

func (m *memStore) LastImport(context.Context) (*entities.ChatImport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.imports) == 0 {
		return nil, nil
	}
	last := m.imports[len(m.imports)-1]
	return &last, nil
}

func (m *memStore) GetSetting(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings[key], nil
}

func (m *memStore) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *memStore) DeleteSetting(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, key)
	return nil
}

func (m *memStore) RecordAsk(_ context.Context, category, strategy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asks[[2]string{category, strategy}]++
	return nil
}

func (m *memStore) AskStats(context.Context, int) ([]entities.AskStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats []entities.AskStat
	for k, v := range m.asks {
		stats = append(stats, entities.AskStat{Category: k[0], Strategy: k[1], Count: v})
	}
	return stats, nil
}

func (m *memStore) askCount(category, strategy string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.asks[[2]string{category, strategy}]
}

type fakeAIClient struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeAIClient) GenerateResponse(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

var errBoom = errors.New("boom")
