package repository

import (
	"buyerwatch/internal/infrastructure"
)

// PostgresStore bundles the pgx repositories behind interfaces.Store
type PostgresStore struct {
	*ChatRepository
	*ConfigRepository
	*UsageRepository

	client *infrastructure.PostgresClient
}

func NewPostgresStore(client *infrastructure.PostgresClient) *PostgresStore {
	return &PostgresStore{
		ChatRepository:   NewChatRepository(client.Pool),
		ConfigRepository: NewConfigRepository(client.Pool),
		UsageRepository:  NewUsageRepository(client.Pool),
		client:           client,
	}
}

func (s *PostgresStore) Close() error {
	s.client.Close()
	return nil
}
