package repository

import (
	"context"
	"errors"
	"fmt"

	"buyerwatch/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// ReplaceMessages swaps the whole collection for lines in one transaction
func (r *ChatRepository) ReplaceMessages(ctx context.Context, batch entities.ChatImport, lines []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM chat_messages"); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO chat_imports (id, source, file_name, message_count, skipped_files, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, batch.ID, batch.Source, batch.FileName, batch.MessageCount, batch.SkippedFiles, batch.CreatedAt); err != nil {
		return fmt.Errorf("record import: %w", err)
	}

	rows := make([][]any, len(lines))
	for i, line := range lines {
		rows[i] = []any{batch.ID, batch.Source, line}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"chat_messages"},
		[]string{"import_id", "source", "line"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy messages: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *ChatRepository) AppendMessages(ctx context.Context, source string, lines []string) error {
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue("INSERT INTO chat_messages (source, line) VALUES ($1, $2)", source, line)
	}
	return r.db.SendBatch(ctx, batch).Close()
}

func (r *ChatRepository) ListMessages(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, "SELECT line FROM chat_messages ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *ChatRepository) CountMessages(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM chat_messages").Scan(&n)
	return n, err
}

func (r *ChatRepository) ClearMessages(ctx context.Context) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM chat_messages"); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM chat_imports"); err != nil {
		return fmt.Errorf("clear imports: %w", err)
	}
	return tx.Commit(ctx)
}

// LastImport returns nil when nothing has been imported yet
func (r *ChatRepository) LastImport(ctx context.Context) (*entities.ChatImport, error) {
	var b entities.ChatImport
	err := r.db.QueryRow(ctx, `
		SELECT id, source, file_name, message_count, skipped_files, created_at
		FROM chat_imports ORDER BY created_at DESC LIMIT 1
	`).Scan(&b.ID, &b.Source, &b.FileName, &b.MessageCount, &b.SkippedFiles, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}
