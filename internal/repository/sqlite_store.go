package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"buyerwatch/internal/entities"
)

// SQLiteStore implements interfaces.Store on a local modernc sqlite file
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) ReplaceMessages(ctx context.Context, batch entities.ChatImport, lines []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chat_messages"); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_imports (id, source, file_name, message_count, skipped_files, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, batch.ID, batch.Source, batch.FileName, batch.MessageCount, batch.SkippedFiles, batch.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	if err := insertLines(ctx, tx, batch.ID, batch.Source, lines); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) AppendMessages(ctx context.Context, source string, lines []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertLines(ctx, tx, "", source, lines); err != nil {
		return err
	}
	return tx.Commit()
}

func insertLines(ctx context.Context, tx *sql.Tx, importID, source string, lines []string) error {
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO chat_messages (import_id, source, line) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	var id any
	if importID != "" {
		id = importID
	}
	for _, line := range lines {
		if _, err := stmt.ExecContext(ctx, id, source, line); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT line FROM chat_messages ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (s *SQLiteStore) CountMessages(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chat_messages").Scan(&n)
	return n, err
}

// ClearMessages drops the import history with the messages so LastImport reports nothing
func (s *SQLiteStore) ClearMessages(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chat_messages"); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chat_imports"); err != nil {
		return fmt.Errorf("clear imports: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) LastImport(ctx context.Context) (*entities.ChatImport, error) {
	var b entities.ChatImport
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, file_name, message_count, skipped_files, created_at
		FROM chat_imports ORDER BY created_at DESC, rowid DESC LIMIT 1
	`).Scan(&b.ID, &b.Source, &b.FileName, &b.MessageCount, &b.SkippedFiles, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

func (s *SQLiteStore) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
	return err
}

func (s *SQLiteStore) RecordAsk(ctx context.Context, category, strategy string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ask_stats (day, category, strategy, count) VALUES (?, ?, ?, 1)
		ON CONFLICT (day, category, strategy) DO UPDATE SET count = ask_stats.count + 1
	`, s.now().UTC().Format(dayLayout), category, strategy)
	return err
}

func (s *SQLiteStore) AskStats(ctx context.Context, days int) ([]entities.AskStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, category, strategy, count FROM ask_stats
		WHERE day >= ?
		ORDER BY day ASC, category ASC, strategy ASC
	`, statsSince(s.now(), days))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []entities.AskStat{}
	for rows.Next() {
		var st entities.AskStat
		if err := rows.Scan(&st.Day, &st.Category, &st.Strategy, &st.Count); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
