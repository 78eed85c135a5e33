package repository

import (
	"context"
	"time"

	"buyerwatch/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dayLayout        = "2006-01-02"
	defaultStatsDays = 30
)

// UsageRepository counts answered questions per day, category and strategy
type UsageRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db, now: time.Now}
}

func (r *UsageRepository) RecordAsk(ctx context.Context, category, strategy string) error {
	today := r.now().UTC().Format(dayLayout)
	_, err := r.db.Exec(ctx, `
		INSERT INTO ask_stats (day, category, strategy, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (day, category, strategy)
		DO UPDATE SET count = ask_stats.count + 1
	`, today, category, strategy)
	return err
}

// AskStats returns the last days of counters, oldest first
func (r *UsageRepository) AskStats(ctx context.Context, days int) ([]entities.AskStat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT day, category, strategy, count
		FROM ask_stats
		WHERE day >= $1
		ORDER BY day ASC, category ASC, strategy ASC
	`, statsSince(r.now(), days))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []entities.AskStat{}
	for rows.Next() {
		var s entities.AskStat
		if err := rows.Scan(&s.Day, &s.Category, &s.Strategy, &s.Count); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// statsSince is the first day included in a window of days ending today
func statsSince(now time.Time, days int) string {
	if days <= 0 {
		days = defaultStatsDays
	}
	return now.UTC().AddDate(0, 0, -(days - 1)).Format(dayLayout)
}
