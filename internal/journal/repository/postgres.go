package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"signaltrader/internal/journal"
)

// TradeJournalRepository stores trade outcomes next to the log files.
type TradeJournalRepository interface {
	RecordTrade(ctx context.Context, r journal.TradeResult) error
	RecordFailure(ctx context.Context, f journal.Failure) error
	RecentTrades(ctx context.Context, limit int) ([]journal.TradeResult, error)
}

type PostgresJournal struct {
	DB *sqlx.DB
}

func NewPostgresJournal(db *sqlx.DB) *PostgresJournal {
	return &PostgresJournal{DB: db}
}

// RecordTrade inserts a closed trade; a second insert of the same trade id is ignored.
func (r *PostgresJournal) RecordTrade(ctx context.Context, t journal.TradeResult) error {
	query := `
		INSERT INTO trade_results (
			trade_id, symbol, original_symbol, rate, position, leverage,
			entry_price, exit_price, quantity, exit_type,
			price_diff_pct, leveraged_pct, absolute_pnl, opened_at, closed_at
		) VALUES (
			:trade_id, :symbol, :original_symbol, :rate, :position, :leverage,
			:entry_price, :exit_price, :quantity, :exit_type,
			:price_diff_pct, :leveraged_pct, :absolute_pnl, :opened_at, :closed_at
		)
		ON CONFLICT (trade_id) DO NOTHING
	`
	if _, err := r.DB.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("failed to insert trade result %s: %w", t.TradeID, err)
	}
	return nil
}

func (r *PostgresJournal) RecordFailure(ctx context.Context, f journal.Failure) error {
	query := `
		INSERT INTO trading_failures (symbol, original_symbol, step, reason, error, message, created_at)
		VALUES (:symbol, :original_symbol, :step, :reason, :error, :message, NOW())
	`
	if _, err := r.DB.NamedExecContext(ctx, query, f); err != nil {
		return fmt.Errorf("failed to insert trading failure for %s: %w", f.Symbol, err)
	}
	return nil
}

// RecentTrades returns the latest closed trades, newest first.
func (r *PostgresJournal) RecentTrades(ctx context.Context, limit int) ([]journal.TradeResult, error) {
	query := `
		SELECT trade_id, symbol, original_symbol, rate, position, leverage,
		       entry_price, exit_price, quantity, exit_type,
		       price_diff_pct, leveraged_pct, absolute_pnl, opened_at, closed_at
		FROM trade_results
		ORDER BY closed_at DESC
		LIMIT $1
	`
	var trades []journal.TradeResult
	if err := r.DB.SelectContext(ctx, &trades, query, limit); err != nil {
		return nil, fmt.Errorf("failed to load trade results: %w", err)
	}
	return trades, nil
}
