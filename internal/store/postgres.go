package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/pkg/database"
)

// Compile-time interface check
var _ Store = (*Postgres)(nil)

// Postgres implements Store on a pgx pool
type Postgres struct {
	db *database.DB
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS transaction_logs (
		market            TEXT NOT NULL,
		stock_id          TEXT NOT NULL,
		date              DATE NOT NULL,
		method            TEXT NOT NULL,
		position_size     DOUBLE PRECISION NOT NULL,
		position_price    DOUBLE PRECISION NOT NULL,
		position_value    DOUBLE PRECISION NOT NULL,
		date_closed_price DOUBLE PRECISION NOT NULL,
		broker_dividend   DOUBLE PRECISION NOT NULL,
		asset_value       DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transaction_logs_key
		ON transaction_logs (market, stock_id, method, date)`,
	`CREATE INDEX IF NOT EXISTS idx_transaction_logs_date
		ON transaction_logs (market, date)`,
	`CREATE TABLE IF NOT EXISTS bt_summaries (
		market          TEXT NOT NULL,
		stock_id        TEXT NOT NULL,
		date            DATE NOT NULL,
		method          TEXT NOT NULL,
		close           DOUBLE PRECISION NOT NULL,
		position_value  DOUBLE PRECISION NOT NULL,
		broker_dividend DOUBLE PRECISION NOT NULL,
		asset_value     DOUBLE PRECISION NOT NULL,
		roi             DOUBLE PRECISION NOT NULL,
		irr             DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (market, stock_id, method)
	)`,
	`CREATE TABLE IF NOT EXISTS listed_companies (
		market     TEXT NOT NULL,
		code       TEXT NOT NULL,
		name       TEXT NOT NULL,
		start_date DATE NOT NULL,
		category   TEXT NOT NULL DEFAULT '',
		cfi_code   TEXT NOT NULL,
		PRIMARY KEY (market, code)
	)`,
}

var ledgerColumns = []string{
	"market", "stock_id", "date", "method",
	"position_size", "position_price", "position_value",
	"date_closed_price", "broker_dividend", "asset_value",
}

// NewPostgres creates a store on an open pool
func NewPostgres(db *database.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates missing tables and indexes
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// SaveRun replaces the rows of one run key in a single transaction
func (p *Postgres) SaveRun(ctx context.Context, market string, ledger []contracts.TradeLedgerRow, summary *contracts.SummaryRow) error {
	stockID, method, ok := runKey(ledger, summary)
	if !ok {
		return nil
	}

	tx, err := p.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := deletePgRun(ctx, tx, market, stockID, method); err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(ledger))
	for _, r := range ledger {
		rows = append(rows, []interface{}{
			market, r.StockID, r.Date, string(r.Method),
			r.PositionSize, r.PositionPrice, r.PositionValue,
			r.DateClosedPrice, r.BrokerDividend, r.AssetValue,
		})
	}
	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"transaction_logs"}, ledgerColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy ledger: %w", err)
		}
	}

	if summary != nil {
		query := `
			INSERT INTO bt_summaries (
				market, stock_id, date, method, close, position_value,
				broker_dividend, asset_value, roi, irr
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		if _, err := tx.Exec(ctx, query,
			market, summary.StockID, summary.Date, string(summary.Method), summary.Close,
			summary.PositionValue, summary.BrokerDividend, summary.AssetValue,
			summary.ROI, summary.IRR,
		); err != nil {
			return fmt.Errorf("failed to insert summary: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ClearRun deletes the rows of one run key in a single transaction
func (p *Postgres) ClearRun(ctx context.Context, market, stockID string, method contracts.Method) error {
	tx, err := p.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := deletePgRun(ctx, tx, market, stockID, method); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func deletePgRun(ctx context.Context, tx pgx.Tx, market, stockID string, method contracts.Method) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM transaction_logs WHERE market = $1 AND stock_id = $2 AND method = $3`,
		market, stockID, string(method),
	); err != nil {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM bt_summaries WHERE market = $1 AND stock_id = $2 AND method = $3`,
		market, stockID, string(method),
	); err != nil {
		return fmt.Errorf("failed to delete summary: %w", err)
	}
	return nil
}

// ClearTables deletes every ledger and summary row of a market
func (p *Postgres) ClearTables(ctx context.Context, market string) error {
	tx, err := p.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"transaction_logs", "bt_summaries"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE market = $1", market); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit(ctx)
}

// Summaries returns summaries ordered by ROI descending
func (p *Postgres) Summaries(ctx context.Context, market string, method contracts.Method) ([]contracts.SummaryRow, error) {
	query := `
		SELECT stock_id, date, method, close, position_value, broker_dividend, asset_value, roi, irr
		FROM bt_summaries
		WHERE market = $1 AND ($2 = '' OR method = $2)
		ORDER BY roi DESC, stock_id, method
	`
	rows, err := p.db.Pool.Query(ctx, query, market, string(method))
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	return scanPgSummaries(rows)
}

// BestSummaries returns the highest asset value summary per stock
func (p *Postgres) BestSummaries(ctx context.Context, market string) ([]contracts.SummaryRow, error) {
	query := `
		SELECT stock_id, date, method, close, position_value, broker_dividend, asset_value, roi, irr
		FROM (
			SELECT DISTINCT ON (stock_id) *
			FROM bt_summaries
			WHERE market = $1
			ORDER BY stock_id, asset_value DESC, method
		) best
		ORDER BY roi DESC, stock_id, method
	`
	rows, err := p.db.Pool.Query(ctx, query, market)
	if err != nil {
		return nil, fmt.Errorf("failed to query best summaries: %w", err)
	}
	defer rows.Close()

	return scanPgSummaries(rows)
}

// TransactionLogs returns the ledger of one run key in date order
func (p *Postgres) TransactionLogs(ctx context.Context, market, stockID string, method contracts.Method) ([]contracts.TradeLedgerRow, error) {
	query := `
		SELECT stock_id, date, method, position_size, position_price, position_value,
			date_closed_price, broker_dividend, asset_value
		FROM transaction_logs
		WHERE market = $1 AND stock_id = $2 AND method = $3
		ORDER BY date
	`
	rows, err := p.db.Pool.Query(ctx, query, market, stockID, string(method))
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction logs: %w", err)
	}
	defer rows.Close()

	return scanPgLedger(rows)
}

// RecentTransactions returns ledger rows dated within [from, to]
func (p *Postgres) RecentTransactions(ctx context.Context, market string, from, to time.Time) ([]contracts.TradeLedgerRow, error) {
	query := `
		SELECT stock_id, date, method, position_size, position_price, position_value,
			date_closed_price, broker_dividend, asset_value
		FROM transaction_logs
		WHERE market = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, stock_id, method
	`
	rows, err := p.db.Pool.Query(ctx, query, market, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transactions: %w", err)
	}
	defer rows.Close()

	return scanPgLedger(rows)
}

// SaveListedCompanies replaces the listed companies of a market
func (p *Postgres) SaveListedCompanies(ctx context.Context, market string, companies []contracts.ListedCompany) error {
	tx, err := p.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM listed_companies WHERE market = $1`, market); err != nil {
		return fmt.Errorf("failed to clear listed companies: %w", err)
	}

	batch := &pgx.Batch{}
	for _, c := range companies {
		batch.Queue(`
			INSERT INTO listed_companies (market, code, name, start_date, category, cfi_code)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (market, code) DO UPDATE SET
				name = EXCLUDED.name,
				start_date = EXCLUDED.start_date,
				category = EXCLUDED.category,
				cfi_code = EXCLUDED.cfi_code
		`, market, c.Code, c.Name, c.StartDate, c.Category, c.CFICode)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert listed companies: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListedCompanies returns the listed companies of a market ordered by code
func (p *Postgres) ListedCompanies(ctx context.Context, market string) ([]contracts.ListedCompany, error) {
	query := `
		SELECT code, name, start_date, category, cfi_code
		FROM listed_companies
		WHERE market = $1
		ORDER BY code
	`
	rows, err := p.db.Pool.Query(ctx, query, market)
	if err != nil {
		return nil, fmt.Errorf("failed to query listed companies: %w", err)
	}
	defer rows.Close()

	var companies []contracts.ListedCompany
	for rows.Next() {
		var c contracts.ListedCompany
		if err := rows.Scan(&c.Code, &c.Name, &c.StartDate, &c.Category, &c.CFICode); err != nil {
			return nil, fmt.Errorf("failed to scan listed company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// Ping checks the connection
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Close closes the pool
func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

func scanPgSummaries(rows pgx.Rows) ([]contracts.SummaryRow, error) {
	var out []contracts.SummaryRow
	for rows.Next() {
		var s contracts.SummaryRow
		var method string
		if err := rows.Scan(
			&s.StockID, &s.Date, &method, &s.Close, &s.PositionValue,
			&s.BrokerDividend, &s.AssetValue, &s.ROI, &s.IRR,
		); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		s.Method = contracts.Method(method)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func scanPgLedger(rows pgx.Rows) ([]contracts.TradeLedgerRow, error) {
	var out []contracts.TradeLedgerRow
	for rows.Next() {
		var r contracts.TradeLedgerRow
		var method string
		if err := rows.Scan(
			&r.StockID, &r.Date, &method, &r.PositionSize, &r.PositionPrice, &r.PositionValue,
			&r.DateClosedPrice, &r.BrokerDividend, &r.AssetValue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		r.Method = contracts.Method(method)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
