package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/pkg/database"
)

// Compile-time interface check
var _ Store = (*SQLite)(nil)

// SQLite implements Store on a local SQLite file. Dates are stored as
// YYYY-MM-DD text so the tables stay readable with the sqlite3 shell.
type SQLite struct {
	db *sql.DB
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS transaction_logs (
		market            TEXT NOT NULL,
		stock_id          TEXT NOT NULL,
		date              TEXT NOT NULL,
		method            TEXT NOT NULL,
		position_size     REAL NOT NULL,
		position_price    REAL NOT NULL,
		position_value    REAL NOT NULL,
		date_closed_price REAL NOT NULL,
		broker_dividend   REAL NOT NULL,
		asset_value       REAL NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transaction_logs_key
		ON transaction_logs (market, stock_id, method, date)`,
	`CREATE INDEX IF NOT EXISTS idx_transaction_logs_date
		ON transaction_logs (market, date)`,
	`CREATE TABLE IF NOT EXISTS bt_summaries (
		market          TEXT NOT NULL,
		stock_id        TEXT NOT NULL,
		date            TEXT NOT NULL,
		method          TEXT NOT NULL,
		close           REAL NOT NULL,
		position_value  REAL NOT NULL,
		broker_dividend REAL NOT NULL,
		asset_value     REAL NOT NULL,
		roi             REAL NOT NULL,
		irr             REAL NOT NULL,
		PRIMARY KEY (market, stock_id, method)
	)`,
	`CREATE TABLE IF NOT EXISTS listed_companies (
		market     TEXT NOT NULL,
		code       TEXT NOT NULL,
		name       TEXT NOT NULL,
		start_date TEXT NOT NULL,
		category   TEXT NOT NULL DEFAULT '',
		cfi_code   TEXT NOT NULL,
		PRIMARY KEY (market, code)
	)`,
}

// NewSQLite opens (or creates) the database at path
func NewSQLite(path string) (*SQLite, error) {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// EnsureSchema creates missing tables and indexes
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// SaveRun replaces the rows of one run key in a single transaction
func (s *SQLite) SaveRun(ctx context.Context, market string, ledger []contracts.TradeLedgerRow, summary *contracts.SummaryRow) error {
	stockID, method, ok := runKey(ledger, summary)
	if !ok {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteSQLiteRun(ctx, tx, market, stockID, method); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transaction_logs (
			market, stock_id, date, method, position_size, position_price, position_value,
			date_closed_price, broker_dividend, asset_value
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range ledger {
		if _, err := stmt.ExecContext(ctx,
			market, r.StockID, formatDate(r.Date), string(r.Method),
			r.PositionSize, r.PositionPrice, r.PositionValue,
			r.DateClosedPrice, r.BrokerDividend, r.AssetValue,
		); err != nil {
			return fmt.Errorf("failed to insert ledger row: %w", err)
		}
	}

	if summary != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bt_summaries (
				market, stock_id, date, method, close, position_value,
				broker_dividend, asset_value, roi, irr
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			market, summary.StockID, formatDate(summary.Date), string(summary.Method), summary.Close,
			summary.PositionValue, summary.BrokerDividend, summary.AssetValue,
			summary.ROI, summary.IRR,
		); err != nil {
			return fmt.Errorf("failed to insert summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ClearRun deletes the rows of one run key in a single transaction
func (s *SQLite) ClearRun(ctx context.Context, market, stockID string, method contracts.Method) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteSQLiteRun(ctx, tx, market, stockID, method); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteSQLiteRun(ctx context.Context, tx *sql.Tx, market, stockID string, method contracts.Method) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transaction_logs WHERE market = ? AND stock_id = ? AND method = ?`,
		market, stockID, string(method),
	); err != nil {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM bt_summaries WHERE market = ? AND stock_id = ? AND method = ?`,
		market, stockID, string(method),
	); err != nil {
		return fmt.Errorf("failed to delete summary: %w", err)
	}
	return nil
}

// ClearTables deletes every ledger and summary row of a market
func (s *SQLite) ClearTables(ctx context.Context, market string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transaction_logs", "bt_summaries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE market = ?", market); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Summaries returns summaries ordered by ROI descending
func (s *SQLite) Summaries(ctx context.Context, market string, method contracts.Method) ([]contracts.SummaryRow, error) {
	query := `
		SELECT stock_id, date, method, close, position_value, broker_dividend, asset_value, roi, irr
		FROM bt_summaries
		WHERE market = ? AND (? = '' OR method = ?)
		ORDER BY roi DESC, stock_id, method
	`
	rows, err := s.db.QueryContext(ctx, query, market, string(method), string(method))
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	return scanSQLiteSummaries(rows)
}

// BestSummaries returns the highest asset value summary per stock
func (s *SQLite) BestSummaries(ctx context.Context, market string) ([]contracts.SummaryRow, error) {
	all, err := s.Summaries(ctx, market, "")
	if err != nil {
		return nil, err
	}
	return pickBest(all), nil
}

// TransactionLogs returns the ledger of one run key in date order
func (s *SQLite) TransactionLogs(ctx context.Context, market, stockID string, method contracts.Method) ([]contracts.TradeLedgerRow, error) {
	query := `
		SELECT stock_id, date, method, position_size, position_price, position_value,
			date_closed_price, broker_dividend, asset_value
		FROM transaction_logs
		WHERE market = ? AND stock_id = ? AND method = ?
		ORDER BY date
	`
	rows, err := s.db.QueryContext(ctx, query, market, stockID, string(method))
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction logs: %w", err)
	}
	defer rows.Close()

	return scanSQLiteLedger(rows)
}

// RecentTransactions returns ledger rows dated within [from, to]
func (s *SQLite) RecentTransactions(ctx context.Context, market string, from, to time.Time) ([]contracts.TradeLedgerRow, error) {
	query := `
		SELECT stock_id, date, method, position_size, position_price, position_value,
			date_closed_price, broker_dividend, asset_value
		FROM transaction_logs
		WHERE market = ? AND date BETWEEN ? AND ?
		ORDER BY date, stock_id, method
	`
	rows, err := s.db.QueryContext(ctx, query, market, formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transactions: %w", err)
	}
	defer rows.Close()

	return scanSQLiteLedger(rows)
}

// SaveListedCompanies replaces the listed companies of a market
func (s *SQLite) SaveListedCompanies(ctx context.Context, market string, companies []contracts.ListedCompany) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM listed_companies WHERE market = ?`, market); err != nil {
		return fmt.Errorf("failed to clear listed companies: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO listed_companies (market, code, name, start_date, category, cfi_code)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare listed company insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range companies {
		if _, err := stmt.ExecContext(ctx, market, c.Code, c.Name, formatDate(c.StartDate), c.Category, c.CFICode); err != nil {
			return fmt.Errorf("failed to insert listed company %s: %w", c.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListedCompanies returns the listed companies of a market ordered by code
func (s *SQLite) ListedCompanies(ctx context.Context, market string) ([]contracts.ListedCompany, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, start_date, category, cfi_code
		FROM listed_companies
		WHERE market = ?
		ORDER BY code
	`, market)
	if err != nil {
		return nil, fmt.Errorf("failed to query listed companies: %w", err)
	}
	defer rows.Close()

	var companies []contracts.ListedCompany
	for rows.Next() {
		var c contracts.ListedCompany
		var start string
		if err := rows.Scan(&c.Code, &c.Name, &start, &c.Category, &c.CFICode); err != nil {
			return nil, fmt.Errorf("failed to scan listed company: %w", err)
		}
		if c.StartDate, err = parseDate(start); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// Ping checks the database handle
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle
func (s *SQLite) Close() error {
	return s.db.Close()
}

func scanSQLiteSummaries(rows *sql.Rows) ([]contracts.SummaryRow, error) {
	var out []contracts.SummaryRow
	for rows.Next() {
		var r contracts.SummaryRow
		var date, method string
		if err := rows.Scan(
			&r.StockID, &date, &method, &r.Close, &r.PositionValue,
			&r.BrokerDividend, &r.AssetValue, &r.ROI, &r.IRR,
		); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		d, err := parseDate(date)
		if err != nil {
			return nil, err
		}
		r.Date = d
		r.Method = contracts.Method(method)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func scanSQLiteLedger(rows *sql.Rows) ([]contracts.TradeLedgerRow, error) {
	var out []contracts.TradeLedgerRow
	for rows.Next() {
		var r contracts.TradeLedgerRow
		var date, method string
		if err := rows.Scan(
			&r.StockID, &date, &method, &r.PositionSize, &r.PositionPrice, &r.PositionValue,
			&r.DateClosedPrice, &r.BrokerDividend, &r.AssetValue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		d, err := parseDate(date)
		if err != nil {
			return nil, err
		}
		r.Date = d
		r.Method = contracts.Method(method)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func formatDate(t time.Time) string {
	return t.Format(contracts.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(contracts.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	return t, nil
}
