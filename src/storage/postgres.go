package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tradewatch/src/helpers"
	"tradewatch/src/interfaces"
	"tradewatch/src/logger"
	"tradewatch/src/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------
// Postgres entity repositories
// -----------------------------------------------------------------------------
// Alerts, automated trade rules and transactions live in Postgres. The
// repositories only expose what the core needs: create / find / delete by
// id, find by user, and date-ordered transaction listing.

type PostgresDB struct {
	DB     *sqlx.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(dsn string, log *logger.Logger) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect failed: %w", err)
	}

	return &PostgresDB{DB: db, Logger: log}, nil
}

// -----------------------------------------------------------------------------

func (p *PostgresDB) Initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			symbol TEXT NOT NULL,
			condition TEXT NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts (user_id);

		CREATE TABLE IF NOT EXISTS trade_rules (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			portfolio_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			symbol TEXT NOT NULL,
			condition TEXT NOT NULL,
			action TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			quantity_type TEXT NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			api_key_id TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_trade_rules_user ON trade_rules (user_id);

		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			portfolio_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			action TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			date TIMESTAMPTZ NOT NULL,
			seq BIGSERIAL
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_portfolio ON transactions (portfolio_id, date DESC, seq DESC);
	`
	if _, err := p.DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (p *PostgresDB) Close() error {
	return p.DB.Close()
}

// -----------------------------------------------------------------------------
// Alert repository
// -----------------------------------------------------------------------------

type PostgresAlertRepo struct {
	DB *sqlx.DB
}

var _ interfaces.IAlertRepo = (*PostgresAlertRepo)(nil)

func NewPostgresAlertRepo(db *PostgresDB) *PostgresAlertRepo {
	return &PostgresAlertRepo{DB: db.DB}
}

// -----------------------------------------------------------------------------

func (r *PostgresAlertRepo) Create(ctx context.Context, alert models.MAlert) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO alerts (id, user_id, platform, symbol, condition, threshold, created_at)
		VALUES (:id, :user_id, :platform, :symbol, :condition, :threshold, :created_at)
	`, alert)
	return err
}

// -----------------------------------------------------------------------------

func (r *PostgresAlertRepo) FindByID(ctx context.Context, id string) (models.MAlert, error) {
	var alert models.MAlert
	err := r.DB.GetContext(ctx, &alert, `SELECT * FROM alerts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MAlert{}, helpers.NewNotFound("alert %s not found", id)
	}
	return alert, err
}

// -----------------------------------------------------------------------------

func (r *PostgresAlertRepo) FindByUser(ctx context.Context, userID string) ([]models.MAlert, error) {
	var alerts []models.MAlert
	err := r.DB.SelectContext(ctx, &alerts, `SELECT * FROM alerts WHERE user_id = $1 ORDER BY created_at`, userID)
	return alerts, err
}

// -----------------------------------------------------------------------------

// Delete removes the alert. The rows-affected check makes the delete the
// linearization point for concurrent trigger passes: only one caller ever
// sees a successful delete.
func (r *PostgresAlertRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return helpers.NewNotFound("alert %s not found", id)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Trade rule repository
// -----------------------------------------------------------------------------

type PostgresTradeRuleRepo struct {
	DB *sqlx.DB
}

var _ interfaces.ITradeRuleRepo = (*PostgresTradeRuleRepo)(nil)

func NewPostgresTradeRuleRepo(db *PostgresDB) *PostgresTradeRuleRepo {
	return &PostgresTradeRuleRepo{DB: db.DB}
}

// -----------------------------------------------------------------------------

func (r *PostgresTradeRuleRepo) Create(ctx context.Context, rule models.MTradeRule) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO trade_rules (id, user_id, portfolio_id, platform, symbol, condition, action,
			quantity, quantity_type, threshold, api_key_id, is_active, created_at)
		VALUES (:id, :user_id, :portfolio_id, :platform, :symbol, :condition, :action,
			:quantity, :quantity_type, :threshold, :api_key_id, :is_active, :created_at)
	`, rule)
	return err
}

// -----------------------------------------------------------------------------

func (r *PostgresTradeRuleRepo) FindByID(ctx context.Context, id string) (models.MTradeRule, error) {
	var rule models.MTradeRule
	err := r.DB.GetContext(ctx, &rule, `SELECT * FROM trade_rules WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MTradeRule{}, helpers.NewNotFound("trade rule %s not found", id)
	}
	return rule, err
}

// -----------------------------------------------------------------------------

func (r *PostgresTradeRuleRepo) FindByUser(ctx context.Context, userID string) ([]models.MTradeRule, error) {
	var rules []models.MTradeRule
	err := r.DB.SelectContext(ctx, &rules, `SELECT * FROM trade_rules WHERE user_id = $1 ORDER BY created_at`, userID)
	return rules, err
}

// -----------------------------------------------------------------------------

func (r *PostgresTradeRuleRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE trade_rules SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return helpers.NewNotFound("trade rule %s not found", id)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (r *PostgresTradeRuleRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM trade_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return helpers.NewNotFound("trade rule %s not found", id)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Transaction repository
// -----------------------------------------------------------------------------

type PostgresTransactionRepo struct {
	DB *sqlx.DB
}

var _ interfaces.ITransactionRepo = (*PostgresTransactionRepo)(nil)

func NewPostgresTransactionRepo(db *PostgresDB) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{DB: db.DB}
}

// -----------------------------------------------------------------------------

func (r *PostgresTransactionRepo) Create(ctx context.Context, tx models.MTransaction) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO transactions (id, portfolio_id, symbol, action, quantity, price, date)
		VALUES (:id, :portfolio_id, :symbol, :action, :quantity, :price, :date)
	`, tx)
	return err
}

// -----------------------------------------------------------------------------

func (r *PostgresTransactionRepo) ForPortfolio(ctx context.Context, portfolioID string) ([]models.MTransaction, error) {
	var txs []models.MTransaction
	err := r.DB.SelectContext(ctx, &txs, `
		SELECT * FROM transactions
		WHERE portfolio_id = $1
		ORDER BY date DESC, seq DESC
	`, portfolioID)
	return txs, err
}
