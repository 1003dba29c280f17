package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradewatch/src/interfaces"
	"tradewatch/src/logger"
	"tradewatch/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// SQLiteCandleStore keeps market candles in an embedded SQLite database.
// One row per (platform, symbol, timeframe, timestamp); a re-save of the
// same bar replaces the row and bumps the sequence, which is how the
// mutating in-progress bar is represented.
type SQLiteCandleStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

var _ interfaces.ICandleStore = (*SQLiteCandleStore)(nil)

// -----------------------------------------------------------------------------

func NewSQLiteCandleStore(cfg *models.MConfig, log *logger.Logger) (*SQLiteCandleStore, error) {
	return &SQLiteCandleStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS candles (
			platform TEXT,
			symbol TEXT,
			timeframe TEXT,
			timestamp INTEGER,
			open REAL,
			high REAL,
			low REAL,
			close REAL,
			volume REAL,
			sequence INTEGER,
			PRIMARY KEY (platform, symbol, timeframe, timestamp)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create candles: %w", err)
	}

	if _, err := d.DB.Exec(`
		CREATE INDEX IF NOT EXISTS idx_candles_key_ts
		ON candles (platform, symbol, timeframe, timestamp DESC);
	`); err != nil {
		return fmt.Errorf("failed to create candle index: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) SaveCandle(ctx context.Context, c models.MCandle) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO candles (platform, symbol, timeframe, timestamp, open, high, low, close, volume, sequence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (platform, symbol, timeframe, timestamp)
		DO UPDATE SET open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, volume=excluded.volume, sequence=excluded.sequence
	`, c.Platform, c.Symbol, string(c.Timeframe), c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume, c.Sequence)
	return err
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) LatestCandle(ctx context.Context, platform, symbol string, tf models.MTimeframe) (models.MCandle, bool, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT platform, symbol, timeframe, timestamp, open, high, low, close, volume, sequence
		FROM candles
		WHERE platform = ? AND symbol = ? AND timeframe = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, platform, symbol, string(tf))

	var c models.MCandle
	err := row.Scan(&c.Platform, &c.Symbol, &c.Timeframe, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Sequence)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MCandle{}, false, nil
	}
	if err != nil {
		return models.MCandle{}, false, err
	}
	return c, true, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) CandlesInRange(ctx context.Context, platform, symbol string, tf models.MTimeframe, start, end time.Time) ([]models.MCandle, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT platform, symbol, timeframe, timestamp, open, high, low, close, volume, sequence
		FROM candles
		WHERE platform = ? AND symbol = ? AND timeframe = ? AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp ASC
	`, platform, symbol, string(tf), start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.MCandle
	for rows.Next() {
		var c models.MCandle
		if err := rows.Scan(&c.Platform, &c.Symbol, &c.Timeframe, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Sequence); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *SQLiteCandleStore) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
