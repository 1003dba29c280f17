package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Storage  MStorageConfig `yaml:"storage"`
	Polling  MPollingConfig `yaml:"polling"`
	Feed     MFeedConfig    `yaml:"feed"`
	Trading  MTradingConfig `yaml:"trading"`
}

// MStorageConfig selects the candle store backend and the entity database.
type MStorageConfig struct {
	CandleStore string `yaml:"candle_store"` // "sqlite" or "redis"
	DBPath      string `yaml:"db_path"`      // sqlite candle store path
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	PostgresDSN string `yaml:"postgres_dsn"` // alert/rule/transaction repos; empty = in-memory
}

// MPollingConfig holds the fixed intervals of the three poll loops, in
// seconds, plus the per-subscription external-call timeout.
type MPollingConfig struct {
	StockIntervalSeconds int `yaml:"stock_interval_seconds"`
	AlertIntervalSeconds int `yaml:"alert_interval_seconds"`
	TradeIntervalSeconds int `yaml:"trade_interval_seconds"`
	CallTimeoutSeconds   int `yaml:"call_timeout_seconds"`
}

// MFeedConfig configures the built-in candle feed that keeps the store
// populated when no external ingest pipeline is attached.
type MFeedConfig struct {
	Enabled bool            `yaml:"enabled"`
	TickMs  int             `yaml:"tick_ms"`
	Markets []MMarketConfig `yaml:"markets"`
}

// MMarketConfig names one (platform, symbol) pair the feed maintains.
type MMarketConfig struct {
	Platform  string  `yaml:"platform"`
	Symbol    string  `yaml:"symbol"`
	BasePrice float64 `yaml:"base_price"`
}

// MTradingConfig configures the trading collaborator.
type MTradingConfig struct {
	Endpoint string `yaml:"endpoint"`
	Simulate bool   `yaml:"simulate"`
}
