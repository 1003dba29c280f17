package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tradewatch/src/interfaces"
	"tradewatch/src/logger"
	"tradewatch/src/models"

	"github.com/go-redis/redis/v8"
)

// -----------------------------------------------------------------------------

// RedisCandleStore keeps candles in Redis: one sorted set per
// (platform, symbol, timeframe) key scored by bar open time, with each
// member a JSON candle. Re-saving a bar slot removes the old member first,
// which is how in-progress bar mutation is represented.
type RedisCandleStore struct {
	Client *redis.Client
	Logger *logger.Logger
	prefix string
}

var _ interfaces.ICandleStore = (*RedisCandleStore)(nil)

// -----------------------------------------------------------------------------

func NewRedisCandleStore(cfg *models.MConfig, log *logger.Logger) (*RedisCandleStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Storage.RedisAddr,
		DB:   cfg.Storage.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCandleStore{
		Client: client,
		Logger: log,
		prefix: "candles:",
	}, nil
}

// -----------------------------------------------------------------------------

func (r *RedisCandleStore) seriesKey(platform, symbol string, tf models.MTimeframe) string {
	return fmt.Sprintf("%s%s:%s:%s", r.prefix, platform, symbol, tf)
}

// -----------------------------------------------------------------------------

func (r *RedisCandleStore) SaveCandle(ctx context.Context, c models.MCandle) error {
	key := r.seriesKey(c.Platform, c.Symbol, c.Timeframe)

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	score := float64(c.Timestamp)
	pipe := r.Client.TxPipeline()
	// Drop any previous revision of this bar slot before writing the new one.
	pipe.ZRemRangeByScore(ctx, key, fmt.Sprintf("%d", c.Timestamp), fmt.Sprintf("%d", c.Timestamp))
	pipe.ZAdd(ctx, key, &redis.Z{Score: score, Member: string(data)})
	_, err = pipe.Exec(ctx)
	return err
}

// -----------------------------------------------------------------------------

func (r *RedisCandleStore) LatestCandle(ctx context.Context, platform, symbol string, tf models.MTimeframe) (models.MCandle, bool, error) {
	key := r.seriesKey(platform, symbol, tf)

	results, err := r.Client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		return models.MCandle{}, false, err
	}
	if len(results) == 0 {
		return models.MCandle{}, false, nil
	}

	var c models.MCandle
	if err := json.Unmarshal([]byte(results[0]), &c); err != nil {
		return models.MCandle{}, false, fmt.Errorf("corrupt candle in %s: %w", key, err)
	}
	return c, true, nil
}

// -----------------------------------------------------------------------------

func (r *RedisCandleStore) CandlesInRange(ctx context.Context, platform, symbol string, tf models.MTimeframe, start, end time.Time) ([]models.MCandle, error) {
	key := r.seriesKey(platform, symbol, tf)

	results, err := r.Client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", start.Unix()),
		Max: fmt.Sprintf("%d", end.Unix()),
	}).Result()
	if err != nil {
		return nil, err
	}

	var candles []models.MCandle
	for _, raw := range results {
		var c models.MCandle
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			r.Logger.Warning("skipping corrupt candle in %s: %v", key, err)
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// -----------------------------------------------------------------------------

func (r *RedisCandleStore) Close() error {
	return r.Client.Close()
}
