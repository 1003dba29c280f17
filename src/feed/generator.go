package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"tradewatch/src/candles"
	"tradewatch/src/interfaces"
	"tradewatch/src/logger"
	"tradewatch/src/models"
)

// -----------------------------------------------------------------------------
// Simulated candle feed
// -----------------------------------------------------------------------------
// Keeps the candle store populated for development and paper-trading runs
// where no external ingest pipeline is attached. Each configured market gets
// a random-walk price; every tick mutates the in-progress M1 bar and rolls
// a fresh one when the minute changes. Higher timeframes are derived by
// resampling the M1 bars of the current window, so the store stays
// consistent across every timeframe a subscription can ask for.

var derivedTimeframes = []models.MTimeframe{
	models.TimeframeM5,
	models.TimeframeM15,
	models.TimeframeH1,
	models.TimeframeH4,
	models.TimeframeD1,
}

type Generator struct {
	Logger *logger.Logger
	Store  interfaces.ICandleStore
	Config models.MFeedConfig

	mu      sync.Mutex
	markets []*marketState
}

// marketState is the walk state for one (platform, symbol) pair. minuteBars
// holds the M1 bars of the current D1 window, oldest first; derived
// timeframes resample from it.
type marketState struct {
	platform   string
	symbol     string
	price      float64
	current    *models.MCandle
	minuteBars []models.MCandle
}

// -----------------------------------------------------------------------------

func NewGenerator(cfg models.MFeedConfig, store interfaces.ICandleStore, log *logger.Logger) *Generator {
	g := &Generator{
		Logger: log,
		Store:  store,
		Config: cfg,
	}
	for _, m := range cfg.Markets {
		price := m.BasePrice
		if price <= 0 {
			price = 100
		}
		g.markets = append(g.markets, &marketState{
			platform: m.Platform,
			symbol:   m.Symbol,
			price:    price,
		})
	}
	return g
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start launches the tick loop. It returns immediately; the loop exits when
// the context is cancelled and signals the shared WaitGroup.
func (g *Generator) Start(ctx context.Context, wg *sync.WaitGroup) {
	tick := time.Duration(g.Config.TickMs) * time.Millisecond
	if tick <= 0 {
		tick = time.Second
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		g.Logger.Info("Feed generator started (%d markets, tick %v)", len(g.markets), tick)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				g.Logger.Info("Feed generator stopped")
				return
			case now := <-ticker.C:
				g.step(ctx, now.UTC())
			}
		}
	}()
}

// -----------------------------------------------------------------------------
// Tick
// -----------------------------------------------------------------------------

// step advances every market's walk by one tick and persists the touched
// M1 bar plus every derived bar that contains it.
func (g *Generator) step(ctx context.Context, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, m := range g.markets {
		m.price = nextPrice(m.price)
		m.applyTick(now, m.price)

		if err := g.Store.SaveCandle(ctx, *m.current); err != nil {
			g.Logger.Error("Feed: saving %s %s M1 bar failed: %v", m.platform, m.symbol, err)
			continue
		}

		for _, tf := range derivedTimeframes {
			windowStart, _ := candles.WindowBounds(now, tf)
			bar, ok := candles.Aggregate(m.barsInWindow(windowStart, tf), tf)
			if !ok {
				continue
			}
			if err := g.Store.SaveCandle(ctx, bar); err != nil {
				g.Logger.Error("Feed: saving %s %s %s bar failed: %v", m.platform, m.symbol, tf, err)
			}
		}
	}
}

// -----------------------------------------------------------------------------

// applyTick mutates the in-progress M1 bar, or opens a new one when the
// minute rolled over. Sequence is bumped on every change so readers can see
// in-place mutation of the current bar.
func (m *marketState) applyTick(now time.Time, price float64) {
	open := models.TruncateToTimeframe(now, models.TimeframeM1)

	if m.current == nil || m.current.Timestamp != open.Unix() {
		if m.current != nil {
			m.minuteBars = append(m.minuteBars, *m.current)
		}
		m.pruneBefore(models.TruncateToTimeframe(now, models.TimeframeD1))
		m.current = &models.MCandle{
			Platform:  m.platform,
			Symbol:    m.symbol,
			Timeframe: models.TimeframeM1,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Timestamp: open.Unix(),
		}
	}

	bar := m.current
	if price > bar.High {
		bar.High = price
	}
	if price < bar.Low {
		bar.Low = price
	}
	bar.Close = price
	bar.Volume += float64(rand.Intn(90) + 10)
	bar.Sequence++
}

// -----------------------------------------------------------------------------

// barsInWindow returns the finished M1 bars within the tf window starting
// at windowStart, plus the in-progress bar.
func (m *marketState) barsInWindow(windowStart time.Time, tf models.MTimeframe) []models.MCandle {
	windowEnd := windowStart.Add(tf.Duration())

	var out []models.MCandle
	for _, b := range m.minuteBars {
		if b.Timestamp >= windowStart.Unix() && b.Timestamp < windowEnd.Unix() {
			out = append(out, b)
		}
	}
	if m.current != nil && m.current.Timestamp >= windowStart.Unix() && m.current.Timestamp < windowEnd.Unix() {
		out = append(out, *m.current)
	}
	return out
}

// -----------------------------------------------------------------------------

// pruneBefore drops finished M1 bars older than the current day; no derived
// window reaches further back.
func (m *marketState) pruneBefore(dayStart time.Time) {
	cutoff := dayStart.Unix()
	kept := m.minuteBars[:0]
	for _, b := range m.minuteBars {
		if b.Timestamp >= cutoff {
			kept = append(kept, b)
		}
	}
	m.minuteBars = kept
}

// -----------------------------------------------------------------------------

// nextPrice moves the walk by at most ~0.2% per tick, floored well above
// zero so PRICE_BELOW alerts on sane thresholds stay meaningful.
func nextPrice(price float64) float64 {
	delta := price * 0.002 * (rand.Float64()*2 - 1)
	next := price + delta
	if next < price*0.5 {
		next = price * 0.5
	}
	return next
}
