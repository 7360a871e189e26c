// Package mayerd implements the rolling-average service behind the Mayer
// multiple: it samples the market price every hour, maintains a 200-day
// window of daily average rates in SQLite and publishes the trailing average
// to a file the bot watches.
package mayerd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"balancer/internal/config"
	"balancer/internal/logger"
	"balancer/internal/resilience"

	"github.com/markcheno/go-talib"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// windowDays is the averaging window. Rates older than that are dropped.
const windowDays = 200

const dateLayout = "2006-01-02"

// Rate is one day's average price. Count tracks how many samples went into
// the average so far, so intraday updates stay an incremental mean.
type Rate struct {
	Date  string  `gorm:"column:date;primaryKey"`
	Count int64   `gorm:"column:count"`
	Price float64 `gorm:"column:price"`
}

func (Rate) TableName() string { return "rates" }

// PriceFunc returns the current market price.
type PriceFunc func(ctx context.Context) (float64, error)

type Service struct {
	db      *gorm.DB
	cfg     config.MayerConfig
	avgFile string
	price   PriceFunc
	now     func() time.Time
}

func NewService(cfg config.MayerConfig, avgFile string, price PriceFunc) (*Service, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Rate{}); err != nil {
		return nil, err
	}
	return &Service{db: db, cfg: cfg, avgFile: avgFile, price: price, now: time.Now}, nil
}

// Run samples once every hour, at minute one, and prunes the window shortly
// after midnight. It blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.CheckData(ctx); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := s.now().UTC()
		if now.Minute() == 1 {
			s.updateRates(ctx)
			s.updateAverage()
			if now.Hour() == 0 {
				if err := s.DeleteOldest(); err != nil {
					logger.Errorf("Cannot prune rates: %v", err)
				}
			}
			resilience.Sleep(ctx, time.Minute)
		}
		resilience.Sleep(ctx, 55*time.Second)
	}
}

func (s *Service) updateRates(ctx context.Context) {
	price, err := s.currentPrice(ctx)
	if err != nil {
		// Carry yesterday's rate forward rather than leaving a gap.
		last, lerr := s.lastRate()
		if lerr != nil {
			logger.Errorf("No price and no previous rate: %v", err)
			return
		}
		price = last
	}
	if err := s.PersistRate(price); err != nil {
		logger.Errorf("Cannot persist rate: %v", err)
	}
}

func (s *Service) updateAverage() {
	avg, err := s.Average()
	if err != nil {
		logger.Errorf("Cannot compute average: %v", err)
		return
	}
	logger.Infof("-- NEW AVG %f", avg)
	if err := s.WriteAverageFile(avg); err != nil {
		logger.Errorf("Cannot write average file: %v", err)
	}
}

// PersistRate inserts today's first sample or folds the price into today's
// running average.
func (s *Service) PersistRate(price float64) error {
	today := s.now().UTC().Format(dateLayout)
	var current Rate
	err := s.db.First(&current, "date = ?", today).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row := Rate{Date: today, Count: 1, Price: price}
		logger.Infof("Inserting rate %s %f", today, price)
		return s.db.Create(&row).Error
	}
	if err != nil {
		return err
	}
	avg := dailyAverage(current, price)
	logger.Infof("Updating rate %s %f", today, avg)
	return s.db.Model(&Rate{}).Where("date = ?", today).
		Updates(map[string]any{"count": current.Count + 1, "price": avg}).Error
}

func dailyAverage(current Rate, price float64) float64 {
	return (price + current.Price*float64(current.Count)) / float64(current.Count+1)
}

// Average computes the mean daily price over the trailing window.
func (s *Service) Average() (float64, error) {
	today := s.now().UTC()
	from := today.AddDate(0, 0, -(windowDays - 1)).Format(dateLayout)
	var prices []float64
	err := s.db.Model(&Rate{}).
		Where("date BETWEEN ? AND ?", from, today.Format(dateLayout)).
		Order("date").
		Pluck("price", &prices).Error
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no rates in window")
	}
	if len(prices) == 1 {
		return prices[0], nil
	}
	sma := talib.Sma(prices, len(prices))
	return sma[len(sma)-1], nil
}

// DeleteOldest removes rates that fell out of the window.
func (s *Service) DeleteOldest() error {
	cutoff := s.now().UTC().AddDate(0, 0, -windowDays).Format(dateLayout)
	logger.Infof("Deleting rates older than %s", cutoff)
	return s.db.Where("date < ?", cutoff).Delete(&Rate{}).Error
}

// WriteAverageFile publishes the average atomically, so the watching bot
// never reads a half-written value.
func (s *Service) WriteAverageFile(avg float64) error {
	tmp := s.avgFile + ".tmp"
	value := strconv.FormatFloat(avg, 'f', -1, 64)
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.avgFile)
}

func (s *Service) lastRate() (float64, error) {
	var row Rate
	if err := s.db.Order("date DESC").First(&row).Error; err != nil {
		return 0, err
	}
	return row.Price, nil
}

func (s *Service) lastDate() (string, error) {
	var row Rate
	err := s.db.Order("date DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Date, nil
}

func (s *Service) currentPrice(ctx context.Context) (float64, error) {
	for attempt := 0; attempt <= 10; attempt++ {
		price, err := s.price(ctx)
		if err == nil && price > 0 {
			return price, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		logger.Debugf("Got an error %v fetching current price, retrying in 10 seconds...", err)
		resilience.Sleep(ctx, resilience.Jitter(10*time.Second, 12*time.Second))
	}
	logger.Errorf("Failed fetching current price, giving up after 10 attempts")
	return 0, fmt.Errorf("no current price")
}
