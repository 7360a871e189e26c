package mayerd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"balancer/internal/logger"
	"balancer/internal/resilience"

	"github.com/tidwall/gjson"
)

// fallbackStart bounds the backfill when the database is empty.
const fallbackStart = "2021-01-01"

// CheckData detects a gap since the last persisted rate and, when a backup
// endpoint is configured, fills it from there. Without one it only warns;
// the window then rebuilds organically over the coming days.
func (s *Service) CheckData(ctx context.Context) error {
	last, err := s.lastDate()
	if err != nil {
		return err
	}
	if last == "" {
		last = fallbackStart
	}
	lastDate, err := time.Parse(dateLayout, last)
	if err != nil {
		return fmt.Errorf("corrupt last date %q: %w", last, err)
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if !lastDate.Before(today) {
		return nil
	}
	if s.cfg.BackupURL == "" {
		logger.Warnf("Detected missing data, last data is from %s", last)
		return nil
	}
	return s.backfill(ctx, lastDate)
}

func (s *Service) backfill(ctx context.Context, lastDate time.Time) error {
	body, err := s.fetchRates(ctx)
	if err != nil {
		return err
	}
	entries := gjson.ParseBytes(body).Array()
	if len(entries) > windowDays {
		entries = entries[len(entries)-windowDays:]
	}
	for _, entry := range entries {
		date := entry.Get("Date").String()
		when, err := time.Parse(dateLayout, date)
		if err != nil || !when.After(lastDate) {
			continue
		}
		row := Rate{Date: date, Count: 1, Price: entry.Get("Price").Float()}
		logger.Infof("Backfilling rate %s %f", row.Date, row.Price)
		if err := s.db.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) fetchRates(ctx context.Context) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	for attempt := 1; ; attempt++ {
		body, err := fetchOnce(ctx, client, s.cfg.BackupURL)
		if err == nil {
			return body, nil
		}
		if attempt >= 5 || ctx.Err() != nil {
			logger.Warnf("Failed to fetch missing rates, giving up after %d attempts", attempt)
			return nil, err
		}
		logger.Errorf("Got an error %v fetching rates, retrying in about 5 seconds...", err)
		resilience.Sleep(ctx, resilience.Jitter(4*time.Second, 6*time.Second))
	}
}

func fetchOnce(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("backup endpoint status=%d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
