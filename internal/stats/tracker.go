package stats

import (
	"fmt"
	"time"
)

// Tracker combines the ring with its store and the daily cutoff. The ring
// is written at most once per calendar day, on the first cycle past the
// cutoff; every other cycle only reads.
type Tracker struct {
	store  *Store
	cutoff time.Duration
	now    func() time.Time
}

func NewTracker(store *Store, cutoffUTC string) (*Tracker, error) {
	parsed, err := time.Parse("15:04", cutoffUTC)
	if err != nil {
		return nil, fmt.Errorf("invalid cutoff %q: %w", cutoffUTC, err)
	}
	cutoff := time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute
	return &Tracker{store: store, cutoff: cutoff, now: time.Now}, nil
}

// Update records today's snapshot when due and returns it together with the
// 24h changes. With update false the ring is only consulted, never written;
// the report-only mode uses that.
func (t *Tracker) Update(marginBalance, fiatMarginBalance, price float64, update bool) (Today, error) {
	ring, err := t.store.Load()
	if err != nil {
		return Today{}, err
	}
	now := t.now().UTC()
	day := DayKey(now)
	stat := DailyStat{MarginBalance: marginBalance, FiatMarginBalance: fiatMarginBalance, Price: price}
	if update && t.pastCutoff(now) && ring.Get(day) == nil {
		ring.Add(day, stat)
		if err := t.store.Save(ring); err != nil {
			return Today{}, err
		}
	}
	return ring.Changes(day, stat), nil
}

func (t *Tracker) pastCutoff(now time.Time) bool {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return now.Sub(midnight) > t.cutoff
}
