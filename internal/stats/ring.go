// Package stats maintains the rolling window of daily balance and price
// snapshots used for the 24-hour change figures in the reports.
package stats

import (
	"math"
	"sort"
	"time"
)

// ringSize is the number of calendar days kept: today plus the previous two.
const ringSize = 3

// DailyStat is one day's snapshot. Day is the ring key, year*1000+dayOfYear,
// so the window survives a year rollover without colliding day indices.
type DailyStat struct {
	Day               int     `json:"day"`
	MarginBalance     float64 `json:"mBal"`
	FiatMarginBalance float64 `json:"fmBal"`
	Price             float64 `json:"price"`
}

// DayKey returns the ring key for the given instant, in UTC.
func DayKey(t time.Time) int {
	t = t.UTC()
	return t.Year()*1000 + t.YearDay()
}

// Ring is the ordered set of at most ringSize daily snapshots.
type Ring struct {
	Days []DailyStat `json:"days"`
}

// Add inserts a snapshot for the given day. The first write for a day wins;
// a later insert for the same day is a no-op. When a new day overflows the
// window, the oldest day is evicted, by day index, not insertion order.
// It reports whether the ring changed.
func (r *Ring) Add(day int, stat DailyStat) bool {
	if r.Get(day) != nil {
		return false
	}
	stat.Day = day
	if len(r.Days) >= ringSize {
		sort.Slice(r.Days, func(i, j int) bool { return r.Days[i].Day > r.Days[j].Day })
		r.Days = r.Days[:ringSize-1]
	}
	r.Days = append(r.Days, stat)
	return true
}

// Get returns the snapshot stored for the given day, nil when absent.
func (r *Ring) Get(day int) *DailyStat {
	for i := range r.Days {
		if r.Days[i].Day == day {
			return &r.Days[i]
		}
	}
	return nil
}

// Today carries the current snapshot and the changes against the record of
// one calendar day earlier. A nil change means the previous day is unknown,
// never "no change".
type Today struct {
	DailyStat
	MarginBalanceChange *float64
	FiatBalanceChange   *float64
	PriceChange         *float64
	// Yesterday is the raw previous-day record, nil when absent. The value
	// change and trading result figures need it beyond the percentages.
	Yesterday *DailyStat
}

// Changes computes the 24h percentage changes for the given snapshot from
// the ring. Each change requires the corresponding value of the previous
// day to be present and positive.
func (r *Ring) Changes(day int, stat DailyStat) Today {
	today := Today{DailyStat: stat}
	today.Day = day
	yesterday := r.Get(day - 1)
	if yesterday == nil {
		return today
	}
	today.Yesterday = yesterday
	if yesterday.MarginBalance > 0 {
		today.MarginBalanceChange = changePct(stat.MarginBalance, yesterday.MarginBalance)
	}
	if yesterday.FiatMarginBalance > 0 {
		today.FiatBalanceChange = changePct(stat.FiatMarginBalance, yesterday.FiatMarginBalance)
	}
	if yesterday.Price > 0 {
		today.PriceChange = changePct(stat.Price, yesterday.Price)
	}
	return today
}

func changePct(now, before float64) *float64 {
	change := math.Round((now/before-1)*100*100) / 100
	return &change
}
