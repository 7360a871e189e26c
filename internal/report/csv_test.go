package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var csvLabels = []string{"Bot", "Datetime", "Price"}

func csvRowFor(day time.Time) []string {
	return []string{"rb1", day.UTC().Format("2006-01-02 15:04:05"), "8000"}
}

func TestCSVWritesHeaderOnFreshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	c := NewCSV(path)
	now := time.Date(2026, 8, 28, 12, 5, 0, 0, time.UTC)

	require.NoError(t, c.Append(csvLabels, csvRowFor(now), now))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Bot;Datetime;Price", lines[0])
	assert.Contains(t, lines[1], "2026-08-28")
}

func TestCSVOneRowPerDay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	c := NewCSV(path)
	now := time.Date(2026, 8, 28, 12, 5, 0, 0, time.UTC)

	require.NoError(t, c.Append(csvLabels, csvRowFor(now), now))
	require.NoError(t, c.Append(csvLabels, csvRowFor(now), now.Add(10*time.Minute)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 2)
}

func TestCSVAppendsNextDayWithoutHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	c := NewCSV(path)
	day1 := time.Date(2026, 8, 28, 12, 5, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	require.NoError(t, c.Append(csvLabels, csvRowFor(day1), day1))
	require.NoError(t, c.Append(csvLabels, csvRowFor(day2), day2))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "2026-08-29")
}

func TestCSVRestartsOnNewYear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	c := NewCSV(path)
	dec31 := time.Date(2026, 12, 31, 12, 5, 0, 0, time.UTC)
	jan1 := dec31.AddDate(0, 0, 1)

	require.NoError(t, c.Append(csvLabels, csvRowFor(dec31), dec31))
	require.NoError(t, c.Append(csvLabels, csvRowFor(jan1), jan1))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	// Truncated on January 1st: header plus the new row only.
	require.Len(t, lines, 2)
	assert.Equal(t, "Bot;Datetime;Price", lines[0])
	assert.Contains(t, lines[1], "2027-01-01")
}
