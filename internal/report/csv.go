package report

import (
	"encoding/csv"
	"os"
	"strings"
	"time"
)

// CSV appends one daily report row per calendar day to a semicolon separated
// file. The header is written for a fresh file and again on January 1st, so
// a year starts with the current column set.
type CSV struct {
	path string
}

func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

// Append writes the row unless one for now's date already exists.
func (c *CSV) Append(labels, row []string, now time.Time) error {
	written, err := c.alreadyWritten(now)
	if err != nil {
		return err
	}
	if written {
		return nil
	}
	if fresh, err := c.needsHeader(now); err != nil {
		return err
	} else if fresh {
		if err := c.write(labels, true); err != nil {
			return err
		}
	}
	return c.write(row, false)
}

func (c *CSV) needsHeader(now time.Time) (bool, error) {
	if _, err := os.Stat(c.path); err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return now.YearDay() == 1, nil
}

// alreadyWritten reports whether the last line carries today's date.
func (c *CSV) alreadyWritten(now time.Time) (bool, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) == 0 {
		return false, nil
	}
	return strings.Contains(lines[len(lines)-1], now.UTC().Format("2006-01-02")), nil
}

func (c *CSV) write(fields []string, truncate bool) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	file, err := os.OpenFile(c.path, flags, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	w := csv.NewWriter(file)
	w.Comma = ';'
	if err := w.Write(fields); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
