package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// snapshotModel persists one ring as an opaque blob per bot instance.
// The ring is always read and written as a whole; there are no partial
// updates.
type snapshotModel struct {
	Instance  string `gorm:"column:instance;primaryKey"`
	Payload   []byte `gorm:"column:payload"`
	UpdatedAt time.Time
}

func (snapshotModel) TableName() string { return "daily_stats" }

// Store loads and saves the statistics ring in SQLite.
type Store struct {
	db       *gorm.DB
	instance string
}

func NewStore(path, instance string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("stats store: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&snapshotModel{}); err != nil {
		return nil, err
	}
	return &Store{db: db, instance: instance}, nil
}

// Load returns the persisted ring, or an empty one on first run.
func (s *Store) Load() (*Ring, error) {
	var row snapshotModel
	err := s.db.First(&row, "instance = ?", s.instance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Ring{}, nil
	}
	if err != nil {
		return nil, err
	}
	ring := &Ring{}
	if err := json.Unmarshal(row.Payload, ring); err != nil {
		return nil, fmt.Errorf("stats store: corrupt payload: %w", err)
	}
	return ring, nil
}

// Save writes the ring back, replacing the previous blob.
func (s *Store) Save(ring *Ring) error {
	payload, err := json.Marshal(ring)
	if err != nil {
		return err
	}
	row := snapshotModel{Instance: s.instance, Payload: payload, UpdatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instance"}},
		UpdateAll: true,
	}).Create(&row).Error
}
