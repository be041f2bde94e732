// Package database persists hostname sightings to SQLite for post-capture
// inspection.
package database

import (
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"netscope/internal/decode"
)

// flushBatch is the number of buffered events that triggers a write.
const flushBatch = 100

// DB wraps the gorm handle and buffers events for batched inserts.
type DB struct {
	*gorm.DB

	mu        sync.Mutex
	pending   []HostEvent
	ifaceName string
}

// New opens (or creates) the SQLite database at path and migrates the
// schema.
func New(path string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.Exec("PRAGMA journal_mode=WAL")
	sqlDB.Exec("PRAGMA synchronous=NORMAL")
	sqlDB.Exec("PRAGMA cache_size=2000")

	if err := db.AutoMigrate(&HostEvent{}); err != nil {
		return nil, err
	}

	return &DB{DB: db}, nil
}

// Close flushes pending events and closes the connection.
func (db *DB) Close() error {
	db.Flush()
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SetInterfaceName stamps subsequent events with the capture interface.
func (db *DB) SetInterfaceName(name string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.ifaceName = name
}

// Record buffers a hostname sighting, flushing when the batch fills. It
// implements the capture coordinator's Recorder interface.
func (db *DB) Record(rec decode.PacketRecord) {
	if rec.Hostname == "" {
		return
	}

	db.mu.Lock()
	db.pending = append(db.pending, HostEvent{
		Timestamp:   rec.Timestamp,
		Interface:   db.ifaceName,
		SrcIP:       rec.SrcIP,
		DstIP:       rec.DstIP,
		SrcPort:     rec.SrcPort,
		DstPort:     rec.DstPort,
		Hostname:    rec.Hostname,
		AppProtocol: rec.AppProtocol,
		AppInfo:     rec.AppInfo,
		Category:    rec.Category,
		Watchlisted: rec.WatchlistMatch,
		Label:       rec.WatchlistLabel,
		WireLen:     rec.WireLen,
	})
	full := len(db.pending) >= flushBatch
	db.mu.Unlock()

	if full {
		db.Flush()
	}
}

// Flush writes all buffered events in one batch. Safe to call periodically
// from a ticker; a write failure re-queues nothing (events are display data,
// not a ledger).
func (db *DB) Flush() error {
	db.mu.Lock()
	batch := db.pending
	db.pending = nil
	db.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return db.CreateInBatches(batch, flushBatch).Error
}

// Events returns persisted sightings matching the filter, newest first.
func (db *DB) Events(filter EventFilter) ([]HostEvent, error) {
	q := db.Model(&HostEvent{})

	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if filter.IP != "" {
		q = q.Where("src_ip = ? OR dst_ip = ?", filter.IP, filter.IP)
	}
	if filter.Hostname != "" {
		q = q.Where("hostname LIKE ?", "%"+filter.Hostname+"%")
	}
	if filter.Interface != "" {
		q = q.Where("interface = ?", filter.Interface)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var events []HostEvent
	err := q.Order("timestamp DESC").Limit(limit).Find(&events).Error
	return events, err
}

// TotalEvents returns the number of persisted sightings.
func (db *DB) TotalEvents() (int64, error) {
	var count int64
	err := db.Model(&HostEvent{}).Count(&count).Error
	return count, err
}

// CleanupOldEvents deletes sightings older than the retention window.
func (db *DB) CleanupOldEvents(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return db.Where("timestamp < ?", cutoff).Delete(&HostEvent{}).Error
}
