// Package archive persists the contract event feed to a SQL database so
// history outlives the in-memory ring and process restarts.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"questchain/core/events"
	"questchain/observability/metrics"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultBatchSize     = 256
	defaultFlushInterval = 2 * time.Second
	maxQueryLimit        = 1000
	maxPendingBatches    = 16
)

var ErrUnknownDriver = errors.New("archive: unknown driver")

// Config selects the backing database.
type Config struct {
	Driver        string
	DSN           string
	BatchSize     int
	FlushInterval time.Duration
}

// Event is one archived feed record.
type Event struct {
	ID           uint   `gorm:"primaryKey"`
	InvocationID string `gorm:"size:36;index"`
	Timestamp    int64  `gorm:"index"`
	Type         string `gorm:"size:128;index"`
	Attributes   string `gorm:"type:text"`
	CreatedAt    time.Time
}

func (Event) TableName() string { return "contract_events" }

// Decode returns the archived attributes.
func (e Event) Decode() (map[string]string, error) {
	attrs := map[string]string{}
	if e.Attributes == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(e.Attributes), &attrs); err != nil {
		return nil, fmt.Errorf("archive: decode attributes of event %d: %w", e.ID, err)
	}
	return attrs, nil
}

// Filter narrows Query and Count. Zero values match everything.
type Filter struct {
	Type          string
	InvocationID  string
	FromTimestamp int64
	ToTimestamp   int64
	Limit         int
	Offset        int
	// Oldest returns records in insertion order instead of newest first.
	Oldest bool
}

// Archive stores feed records through gorm.
type Archive struct {
	db            *gorm.DB
	batchSize     int
	flushInterval time.Duration
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config) (*Archive, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverSQLite, "":
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("archive: sqlite dsn must be set")
		}
		dialector = sqlite.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	a := &Archive{db: db, batchSize: cfg.BatchSize, flushInterval: cfg.FlushInterval}
	if a.batchSize <= 0 {
		a.batchSize = defaultBatchSize
	}
	if a.flushInterval <= 0 {
		a.flushInterval = defaultFlushInterval
	}
	return a, nil
}

// Close releases the connection pool.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func fromRecord(rec events.Record) (Event, error) {
	out := Event{InvocationID: rec.InvocationID, Timestamp: rec.Timestamp}
	if rec.Event == nil {
		return out, nil
	}
	out.Type = rec.Event.Type
	if len(rec.Event.Attributes) > 0 {
		raw, err := json.Marshal(rec.Event.Attributes)
		if err != nil {
			return out, err
		}
		out.Attributes = string(raw)
	}
	return out, nil
}

// Store appends records in one transaction.
func (a *Archive) Store(ctx context.Context, records []events.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]Event, 0, len(records))
	for _, rec := range records {
		row, err := fromRecord(rec)
		if err != nil {
			return fmt.Errorf("archive: encode record %d: %w", rec.Seq, err)
		}
		rows = append(rows, row)
	}
	if err := a.db.WithContext(ctx).CreateInBatches(rows, a.batchSize).Error; err != nil {
		return fmt.Errorf("archive: insert: %w", err)
	}
	return nil
}

func (a *Archive) scoped(ctx context.Context, f Filter) *gorm.DB {
	q := a.db.WithContext(ctx).Model(&Event{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.InvocationID != "" {
		q = q.Where("invocation_id = ?", f.InvocationID)
	}
	if f.FromTimestamp > 0 {
		q = q.Where("timestamp >= ?", f.FromTimestamp)
	}
	if f.ToTimestamp > 0 {
		q = q.Where("timestamp <= ?", f.ToTimestamp)
	}
	return q
}

// Query returns archived events matching f.
func (a *Archive) Query(ctx context.Context, f Filter) ([]Event, error) {
	limit := f.Limit
	if limit <= 0 || limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	order := "id DESC"
	if f.Oldest {
		order = "id ASC"
	}
	var out []Event
	err := a.scoped(ctx, f).Order(order).Limit(limit).Offset(f.Offset).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("archive: query: %w", err)
	}
	return out, nil
}

// Count returns how many archived events match f, ignoring paging.
func (a *Archive) Count(ctx context.Context, f Filter) (int64, error) {
	var n int64
	if err := a.scoped(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("archive: count: %w", err)
	}
	return n, nil
}

// Start subscribes to feed and copies every record published from now on
// into the archive until ctx is done, flushing when a batch fills or the
// flush interval elapses. The returned channel closes after the final flush.
func (a *Archive) Start(ctx context.Context, feed *events.Feed, logger *slog.Logger) <-chan struct{} {
	if logger == nil {
		logger = slog.Default()
	}
	records, cancel := feed.Subscribe(a.batchSize * 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		a.consume(ctx, records, logger)
	}()
	return done
}

func (a *Archive) consume(ctx context.Context, records <-chan events.Record, logger *slog.Logger) {
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()
	pending := make([]events.Record, 0, a.batchSize)
	flush := func(ctx context.Context) {
		if len(pending) == 0 {
			return
		}
		err := a.Store(ctx, pending)
		metrics.Contracts().RecordArchived(len(pending), err)
		if err != nil {
			logger.Error("event archive flush failed", slog.Int("records", len(pending)), slog.Any("error", err))
			if over := len(pending) - a.batchSize*maxPendingBatches; over > 0 {
				logger.Warn("event archive dropping backlog", slog.Int("records", over))
				pending = append(pending[:0], pending[over:]...)
			}
			return
		}
		pending = pending[:0]
	}
	for {
		select {
		case rec, ok := <-records:
			if !ok {
				flush(ctx)
				return
			}
			pending = append(pending, rec)
			if len(pending) >= a.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			// Drain what was already delivered before stopping.
		drain:
			for {
				select {
				case rec := <-records:
					pending = append(pending, rec)
				default:
					break drain
				}
			}
			flushCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			flush(flushCtx)
			done()
			return
		}
	}
}
