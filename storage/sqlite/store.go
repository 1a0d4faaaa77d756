// Package sqlite stores slots in SQLite through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/mo"
	sqlitedriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cyp0633/libslots/slot"
	"github.com/cyp0633/libslots/storage"
)

// slotRecord is the row layout. Times are stored in UTC.
type slotRecord struct {
	ID            string    `gorm:"primaryKey"`
	OpportunityID string    `gorm:"index;not null"`
	StartAt       time.Time `gorm:"index;not null"`
	EndAt         time.Time `gorm:"not null"`
	Capacity      *int
	HostingStatus string `gorm:"index;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (slotRecord) TableName() string {
	return "slots"
}

// Store implements storage.Storage on a gorm database.
type Store struct {
	db  *gorm.DB
	loc *time.Location
}

type options struct {
	loc    *time.Location
	logger *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithLocation sets the zone slots are returned in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.loc = loc
	}
}

// WithLogger routes gorm warnings to logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Open opens a SQLite database and runs migrations.
func Open(dsn string, opts ...Option) (*Store, error) {
	o := options{loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if dsn == "" {
		dsn = "slots.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		slog.NewLogLogger(o.logger.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlitedriver.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&slotRecord{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return &Store{db: db, loc: o.loc}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

func toRecord(s *storage.Slot) slotRecord {
	return slotRecord{
		ID:            s.ID,
		OpportunityID: s.OpportunityID,
		StartAt:       s.StartAt.UTC(),
		EndAt:         s.EndAt.UTC(),
		Capacity:      s.Capacity.ToPointer(),
		HostingStatus: string(s.HostingStatus),
	}
}

func (s *Store) fromRecord(r slotRecord) *storage.Slot {
	return &storage.Slot{
		ID:            r.ID,
		OpportunityID: r.OpportunityID,
		StartAt:       r.StartAt.In(s.loc),
		EndAt:         r.EndAt.In(s.loc),
		Capacity:      mo.PointerToOption(r.Capacity),
		HostingStatus: slot.HostingStatus(r.HostingStatus),
		Created:       r.CreatedAt.In(s.loc),
		Modified:      r.UpdatedAt.In(s.loc),
	}
}

func notFound(err error) error {
	return &storage.Error{Type: storage.ErrNotFound, Message: "slot not found", Err: err}
}

func (s *Store) ListSlots(ctx context.Context, opportunityID string) ([]*storage.Slot, error) {
	var records []slotRecord
	if err := s.db.WithContext(ctx).
		Where("opportunity_id = ?", opportunityID).
		Order("start_at, id").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	slots := make([]*storage.Slot, 0, len(records))
	for _, r := range records {
		slots = append(slots, s.fromRecord(r))
	}
	return slots, nil
}

func (s *Store) GetSlot(ctx context.Context, id string) (*storage.Slot, error) {
	var record slotRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return s.fromRecord(record), nil
}

func (s *Store) CreateSlot(ctx context.Context, slotToCreate *storage.Slot) error {
	if err := storage.PrepareCreate(slotToCreate); err != nil {
		return err
	}

	record := toRecord(slotToCreate)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&slotRecord{}).Where("id = ?", record.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &storage.Error{Type: storage.ErrAlreadyExists, Message: "slot already exists"}
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		if storage.IsType(err, storage.ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("create slot: %w", err)
	}

	slotToCreate.Created = record.CreatedAt.In(s.loc)
	slotToCreate.Modified = record.UpdatedAt.In(s.loc)
	return nil
}

func (s *Store) UpdateSlot(ctx context.Context, slotToUpdate *storage.Slot) error {
	return s.UpdateSlots(ctx, []*storage.Slot{slotToUpdate})
}

// UpdateSlots runs every update in one transaction.
func (s *Store) UpdateSlots(ctx context.Context, slotsToUpdate []*storage.Slot) error {
	for _, slotToUpdate := range slotsToUpdate {
		if err := storage.Validate(slotToUpdate); err != nil {
			return err
		}
	}

	records := make([]slotRecord, len(slotsToUpdate))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, slotToUpdate := range slotsToUpdate {
			records[i] = toRecord(slotToUpdate)
			if err := updateRecord(tx, &records[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var storageErr *storage.Error
		if errors.As(err, &storageErr) {
			return err
		}
		return fmt.Errorf("update slot: %w", err)
	}

	for i, slotToUpdate := range slotsToUpdate {
		slotToUpdate.Created = records[i].CreatedAt.In(s.loc)
		slotToUpdate.Modified = records[i].UpdatedAt.In(s.loc)
	}
	return nil
}

func updateRecord(tx *gorm.DB, record *slotRecord) error {
	var existing slotRecord
	err := tx.Where("id = ?", record.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(nil)
	}
	if err != nil {
		return err
	}
	if existing.OpportunityID != record.OpportunityID {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "slot belongs to another opportunity"}
	}
	record.CreatedAt = existing.CreatedAt
	return tx.Save(record).Error
}

func (s *Store) CompleteEndedSlots(ctx context.Context, now time.Time) (int, error) {
	result := s.db.WithContext(ctx).
		Model(&slotRecord{}).
		Where("hosting_status = ? AND end_at <= ?", string(slot.StatusScheduled), now.UTC()).
		Update("hosting_status", string(slot.StatusCompleted))
	if result.Error != nil {
		return 0, fmt.Errorf("complete ended slots: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

var _ storage.Storage = (*Store)(nil)
