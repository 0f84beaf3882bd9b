package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/internal/domain/repository"
)

// GormJournalRepository implements the JournalRepository interface on PostgreSQL
type GormJournalRepository struct {
	db *gorm.DB
}

// NewGormJournalRepository creates a new GORM journal repository
func NewGormJournalRepository(db *gorm.DB) repository.JournalRepository {
	return &GormJournalRepository{
		db: db,
	}
}

// LedgerEvents GORM model for database mapping
type LedgerEvents struct {
	RecordIndex int64     `gorm:"column:record_index;primaryKey;autoIncrement:false"`
	EventID     string    `gorm:"column:event_id;uniqueIndex"`
	EventType   string    `gorm:"column:event_type;index"`
	Payload     string    `gorm:"column:payload;type:text"`
	PrevHash    string    `gorm:"column:prev_hash"`
	Hash        string    `gorm:"column:hash"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name
func (LedgerEvents) TableName() string {
	return "ledger_events"
}

// LedgerRoots GORM model for database mapping
type LedgerRoots struct {
	ID        uint      `gorm:"primaryKey"`
	FromIndex int64     `gorm:"column:from_index"`
	ToIndex   int64     `gorm:"column:to_index;uniqueIndex"`
	RootHash  string    `gorm:"column:root_hash"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name
func (LedgerRoots) TableName() string {
	return "ledger_roots"
}

// AutoMigrateJournal creates or updates the journal tables
func AutoMigrateJournal(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(&LedgerEvents{}, &LedgerRoots{}), "AutoMigrateJournal")
}

// Append inserts records and roots in one transaction
func (r *GormJournalRepository) Append(ctx context.Context, records []entity.JournalRecord, roots []entity.JournalRoot) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(records) > 0 {
			models := make([]LedgerEvents, 0, len(records))
			for _, rec := range records {
				models = append(models, toLedgerEvent(rec))
			}
			if err := tx.Create(&models).Error; err != nil {
				return err
			}
		}
		if len(roots) > 0 {
			models := make([]LedgerRoots, 0, len(roots))
			for _, root := range roots {
				models = append(models, toLedgerRoot(root))
			}
			if err := tx.Create(&models).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "GormJournalRepository.Append")
}

// Records returns all records in index order
func (r *GormJournalRepository) Records(ctx context.Context) ([]entity.JournalRecord, error) {
	var models []LedgerEvents
	result := r.db.WithContext(ctx).Order("record_index asc").Find(&models)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "GormJournalRepository.Records")
	}

	// Convert to domain entities
	records := make([]entity.JournalRecord, 0, len(models))
	for _, m := range models {
		records = append(records, m.toEntity())
	}
	return records, nil
}

// Roots returns all sealed roots in order
func (r *GormJournalRepository) Roots(ctx context.Context) ([]entity.JournalRoot, error) {
	var models []LedgerRoots
	result := r.db.WithContext(ctx).Order("to_index asc").Find(&models)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "GormJournalRepository.Roots")
	}

	roots := make([]entity.JournalRoot, 0, len(models))
	for _, m := range models {
		roots = append(roots, m.toEntity())
	}
	return roots, nil
}

func toLedgerEvent(rec entity.JournalRecord) LedgerEvents {
	return LedgerEvents{
		RecordIndex: rec.Index,
		EventID:     rec.EventID,
		EventType:   string(rec.EventType),
		Payload:     rec.Payload,
		PrevHash:    rec.PrevHash,
		Hash:        rec.Hash,
		CreatedAt:   rec.CreatedAt,
	}
}

func (m LedgerEvents) toEntity() entity.JournalRecord {
	return entity.JournalRecord{
		Index:     m.RecordIndex,
		EventID:   m.EventID,
		EventType: entity.EventType(m.EventType),
		Payload:   m.Payload,
		PrevHash:  m.PrevHash,
		Hash:      m.Hash,
		CreatedAt: m.CreatedAt,
	}
}

func toLedgerRoot(root entity.JournalRoot) LedgerRoots {
	return LedgerRoots{
		FromIndex: root.FromIndex,
		ToIndex:   root.ToIndex,
		RootHash:  root.RootHash,
		CreatedAt: root.CreatedAt,
	}
}

func (m LedgerRoots) toEntity() entity.JournalRoot {
	return entity.JournalRoot{
		FromIndex: m.FromIndex,
		ToIndex:   m.ToIndex,
		RootHash:  m.RootHash,
		CreatedAt: m.CreatedAt,
	}
}
