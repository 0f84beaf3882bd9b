package repository

import (
	"context"
	"sync"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/internal/domain/repository"
)

// MemoryJournalRepository keeps the journal in process memory
type MemoryJournalRepository struct {
	mu      sync.RWMutex
	records []entity.JournalRecord
	roots   []entity.JournalRoot
}

// NewMemoryJournalRepository creates an empty in-memory journal
func NewMemoryJournalRepository() repository.JournalRepository {
	return &MemoryJournalRepository{}
}

// Append stores records and roots together
func (r *MemoryJournalRepository) Append(_ context.Context, records []entity.JournalRecord, roots []entity.JournalRoot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	r.roots = append(r.roots, roots...)
	return nil
}

// Records returns all records in index order
func (r *MemoryJournalRepository) Records(_ context.Context) ([]entity.JournalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entity.JournalRecord(nil), r.records...), nil
}

// Roots returns all sealed roots in order
func (r *MemoryJournalRepository) Roots(_ context.Context) ([]entity.JournalRoot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entity.JournalRoot(nil), r.roots...), nil
}
