package repository

import (
	"context"

	"flightsurety-service/internal/domain/entity"
)

// JournalRepository stores the hash-chained ledger journal. Append must store
// all records and roots or none of them.
type JournalRepository interface {
	Append(ctx context.Context, records []entity.JournalRecord, roots []entity.JournalRoot) error
	Records(ctx context.Context) ([]entity.JournalRecord, error)
	Roots(ctx context.Context) ([]entity.JournalRoot, error)
}
