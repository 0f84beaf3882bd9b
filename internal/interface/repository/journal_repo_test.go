package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flightsurety-service/internal/domain/entity"
)

func TestMemoryJournalRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJournalRepository()

	records := []entity.JournalRecord{{Index: 1, Hash: "a"}, {Index: 2, PrevHash: "a", Hash: "b"}}
	roots := []entity.JournalRoot{{FromIndex: 1, ToIndex: 2, RootHash: "r"}}
	require.NoError(t, repo.Append(ctx, records, roots))

	got, err := repo.Records(ctx)
	require.NoError(t, err)
	require.Equal(t, records, got)

	// returned slices are copies
	got[0].Hash = "tampered"
	again, err := repo.Records(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", again[0].Hash)

	gotRoots, err := repo.Roots(ctx)
	require.NoError(t, err)
	require.Equal(t, roots, gotRoots)
}

func TestGormModelsRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := entity.JournalRecord{
		Index:     7,
		EventID:   "id-7",
		EventType: entity.EventFlightRegistered,
		Payload:   `{"id":"id-7"}`,
		PrevHash:  "p",
		Hash:      "h",
		CreatedAt: now,
	}
	require.Equal(t, rec, toLedgerEvent(rec).toEntity())

	root := entity.JournalRoot{FromIndex: 1, ToIndex: 7, RootHash: "r", CreatedAt: now}
	require.Equal(t, root, toLedgerRoot(root).toEntity())

	require.Equal(t, "ledger_events", LedgerEvents{}.TableName())
	require.Equal(t, "ledger_roots", LedgerRoots{}.TableName())
}
