package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/internal/domain/repository"
	"flightsurety-service/pkg/hashchain"
)

const defaultJournalBatchSize = 100

// Journal chains committed events by hash and seals every batchSize records
// under a Merkle root. It is not safe for concurrent use; the Ledger
// serializes access.
type Journal struct {
	repo        repository.JournalRepository
	batchSize   int
	lastIndex   int64
	lastHash    string
	batchHashes []string
	batchStart  int64
	now         func() time.Time
}

// NewJournal wraps a journal repository.
func NewJournal(repo repository.JournalRepository, batchSize int) *Journal {
	if batchSize <= 0 {
		batchSize = defaultJournalBatchSize
	}
	return &Journal{
		repo:      repo,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Load verifies the stored journal, positions the head after its last record
// and returns the decoded events in order.
func (j *Journal) Load(ctx context.Context) ([]entity.Event, entity.VerifyReport, error) {
	records, roots, err := j.read(ctx)
	if err != nil {
		return nil, entity.VerifyReport{}, err
	}
	report := verifyChain(records, roots, j.batchSize)
	if !report.OK {
		return nil, report, nil
	}

	var sealed int64
	if len(roots) > 0 {
		sealed = roots[len(roots)-1].ToIndex
	}
	j.lastIndex, j.lastHash = 0, ""
	j.batchHashes, j.batchStart = nil, 0

	events := make([]entity.Event, 0, len(records))
	for _, rec := range records {
		var ev entity.Event
		if err := json.Unmarshal([]byte(rec.Payload), &ev); err != nil {
			return nil, report, fmt.Errorf("decode journal record %d: %w", rec.Index, err)
		}
		events = append(events, ev)

		j.lastIndex, j.lastHash = rec.Index, rec.Hash
		if rec.Index > sealed {
			if j.batchStart == 0 {
				j.batchStart = rec.Index
			}
			j.batchHashes = append(j.batchHashes, rec.Hash)
		}
	}
	return events, report, nil
}

// Append chains events onto the head and stores them together with any
// roots they complete. The head only moves if the repository accepted them.
func (j *Journal) Append(ctx context.Context, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	var (
		records    = make([]entity.JournalRecord, 0, len(events))
		roots      []entity.JournalRoot
		lastIndex  = j.lastIndex
		lastHash   = j.lastHash
		batch      = append([]string(nil), j.batchHashes...)
		batchStart = j.batchStart
		now        = j.now()
	)
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", ev.ID, err)
		}
		index := lastIndex + 1
		rec := entity.JournalRecord{
			Index:     index,
			EventID:   ev.ID,
			EventType: ev.Type,
			Payload:   string(payload),
			PrevHash:  lastHash,
			Hash:      hashchain.Link(lastHash, index, payload),
			CreatedAt: now,
		}
		records = append(records, rec)
		lastIndex, lastHash = rec.Index, rec.Hash

		if len(batch) == 0 {
			batchStart = rec.Index
		}
		batch = append(batch, rec.Hash)
		if len(batch) >= j.batchSize {
			roots = append(roots, entity.JournalRoot{
				FromIndex: batchStart,
				ToIndex:   rec.Index,
				RootHash:  hashchain.MerkleRoot(batch),
				CreatedAt: now,
			})
			batch, batchStart = nil, 0
		}
	}

	if err := j.repo.Append(ctx, records, roots); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	j.lastIndex, j.lastHash = lastIndex, lastHash
	j.batchHashes, j.batchStart = batch, batchStart
	return nil
}

// Verify recomputes the whole chain and every sealed root.
func (j *Journal) Verify(ctx context.Context) (entity.VerifyReport, error) {
	records, roots, err := j.read(ctx)
	if err != nil {
		return entity.VerifyReport{}, err
	}
	return verifyChain(records, roots, j.batchSize), nil
}

// Head is the index and hash of the last committed record.
func (j *Journal) Head() (int64, string) {
	return j.lastIndex, j.lastHash
}

func (j *Journal) read(ctx context.Context) ([]entity.JournalRecord, []entity.JournalRoot, error) {
	records, err := j.repo.Records(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read journal records: %w", err)
	}
	roots, err := j.repo.Roots(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read journal roots: %w", err)
	}
	return records, roots, nil
}

func verifyChain(records []entity.JournalRecord, roots []entity.JournalRoot, batchSize int) entity.VerifyReport {
	report := entity.VerifyReport{OK: true, Errors: []string{}}
	failf := func(format string, args ...interface{}) {
		report.OK = false
		report.Errors = append(report.Errors, fmt.Sprintf(format, args...))
	}

	var (
		expectedPrev  string
		expectedIndex int64
		rootIndex     int
		batch         []string
	)
	for _, rec := range records {
		expectedIndex++
		if rec.Index != expectedIndex {
			failf("index mismatch at %d", rec.Index)
		}
		if rec.PrevHash != expectedPrev {
			failf("prev_hash mismatch at %d", rec.Index)
		}
		if hashchain.Link(rec.PrevHash, rec.Index, []byte(rec.Payload)) != rec.Hash {
			failf("hash mismatch at %d", rec.Index)
		}
		expectedPrev = rec.Hash
		report.Total++
		report.LastIndex = rec.Index
		report.LastHash = rec.Hash

		batch = append(batch, rec.Hash)
		if batchSize > 0 && len(batch) == batchSize {
			if rootIndex >= len(roots) {
				failf("missing root for batch ending %d", rec.Index)
				batch = nil
				continue
			}
			root := roots[rootIndex]
			if root.ToIndex != rec.Index || root.RootHash != hashchain.MerkleRoot(batch) {
				failf("root mismatch for batch ending %d", rec.Index)
			}
			report.RootsChecked++
			rootIndex++
			batch = nil
		}
	}
	if rootIndex < len(roots) {
		failf("%d roots without records", len(roots)-rootIndex)
	}
	return report
}
