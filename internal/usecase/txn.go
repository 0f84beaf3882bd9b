package usecase

import (
	"context"

	"github.com/google/uuid"

	"flightsurety-service/internal/domain/entity"
)

// stateApplier applies a single event to in-memory state and returns a
// function that reverts it.
type stateApplier interface {
	apply(ev entity.Event) (func(), error)
}

// txn is the scope of one ledger call. Every state change goes through
// record so that a failure anywhere in the call can be rolled back.
type txn struct {
	ctx       context.Context
	height    uint64
	timestamp uint64
	state     stateApplier
	undo      []func()
	events    []entity.Event
}

func newTxn(ctx context.Context, state stateApplier, height, timestamp uint64) *txn {
	return &txn{
		ctx:       ctx,
		height:    height,
		timestamp: timestamp,
		state:     state,
	}
}

// record applies an event and buffers it for the journal.
func (t *txn) record(typ entity.EventType, attrs map[string]string) error {
	ev := entity.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Height:     t.height,
		Timestamp:  t.timestamp,
		Attributes: attrs,
	}
	undo, err := t.state.apply(ev)
	if err != nil {
		return err
	}
	t.onRollback(undo)
	t.events = append(t.events, ev)
	return nil
}

// onRollback registers a compensation, run in reverse order on rollback.
func (t *txn) onRollback(f func()) {
	if f != nil {
		t.undo = append(t.undo, f)
	}
}

func (t *txn) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.events = nil
}
