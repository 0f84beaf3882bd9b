package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"flightsurety-service/internal/domain/entity"
)

func (l *Ledger) Airline(id entity.Account) (entity.Airline, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.airlines.Airline(id)
	if !ok {
		return entity.Airline{}, entity.Errorf(entity.ErrNotFound, "getAirline", "airline %s", id.Hex())
	}
	return a, nil
}

func (l *Ledger) Airlines() []entity.Airline {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.airlines.Airlines()
}

// ApprovedCount is the consensus denominator.
func (l *Ledger) ApprovedCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.airlines.ApprovedCount()
}

func (l *Ledger) Flight(key common.Hash) (entity.Flight, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, ok := l.flights.Flight(key)
	if !ok {
		return entity.Flight{}, entity.Errorf(entity.ErrNotFound, "getFlight", "flight %s", key.Hex())
	}
	return f, nil
}

func (l *Ledger) Flights() []entity.Flight {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.flights.Flights()
}

func (l *Ledger) Insurance(flight common.Hash, passenger entity.Account) (entity.Insurance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ins, ok := l.insurance.Insurance(flight, passenger)
	if !ok {
		return entity.Insurance{}, entity.Errorf(entity.ErrNotFound, "getInsurance", "no insurance for %s on %s", passenger.Hex(), flight.Hex())
	}
	return ins, nil
}

// Credit is the amount the passenger can withdraw.
func (l *Ledger) Credit(passenger entity.Account) entity.Money {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.insurance.Credit(passenger)
}

// MyIndexes returns the indices assigned to a registered oracle.
func (l *Ledger) MyIndexes(caller entity.Account) ([entity.OracleIndexCount]uint8, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.oracles.myIndexes(caller)
}

func (l *Ledger) StatusRequest(key common.Hash) (entity.StatusRequest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	req, ok := l.oracles.Request(key, l.blocks.Height())
	if !ok {
		return entity.StatusRequest{}, entity.Errorf(entity.ErrNotFound, "getStatusRequest", "request %s", key.Hex())
	}
	return req, nil
}

func (l *Ledger) IsOperational() bool {
	return !l.gate.IsPaused()
}

// VerifyJournal recomputes the journal hash chain and Merkle roots.
func (l *Ledger) VerifyJournal(ctx context.Context) (entity.VerifyReport, error) {
	ctx, span := tracer.Start(ctx, "Ledger.VerifyJournal")
	defer span.End()

	l.mu.RLock()
	defer l.mu.RUnlock()
	report, err := l.journal.Verify(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return report, err
}
