package usecase

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"flightsurety-service/internal/domain/entity"
)

type fundedChecker interface {
	IsFunded(id entity.Account) bool
}

// FlightRegistry holds the flights issued by funded airlines
type FlightRegistry struct {
	flights  map[common.Hash]*entity.Flight
	order    []common.Hash
	airlines fundedChecker
}

func NewFlightRegistry(airlines fundedChecker) *FlightRegistry {
	return &FlightRegistry{
		flights:  make(map[common.Hash]*entity.Flight),
		airlines: airlines,
	}
}

func (r *FlightRegistry) register(tx *txn, airline entity.Account, designator string, scheduledTo uint64) (common.Hash, error) {
	designator = strings.TrimSpace(designator)
	if designator == "" {
		return common.Hash{}, entity.Errorf(entity.ErrInvalidArgument, opRegisterFlight, "designator is required")
	}
	if scheduledTo == 0 {
		return common.Hash{}, entity.Errorf(entity.ErrInvalidArgument, opRegisterFlight, "scheduled time is required")
	}
	if !r.airlines.IsFunded(airline) {
		return common.Hash{}, entity.Errorf(entity.ErrUnauthorized, opRegisterFlight, "airline %s is not funded", airline.Hex())
	}

	key := entity.FlightKey(airline, designator, scheduledTo)
	if _, ok := r.flights[key]; ok {
		return common.Hash{}, entity.Errorf(entity.ErrAlreadyExists, opRegisterFlight, "flight %s", key.Hex())
	}
	err := tx.record(entity.EventFlightRegistered, map[string]string{
		"flight":      key.Hex(),
		"airline":     airline.Hex(),
		"designator":  designator,
		"scheduledTo": formatUint(scheduledTo),
	})
	return key, err
}

// updateStatus overwrites the status of a flight. Callers decide whether an
// update is warranted.
func (r *FlightRegistry) updateStatus(tx *txn, key common.Hash, code entity.StatusCode) error {
	if _, ok := r.flights[key]; !ok {
		return entity.Errorf(entity.ErrNotFound, opUpdateFlightStatus, "flight %s", key.Hex())
	}
	if !code.Valid() {
		return entity.Errorf(entity.ErrInvalidArgument, opUpdateFlightStatus, "status %d", uint8(code))
	}
	return tx.record(entity.EventFlightUpdated, map[string]string{
		"flight": key.Hex(),
		"status": formatUint(uint64(code)),
	})
}

// Flight returns a copy of the flight stored at key.
func (r *FlightRegistry) Flight(key common.Hash) (entity.Flight, bool) {
	f, ok := r.flights[key]
	if !ok {
		return entity.Flight{}, false
	}
	return *f, true
}

// Flights lists flights in registration order.
func (r *FlightRegistry) Flights() []entity.Flight {
	out := make([]entity.Flight, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.flights[key])
	}
	return out
}

func (r *FlightRegistry) apply(ev entity.Event) (func(), error) {
	attrs := readAttrs(ev)
	key := attrs.hash("flight")

	switch ev.Type {
	case entity.EventFlightRegistered:
		airline := attrs.account("airline")
		designator := attrs.str("designator")
		scheduledTo := attrs.uint("scheduledTo")
		if attrs.err != nil {
			return nil, attrs.err
		}
		if derived := entity.FlightKey(airline, designator, scheduledTo); derived != key {
			return nil, fmt.Errorf("flight key %s does not match its fields (%s)", key.Hex(), derived.Hex())
		}
		if _, ok := r.flights[key]; ok {
			return nil, fmt.Errorf("flight %s registered twice", key.Hex())
		}
		r.flights[key] = &entity.Flight{
			Key:         key,
			Airline:     airline,
			Designator:  designator,
			CreatedAt:   ev.Timestamp,
			ScheduledTo: scheduledTo,
			Status:      entity.StatusUnknown,
		}
		r.order = append(r.order, key)
		return func() {
			delete(r.flights, key)
			r.order = r.order[:len(r.order)-1]
		}, nil

	case entity.EventFlightUpdated:
		code := attrs.status("status")
		if attrs.err != nil {
			return nil, attrs.err
		}
		f, ok := r.flights[key]
		if !ok {
			return nil, fmt.Errorf("flight %s is not registered", key.Hex())
		}
		prev := f.Status
		f.Status = code
		return func() { f.Status = prev }, nil
	}
	return nil, fmt.Errorf("flight registry cannot apply %s", ev.Type)
}
