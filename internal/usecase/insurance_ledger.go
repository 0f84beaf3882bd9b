package usecase

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"flightsurety-service/internal/domain/entity"
)

type flightLookup interface {
	Flight(key common.Hash) (entity.Flight, bool)
}

type insuranceKey struct {
	flight    common.Hash
	passenger entity.Account
}

// InsuranceLedger records policies per flight and passenger credits.
// Passengers per flight are kept in first-purchase order.
type InsuranceLedger struct {
	insurances map[insuranceKey]*entity.Insurance
	passengers map[common.Hash][]entity.Account
	credits    map[entity.Account]entity.Money
	flights    flightLookup
	airlines   fundedChecker
}

func NewInsuranceLedger(flights flightLookup, airlines fundedChecker) *InsuranceLedger {
	return &InsuranceLedger{
		insurances: make(map[insuranceKey]*entity.Insurance),
		passengers: make(map[common.Hash][]entity.Account),
		credits:    make(map[entity.Account]entity.Money),
		flights:    flights,
		airlines:   airlines,
	}
}

func (l *InsuranceLedger) buyPolicy(tx *txn, passenger entity.Account, key common.Hash, amount entity.Money) error {
	if amount.IsZero() {
		return entity.Errorf(entity.ErrInvalidArgument, opBuyPolicy, "amount must be positive")
	}
	flight, ok := l.flights.Flight(key)
	if !ok {
		return entity.Errorf(entity.ErrNotFound, opBuyPolicy, "flight %s", key.Hex())
	}
	if !l.airlines.IsFunded(flight.Airline) {
		return entity.Errorf(entity.ErrInvalidState, opBuyPolicy, "airline %s is not funded", flight.Airline.Hex())
	}
	if flight.Resolved() {
		return entity.Errorf(entity.ErrInvalidState, opBuyPolicy, "flight %s already resolved as %s", key.Hex(), flight.Status)
	}
	if amount.Cmp(PolicyCap) > 0 {
		return entity.Errorf(entity.ErrLimitExceeded, opBuyPolicy, "amount %s above cap %s", amount, PolicyCap)
	}
	return tx.record(entity.EventInsurancePurchased, map[string]string{
		"flight":    key.Hex(),
		"passenger": passenger.Hex(),
		"amount":    amount.String(),
	})
}

// creditDelayPayout credits every insured passenger of a flight with 3/2 of
// their aggregate premium. It returns how many passengers were credited and
// the total credited.
func (l *InsuranceLedger) creditDelayPayout(tx *txn, key common.Hash) (int, entity.Money, error) {
	var total entity.Money
	passengers := append([]entity.Account(nil), l.passengers[key]...)
	for _, p := range passengers {
		ins := l.insurances[insuranceKey{flight: key, passenger: p}]
		amount := ins.Total.MulDiv(PayoutNumerator, PayoutDenominator)
		if amount.IsZero() {
			continue
		}
		err := tx.record(entity.EventInsureesCredited, map[string]string{
			"flight":    key.Hex(),
			"passenger": p.Hex(),
			"amount":    amount.String(),
		})
		if err != nil {
			return 0, entity.Money{}, fmt.Errorf("%s: %w", opCreditPayout, err)
		}
		total = total.Add(amount)
	}
	return len(passengers), total, nil
}

// withdraw zeroes the passenger's credit and returns the amount to pay out.
func (l *InsuranceLedger) withdraw(tx *txn, passenger entity.Account) (entity.Money, error) {
	credit := l.credits[passenger]
	if credit.IsZero() {
		return entity.Money{}, entity.Errorf(entity.ErrInvalidState, opWithdraw, "no credit for %s", passenger.Hex())
	}
	err := tx.record(entity.EventCreditWithdrawn, map[string]string{
		"passenger": passenger.Hex(),
		"amount":    credit.String(),
	})
	if err != nil {
		return entity.Money{}, err
	}
	return credit, nil
}

// Insurance returns a copy of the passenger's insurance on a flight.
func (l *InsuranceLedger) Insurance(key common.Hash, passenger entity.Account) (entity.Insurance, bool) {
	ins, ok := l.insurances[insuranceKey{flight: key, passenger: passenger}]
	if !ok {
		return entity.Insurance{}, false
	}
	out := *ins
	out.Policies = append([]entity.Policy(nil), ins.Policies...)
	return out, true
}

// Passengers lists insured passengers of a flight in first-purchase order.
func (l *InsuranceLedger) Passengers(key common.Hash) []entity.Account {
	return append([]entity.Account(nil), l.passengers[key]...)
}

// Credit is the withdrawable balance of a passenger.
func (l *InsuranceLedger) Credit(passenger entity.Account) entity.Money {
	return l.credits[passenger]
}

func (l *InsuranceLedger) apply(ev entity.Event) (func(), error) {
	attrs := readAttrs(ev)
	passenger := attrs.account("passenger")
	amount := attrs.money("amount")

	switch ev.Type {
	case entity.EventInsurancePurchased:
		key := attrs.hash("flight")
		if attrs.err != nil {
			return nil, attrs.err
		}
		ik := insuranceKey{flight: key, passenger: passenger}
		ins, existed := l.insurances[ik]
		if !existed {
			ins = &entity.Insurance{Flight: key, Passenger: passenger}
			l.insurances[ik] = ins
			l.passengers[key] = append(l.passengers[key], passenger)
		}
		prevTotal := ins.Total
		ins.Policies = append(ins.Policies, entity.Policy{Amount: amount})
		ins.Total = ins.Total.Add(amount)
		return func() {
			if !existed {
				delete(l.insurances, ik)
				list := l.passengers[key]
				if len(list) == 1 {
					delete(l.passengers, key)
				} else {
					l.passengers[key] = list[:len(list)-1]
				}
				return
			}
			ins.Policies = ins.Policies[:len(ins.Policies)-1]
			ins.Total = prevTotal
		}, nil

	case entity.EventInsureesCredited:
		if attrs.err != nil {
			return nil, attrs.err
		}
		prev, had := l.credits[passenger]
		l.credits[passenger] = prev.Add(amount)
		return func() { l.restoreCredit(passenger, prev, had) }, nil

	case entity.EventCreditWithdrawn:
		if attrs.err != nil {
			return nil, attrs.err
		}
		prev, had := l.credits[passenger]
		if prev.Cmp(amount) != 0 {
			return nil, fmt.Errorf("withdrawal of %s does not match credit %s of %s", amount, prev, passenger.Hex())
		}
		delete(l.credits, passenger)
		return func() { l.restoreCredit(passenger, prev, had) }, nil
	}
	return nil, fmt.Errorf("insurance ledger cannot apply %s", ev.Type)
}

func (l *InsuranceLedger) restoreCredit(passenger entity.Account, prev entity.Money, had bool) {
	if had {
		l.credits[passenger] = prev
		return
	}
	delete(l.credits, passenger)
}
