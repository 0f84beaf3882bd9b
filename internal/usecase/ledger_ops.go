package usecase

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"flightsurety-service/internal/domain/entity"
)

// RegisterAirline registers an airline on behalf of a funded airline. While
// fewer than BypassThreshold airlines are approved the newcomer is approved
// in the same call; otherwise it stays pending until voted in.
func (l *Ledger) RegisterAirline(ctx context.Context, caller, airline entity.Account, name string) (entity.Airline, error) {
	var out entity.Airline
	err := l.exec(ctx, opRegisterAirline, caller, l.admitCaller, func(tx *txn) error {
		if !l.airlines.IsFunded(caller) {
			return entity.Errorf(entity.ErrUnauthorized, opRegisterAirline, "caller %s is not a funded airline", caller.Hex())
		}
		if err := l.airlines.register(tx, airline, name); err != nil {
			return err
		}
		if l.airlines.ApprovedCount() < BypassThreshold {
			if err := l.airlines.approveWithoutConsensus(tx, airline); err != nil {
				return err
			}
		}
		out, _ = l.airlines.Airline(airline)
		return nil
	})
	return out, err
}

// Vote casts the caller's ballot on a pending airline and evaluates consensus.
func (l *Ledger) Vote(ctx context.Context, caller, airline entity.Account, approve bool) (entity.Airline, error) {
	var out entity.Airline
	err := l.exec(ctx, opCastVote, caller, l.admitCaller, func(tx *txn) error {
		if err := l.airlines.castVote(tx, caller, airline, approve); err != nil {
			return err
		}
		if _, err := l.airlines.evaluateConsensus(tx, airline); err != nil {
			return err
		}
		out, _ = l.airlines.Airline(airline)
		return nil
	})
	return out, err
}

// FundAirline records the caller's contribution and moves it into escrow.
func (l *Ledger) FundAirline(ctx context.Context, caller entity.Account, amount entity.Money) (entity.Airline, error) {
	var out entity.Airline
	err := l.exec(ctx, opFundAirline, caller, l.admitCaller, func(tx *txn) error {
		if err := l.airlines.fund(tx, caller, amount); err != nil {
			return err
		}
		if err := l.collect(tx, opFundAirline, caller, amount); err != nil {
			return err
		}
		out, _ = l.airlines.Airline(caller)
		return nil
	})
	return out, err
}

// RegisterFlight issues a flight under the calling airline.
func (l *Ledger) RegisterFlight(ctx context.Context, caller entity.Account, designator string, scheduledTo uint64) (entity.Flight, error) {
	var out entity.Flight
	err := l.exec(ctx, opRegisterFlight, caller, l.admitCaller, func(tx *txn) error {
		key, err := l.flights.register(tx, caller, designator, scheduledTo)
		if err != nil {
			return err
		}
		out, _ = l.flights.Flight(key)
		return nil
	})
	return out, err
}

// BuyPolicy insures the caller on a flight and moves the premium into escrow.
func (l *Ledger) BuyPolicy(ctx context.Context, caller entity.Account, flight common.Hash, amount entity.Money) (entity.Insurance, error) {
	var out entity.Insurance
	err := l.exec(ctx, opBuyPolicy, caller, l.admitCaller, func(tx *txn) error {
		if err := l.insurance.buyPolicy(tx, caller, flight, amount); err != nil {
			return err
		}
		if err := l.collect(tx, opBuyPolicy, caller, amount); err != nil {
			return err
		}
		out, _ = l.insurance.Insurance(flight, caller)
		return nil
	})
	return out, err
}

// Withdraw pays the caller's whole credit out of escrow.
func (l *Ledger) Withdraw(ctx context.Context, caller entity.Account) (entity.Money, error) {
	var out entity.Money
	err := l.exec(ctx, opWithdraw, caller, l.admitCaller, func(tx *txn) error {
		amount, err := l.insurance.withdraw(tx, caller)
		if err != nil {
			return err
		}
		if err := l.transfer(tx, opWithdraw, l.cfg.Escrow, caller, amount); err != nil {
			return err
		}
		out = amount
		return nil
	})
	return out, err
}

// RegisterOracle assigns the caller three indices against a registration fee.
func (l *Ledger) RegisterOracle(ctx context.Context, caller entity.Account, fee entity.Money) (entity.Oracle, error) {
	var out entity.Oracle
	err := l.exec(ctx, opRegisterOracle, caller, l.admitCaller, func(tx *txn) error {
		if _, err := l.oracles.register(tx, caller, fee); err != nil {
			return err
		}
		if err := l.collect(tx, opRegisterOracle, caller, fee); err != nil {
			return err
		}
		out, _ = l.oracles.Oracle(caller)
		return nil
	})
	return out, err
}

// RequestFlightStatus asks oracles holding a random index to report on a flight.
func (l *Ledger) RequestFlightStatus(ctx context.Context, caller, airline entity.Account, designator string, scheduledTo uint64) (entity.StatusRequest, error) {
	var out entity.StatusRequest
	err := l.exec(ctx, opRequestStatus, caller, l.admitCaller, func(tx *txn) error {
		key, err := l.oracles.requestStatus(tx, caller, airline, designator, scheduledTo)
		if err != nil {
			return err
		}
		out, _ = l.oracles.Request(key, tx.height)
		return nil
	})
	return out, err
}

// SubmitOracleResponse records an oracle report and, on quorum, resolves the
// flight and credits insurees when the airline is at fault.
func (l *Ledger) SubmitOracleResponse(ctx context.Context, caller entity.Account, resp OracleResponse) (ResponseOutcome, error) {
	var out ResponseOutcome
	err := l.exec(ctx, opSubmitResponse, caller, l.admitCaller, func(tx *txn) error {
		res, err := l.oracles.submitResponse(tx, caller, resp)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

// SetOperational pauses or resumes the ledger. It is the only call an
// administrator can make while the ledger is paused.
func (l *Ledger) SetOperational(ctx context.Context, caller entity.Account, operational bool) error {
	return l.exec(ctx, opSetOperational, caller, l.admitAdmin(operational), func(tx *txn) error {
		if l.gate.IsPaused() != operational {
			return entity.Errorf(entity.ErrInvalidState, opSetOperational, "operational is already %t", operational)
		}
		return tx.record(entity.EventOperationalChanged, map[string]string{
			"operational": strconv.FormatBool(operational),
			"by":          caller.Hex(),
		})
	})
}

// AuthorizeCaller adds target to the caller allowlist.
func (l *Ledger) AuthorizeCaller(ctx context.Context, caller, target entity.Account) error {
	return l.exec(ctx, opAuthorizeCaller, caller, l.admitAdmin(false), func(tx *txn) error {
		if l.gate.Listed(target) {
			return entity.Errorf(entity.ErrAlreadyExists, opAuthorizeCaller, "caller %s", target.Hex())
		}
		return tx.record(entity.EventCallerAuthorized, map[string]string{
			"caller": target.Hex(),
			"by":     caller.Hex(),
		})
	})
}

// DeauthorizeCaller removes target from the caller allowlist.
func (l *Ledger) DeauthorizeCaller(ctx context.Context, caller, target entity.Account) error {
	return l.exec(ctx, opDeauthorizeCaller, caller, l.admitAdmin(false), func(tx *txn) error {
		if !l.gate.Listed(target) {
			return entity.Errorf(entity.ErrNotFound, opDeauthorizeCaller, "caller %s", target.Hex())
		}
		return tx.record(entity.EventCallerDeauthorized, map[string]string{
			"caller": target.Hex(),
			"by":     caller.Hex(),
		})
	})
}
