package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/internal/domain/repository"
	"flightsurety-service/pkg/logger"
	"flightsurety-service/pkg/metrics"
)

var tracer = otel.Tracer("ledger")

// LedgerConfig holds the deployment parameters of a ledger.
type LedgerConfig struct {
	// Escrow holds airline funds, premiums and oracle fees until payout.
	Escrow         entity.Account
	GenesisAirline entity.Account
	GenesisName    string
	Rule           entity.ConsensusRule
	// RequestTTL closes status requests after this many blocks; zero never closes them.
	RequestTTL uint64
}

// Ledger is the single entry point of the insurance ledger. Mutating calls
// are serialized and either commit entirely, journal included, or leave no
// trace. Queries run concurrently under a read lock.
type Ledger struct {
	mu sync.RWMutex

	cfg       LedgerConfig
	gate      repository.Gate
	bank      repository.TransferPrimitive
	blocks    repository.BlockSource
	journal   *Journal
	publisher repository.EventPublisher
	metrics   *metrics.Metrics
	logger    logger.Logger

	airlines  *AirlineRegistry
	flights   *FlightRegistry
	insurance *InsuranceLedger
	oracles   *OracleCoordinator
}

// NewLedger builds a ledger and restores its state from the journal. An empty
// journal is seeded with the genesis airline; a journal that fails
// verification is refused.
func NewLedger(
	ctx context.Context,
	cfg LedgerConfig,
	gate repository.Gate,
	bank repository.TransferPrimitive,
	blocks repository.BlockSource,
	journal *Journal,
	publisher repository.EventPublisher,
	metrics *metrics.Metrics,
	logger logger.Logger,
) (*Ledger, error) {
	if cfg.Escrow == entity.ZeroAccount {
		return nil, entity.Errorf(entity.ErrInvalidArgument, "newLedger", "escrow account is required")
	}
	if cfg.GenesisAirline == entity.ZeroAccount {
		return nil, entity.Errorf(entity.ErrInvalidArgument, "newLedger", "genesis airline is required")
	}

	airlines := NewAirlineRegistry(cfg.Rule)
	flights := NewFlightRegistry(airlines)
	insurance := NewInsuranceLedger(flights, airlines)
	l := &Ledger{
		cfg:       cfg,
		gate:      gate,
		bank:      bank,
		blocks:    blocks,
		journal:   journal,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		airlines:  airlines,
		flights:   flights,
		insurance: insurance,
		oracles:   NewOracleCoordinator(blocks, flights, insurance, cfg.RequestTTL),
	}

	events, report, err := journal.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !report.OK {
		return nil, fmt.Errorf("journal failed verification: %s", strings.Join(report.Errors, "; "))
	}

	if len(events) == 0 {
		if err := l.genesis(ctx); err != nil {
			return nil, err
		}
	} else {
		var inflow, outflow entity.Money
		for i, ev := range events {
			if _, err := l.apply(ev); err != nil {
				return nil, fmt.Errorf("replay journal record %d: %w", i+1, err)
			}
			in, out, err := escrowFlow(ev)
			if err != nil {
				return nil, fmt.Errorf("replay journal record %d: %w", i+1, err)
			}
			inflow, outflow = inflow.Add(in), outflow.Add(out)
		}
		if restorer, ok := bank.(repository.BalanceRestorer); ok {
			escrow := inflow.Sub(outflow)
			restorer.Restore(cfg.Escrow, escrow)
			logger.Info("Escrow balance rebuilt from journal", "escrow", cfg.Escrow.Hex(), "balance", escrow.String())
		}
		logger.Info("Ledger state restored from journal", "events", len(events), "airlines", len(l.airlines.Airlines()))
	}
	l.refreshGauges()
	return l, nil
}

func (l *Ledger) genesis(ctx context.Context) error {
	events, err := l.run(ctx, opGenesis, func(tx *txn) error {
		if err := l.airlines.register(tx, l.cfg.GenesisAirline, l.cfg.GenesisName); err != nil {
			return err
		}
		return l.airlines.approveWithoutConsensus(tx, l.cfg.GenesisAirline)
	})
	if err != nil {
		return err
	}
	l.afterCommit(ctx, events)
	return nil
}

// admission decides whether caller may enter a call.
type admission func(op string, caller entity.Account) error

func (l *Ledger) admitCaller(op string, caller entity.Account) error {
	if l.gate.IsPaused() {
		return entity.Errorf(entity.ErrPaused, op, "ledger is not operational")
	}
	if !l.gate.IsAuthorized(caller) {
		return entity.Errorf(entity.ErrUnauthorized, op, "caller %s is not authorized", caller.Hex())
	}
	return nil
}

func (l *Ledger) admitAdmin(allowWhilePaused bool) admission {
	return func(op string, caller entity.Account) error {
		if !l.gate.IsAdmin(caller) {
			return entity.Errorf(entity.ErrUnauthorized, op, "caller %s is not an administrator", caller.Hex())
		}
		if !allowWhilePaused && l.gate.IsPaused() {
			return entity.Errorf(entity.ErrPaused, op, "ledger is not operational")
		}
		return nil
	}
}

// exec runs fn as one atomic ledger call on behalf of caller.
func (l *Ledger) exec(ctx context.Context, op string, caller entity.Account, admit admission, fn func(tx *txn) error) error {
	ctx, span := tracer.Start(ctx, "Ledger."+op)
	defer span.End()
	span.SetAttributes(attribute.String("caller", caller.Hex()))
	start := time.Now()

	var committed []entity.Event
	l.mu.Lock()
	err := admit(op, caller)
	if err == nil {
		committed, err = l.run(ctx, op, fn)
	}
	l.refreshGauges()
	l.mu.Unlock()

	// Publishing may block on the network and runs outside the lock.
	l.afterCommit(ctx, committed)

	outcome := "ok"
	if err != nil {
		outcome = outcomeLabel(err)
		span.RecordError(err)
		l.logger.Debug("Ledger call rejected", "operation", op, "caller", caller.Hex(), "error", err)
	}
	l.metrics.Calls.WithLabelValues(op, outcome).Inc()
	l.metrics.CallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}

// run executes fn and journals its events, returning them once committed.
// Any failure before the journal accepts the events reverts every effect of
// fn. Callers hold the write lock.
func (l *Ledger) run(ctx context.Context, op string, fn func(tx *txn) error) ([]entity.Event, error) {
	tx := newTxn(ctx, l, l.blocks.Height(), l.blocks.Timestamp())
	if err := fn(tx); err != nil {
		tx.rollback()
		return nil, err
	}
	if err := l.journal.Append(ctx, tx.events); err != nil {
		tx.rollback()
		l.logger.Error("Failed to journal ledger call", "operation", op, "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tx.events, nil
}

func (l *Ledger) afterCommit(ctx context.Context, events []entity.Event) {
	for _, ev := range events {
		switch ev.Type {
		case entity.EventFlightStatusInfo:
			l.metrics.QuorumReached.WithLabelValues(statusLabel(ev.Attributes["status"])).Inc()
		case entity.EventInsureesCredited:
			l.metrics.PassengersPaid.Inc()
			if amount, err := entity.ParseMoney(ev.Attributes["amount"]); err == nil {
				l.metrics.PayoutVolume.Add(amount.Float64())
			}
		case entity.EventCreditWithdrawn:
			l.metrics.Withdrawals.Inc()
		}

		if l.publisher == nil {
			continue
		}
		if err := l.publisher.Publish(ctx, ev); err != nil {
			l.metrics.PublishFailures.Inc()
			l.logger.Warn("Failed to publish notification", "event", ev.Type, "id", ev.ID, "error", err)
		}
	}
}

func (l *Ledger) refreshGauges() {
	l.metrics.OpenRequests.Set(float64(l.oracles.OpenRequests(l.blocks.Height())))
	l.metrics.AdmittedAirlines.Set(float64(l.airlines.ApprovedCount()))
}

// apply routes an event to the component that owns the state it changes.
func (l *Ledger) apply(ev entity.Event) (func(), error) {
	switch ev.Type {
	case entity.EventAirlineCreated, entity.EventAirlineApproved, entity.EventAirlineVoted,
		entity.EventAirlineRejected, entity.EventAirlineFunded:
		return l.airlines.apply(ev)
	case entity.EventFlightRegistered, entity.EventFlightUpdated:
		return l.flights.apply(ev)
	case entity.EventInsurancePurchased, entity.EventInsureesCredited, entity.EventCreditWithdrawn:
		return l.insurance.apply(ev)
	case entity.EventOracleRegistered, entity.EventOracleRequest, entity.EventOracleReport,
		entity.EventFlightStatusInfo:
		return l.oracles.apply(ev)
	case entity.EventOperationalChanged, entity.EventCallerAuthorized, entity.EventCallerDeauthorized:
		return l.applyGate(ev)
	}
	return nil, fmt.Errorf("unknown event type %q", ev.Type)
}

func (l *Ledger) applyGate(ev entity.Event) (func(), error) {
	attrs := readAttrs(ev)
	switch ev.Type {
	case entity.EventOperationalChanged:
		operational := attrs.boolean("operational")
		if attrs.err != nil {
			return nil, attrs.err
		}
		prev := l.gate.IsPaused()
		l.gate.SetPaused(!operational)
		return func() { l.gate.SetPaused(prev) }, nil

	case entity.EventCallerAuthorized, entity.EventCallerDeauthorized:
		caller := attrs.account("caller")
		if attrs.err != nil {
			return nil, attrs.err
		}
		listed := l.gate.Listed(caller)
		if ev.Type == entity.EventCallerAuthorized {
			l.gate.Authorize(caller)
		} else {
			l.gate.Deauthorize(caller)
		}
		return func() {
			if listed {
				l.gate.Authorize(caller)
			} else {
				l.gate.Deauthorize(caller)
			}
		}, nil
	}
	return nil, fmt.Errorf("gate cannot apply %s", ev.Type)
}

// collect moves amount from payer into escrow, undone if the call fails later.
func (l *Ledger) collect(tx *txn, op string, payer entity.Account, amount entity.Money) error {
	return l.transfer(tx, op, payer, l.cfg.Escrow, amount)
}

func (l *Ledger) transfer(tx *txn, op string, from, to entity.Account, amount entity.Money) error {
	if err := l.bank.Transfer(tx.ctx, from, to, amount); err != nil {
		if entity.KindOf(err) != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: transfer %s from %s: %w", op, amount, from.Hex(), err)
	}
	tx.onRollback(func() {
		if err := l.bank.Transfer(context.Background(), to, from, amount); err != nil {
			l.logger.Error("Failed to reverse transfer", "operation", op, "from", to.Hex(), "to", from.Hex(), "amount", amount.String(), "error", err)
		}
	})
	return nil
}

// escrowFlow returns the amounts a journaled event moved into and out of escrow.
func escrowFlow(ev entity.Event) (in, out entity.Money, err error) {
	attrs := readAttrs(ev)
	switch ev.Type {
	case entity.EventAirlineFunded, entity.EventInsurancePurchased:
		in = attrs.money("amount")
	case entity.EventOracleRegistered:
		in = attrs.money("fee")
	case entity.EventCreditWithdrawn:
		out = attrs.money("amount")
	}
	return in, out, attrs.err
}

func outcomeLabel(err error) string {
	kind := entity.KindOf(err)
	if kind == nil {
		return "error"
	}
	return strings.ReplaceAll(kind.Error(), " ", "_")
}

func statusLabel(raw string) string {
	v, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		return "invalid"
	}
	return entity.StatusCode(v).String()
}
