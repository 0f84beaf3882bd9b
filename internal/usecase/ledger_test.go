package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/pkg/logger"
	"flightsurety-service/pkg/metrics"
)

var (
	admin   = acct(0x01)
	escrow  = acct(0x02)
	genesis = acct(0x10)
)

const (
	designator  = "ND1309"
	scheduledTo = uint64(1_800_000_000)
)

type testEnv struct {
	ledger  *Ledger
	gate    *fakeGate
	bank    *fakeBank
	blocks  *fakeBlocks
	repo    *fakeJournalRepo
	pub     *fakePublisher
	metrics *metrics.Metrics
	cfg     LedgerConfig
}

func newTestEnv(t *testing.T, mutate ...func(*LedgerConfig)) *testEnv {
	t.Helper()
	cfg := LedgerConfig{
		Escrow:         escrow,
		GenesisAirline: genesis,
		GenesisName:    "Genesis Air",
		Rule:           entity.ConsensusApprovals,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	env := &testEnv{
		gate:   newFakeGate(admin),
		bank:   newFakeBank(),
		blocks: &fakeBlocks{height: 1000},
		repo:   &fakeJournalRepo{},
		pub:    &fakePublisher{},
		cfg:    cfg,
	}
	env.open(t)
	return env
}

func (e *testEnv) open(t *testing.T) {
	t.Helper()
	e.metrics = metrics.NewMetrics("test", prometheus.NewRegistry())
	l, err := NewLedger(context.Background(), e.cfg, e.gate, e.bank, e.blocks, NewJournal(e.repo, 4), e.pub, e.metrics, logger.NewNopLogger())
	require.NoError(t, err)
	e.ledger = l
}

func (e *testEnv) fund(t *testing.T, airline entity.Account) {
	t.Helper()
	e.bank.credit(airline, MinAirlineFunding)
	got, err := e.ledger.FundAirline(context.Background(), airline, MinAirlineFunding)
	require.NoError(t, err)
	require.Equal(t, entity.AirlineFunded, got.State)
}

// fourFundedAirlines funds the genesis airline and admits three more through
// the bypass, leaving four funded airlines.
func (e *testEnv) fourFundedAirlines(t *testing.T) []entity.Account {
	t.Helper()
	ctx := context.Background()
	e.fund(t, genesis)
	out := []entity.Account{genesis}
	for i := byte(0x11); i <= 0x13; i++ {
		a := acct(i)
		got, err := e.ledger.RegisterAirline(ctx, genesis, a, fmt.Sprintf("Airline %d", i))
		require.NoError(t, err)
		require.Equal(t, entity.AirlineApproved, got.State)
		e.fund(t, a)
		out = append(out, a)
	}
	require.EqualValues(t, 4, e.ledger.ApprovedCount())
	return out
}

func (e *testEnv) registerOracles(t *testing.T, n int) []entity.Account {
	t.Helper()
	out := make([]entity.Account, 0, n)
	for i := 0; i < n; i++ {
		o := common.BytesToAddress([]byte{0xBB, byte(i)})
		e.bank.credit(o, OracleRegistrationFee)
		_, err := e.ledger.RegisterOracle(context.Background(), o, OracleRegistrationFee)
		require.NoError(t, err)
		out = append(out, o)
	}
	return out
}

func (e *testEnv) holders(t *testing.T, oracles []entity.Account, index uint8) []entity.Account {
	t.Helper()
	var out []entity.Account
	for _, o := range oracles {
		idx, err := e.ledger.MyIndexes(o)
		require.NoError(t, err)
		for _, i := range idx {
			if i == index {
				out = append(out, o)
			}
		}
	}
	return out
}

// insuredFlight registers a flight, insures passenger for half a unit and
// opens a status request with 60 registered oracles.
func (e *testEnv) insuredFlight(t *testing.T, passenger entity.Account) (entity.Flight, entity.StatusRequest, []entity.Account) {
	t.Helper()
	ctx := context.Background()
	e.fourFundedAirlines(t)

	flight, err := e.ledger.RegisterFlight(ctx, genesis, designator, scheduledTo)
	require.NoError(t, err)

	e.bank.credit(passenger, entity.Units(1))
	_, err = e.ledger.BuyPolicy(ctx, passenger, flight.Key, entity.Units(1).MulDiv(1, 2))
	require.NoError(t, err)

	oracles := e.registerOracles(t, 60)
	req, err := e.ledger.RequestFlightStatus(ctx, passenger, genesis, designator, scheduledTo)
	require.NoError(t, err)
	holders := e.holders(t, oracles, req.Index)
	require.GreaterOrEqual(t, len(holders), Quorum+1)
	return flight, req, holders
}

func lateAirline(index uint8) OracleResponse {
	return OracleResponse{
		Index:       index,
		Airline:     genesis,
		Designator:  designator,
		ScheduledTo: scheduledTo,
		Status:      entity.StatusLateAirline,
	}
}

func TestGenesisAirlineStartsApproved(t *testing.T) {
	env := newTestEnv(t)

	a, err := env.ledger.Airline(genesis)
	require.NoError(t, err)
	require.Equal(t, entity.AirlineApproved, a.State)
	require.Equal(t, "Genesis Air", a.Name)
	require.EqualValues(t, 1, env.ledger.ApprovedCount())
	require.Equal(t, []entity.EventType{entity.EventAirlineCreated, entity.EventAirlineApproved}, env.pub.types())

	// approved but not funded: cannot register others
	_, err = env.ledger.RegisterAirline(context.Background(), genesis, acct(0x11), "Second")
	require.ErrorIs(t, err, entity.ErrUnauthorized)
}

func TestRegisterAirlineBypassThenPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fourFundedAirlines(t)

	fifth, err := env.ledger.RegisterAirline(ctx, genesis, acct(0x14), "Fifth")
	require.NoError(t, err)
	require.Equal(t, entity.AirlinePending, fifth.State)
	require.EqualValues(t, 4, env.ledger.ApprovedCount())

	_, err = env.ledger.RegisterAirline(ctx, genesis, acct(0x14), "Again")
	require.ErrorIs(t, err, entity.ErrAlreadyExists)
	_, err = env.ledger.RegisterAirline(ctx, genesis, acct(0x15), "  ")
	require.ErrorIs(t, err, entity.ErrInvalidArgument)
}

func TestConsensusCountsApprovals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	airlines := env.fourFundedAirlines(t)
	candidate := acct(0x14)
	_, err := env.ledger.RegisterAirline(ctx, genesis, candidate, "Fifth")
	require.NoError(t, err)

	a, err := env.ledger.Vote(ctx, airlines[0], candidate, true)
	require.NoError(t, err)
	require.Equal(t, entity.AirlinePending, a.State)

	a, err = env.ledger.Vote(ctx, airlines[1], candidate, false)
	require.NoError(t, err)
	require.Equal(t, entity.AirlinePending, a.State)

	// 2 approvals of 4 approved airlines reaches 50%
	a, err = env.ledger.Vote(ctx, airlines[2], candidate, true)
	require.NoError(t, err)
	require.Equal(t, entity.AirlineApproved, a.State)
	require.EqualValues(t, 3, a.Votes)
	require.EqualValues(t, 2, a.Approvals)
	require.EqualValues(t, 5, env.ledger.ApprovedCount())

	_, err = env.ledger.Vote(ctx, airlines[3], candidate, true)
	require.ErrorIs(t, err, entity.ErrInvalidState)
}

func TestConsensusCountsParticipation(t *testing.T) {
	env := newTestEnv(t, func(c *LedgerConfig) { c.Rule = entity.ConsensusParticipation })
	ctx := context.Background()
	airlines := env.fourFundedAirlines(t)
	candidate := acct(0x14)
	_, err := env.ledger.RegisterAirline(ctx, genesis, candidate, "Fifth")
	require.NoError(t, err)

	_, err = env.ledger.Vote(ctx, airlines[0], candidate, false)
	require.NoError(t, err)
	a, err := env.ledger.Vote(ctx, airlines[1], candidate, false)
	require.NoError(t, err)
	require.Equal(t, entity.AirlineApproved, a.State)
}

func TestConsensusRejectsWhenEveryoneVoted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	airlines := env.fourFundedAirlines(t)
	candidate := acct(0x14)
	_, err := env.ledger.RegisterAirline(ctx, genesis, candidate, "Fifth")
	require.NoError(t, err)

	var a entity.Airline
	for i, voter := range airlines {
		a, err = env.ledger.Vote(ctx, voter, candidate, i == 0)
		require.NoError(t, err)
	}
	require.Equal(t, entity.AirlineRejected, a.State)
	require.EqualValues(t, 4, env.ledger.ApprovedCount())
	require.Contains(t, env.pub.types(), entity.EventAirlineRejected)
}

func TestVoteErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	airlines := env.fourFundedAirlines(t)
	candidate := acct(0x14)
	_, err := env.ledger.RegisterAirline(ctx, genesis, candidate, "Fifth")
	require.NoError(t, err)

	_, err = env.ledger.Vote(ctx, airlines[0], acct(0x99), true)
	require.ErrorIs(t, err, entity.ErrNotFound)

	_, err = env.ledger.Vote(ctx, acct(0x77), candidate, true)
	require.ErrorIs(t, err, entity.ErrUnauthorized)

	_, err = env.ledger.Vote(ctx, airlines[0], candidate, true)
	require.NoError(t, err)
	_, err = env.ledger.Vote(ctx, airlines[0], candidate, false)
	require.ErrorIs(t, err, entity.ErrDuplicateVote)

	_, err = env.ledger.Vote(ctx, airlines[1], genesis, true)
	require.ErrorIs(t, err, entity.ErrInvalidState)
}

func TestFundAirline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.bank.credit(genesis, entity.Units(20))
	_, err := env.ledger.FundAirline(ctx, genesis, entity.Units(9))
	require.ErrorIs(t, err, entity.ErrInsufficientFunds)

	_, err = env.ledger.FundAirline(ctx, acct(0x99), entity.Units(10))
	require.ErrorIs(t, err, entity.ErrNotFound)

	a, err := env.ledger.FundAirline(ctx, genesis, entity.Units(10))
	require.NoError(t, err)
	require.Equal(t, entity.AirlineFunded, a.State)
	require.Equal(t, entity.Units(10).String(), env.bank.balances[escrow].String())
	require.Equal(t, entity.Units(10).String(), env.bank.balances[genesis].String())

	_, err = env.ledger.FundAirline(ctx, genesis, entity.Units(10))
	require.ErrorIs(t, err, entity.ErrInvalidState)
}

func TestBuyPolicyRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fourFundedAirlines(t)
	flight, err := env.ledger.RegisterFlight(ctx, genesis, designator, scheduledTo)
	require.NoError(t, err)

	_, err = env.ledger.RegisterFlight(ctx, genesis, designator, scheduledTo)
	require.ErrorIs(t, err, entity.ErrAlreadyExists)
	_, err = env.ledger.RegisterFlight(ctx, acct(0x99), "XX1", scheduledTo)
	require.ErrorIs(t, err, entity.ErrUnauthorized)

	passenger := acct(0x50)
	env.bank.credit(passenger, entity.Units(5))

	_, err = env.ledger.BuyPolicy(ctx, passenger, flight.Key, entity.Units(2))
	require.ErrorIs(t, err, entity.ErrLimitExceeded)
	_, err = env.ledger.BuyPolicy(ctx, passenger, flight.Key, entity.Money{})
	require.ErrorIs(t, err, entity.ErrInvalidArgument)
	_, err = env.ledger.BuyPolicy(ctx, passenger, common.Hash{0x01}, entity.Units(1))
	require.ErrorIs(t, err, entity.ErrNotFound)

	quarter := entity.Units(1).MulDiv(1, 4)
	_, err = env.ledger.BuyPolicy(ctx, passenger, flight.Key, quarter)
	require.NoError(t, err)
	ins, err := env.ledger.BuyPolicy(ctx, passenger, flight.Key, quarter)
	require.NoError(t, err)
	require.Len(t, ins.Policies, 2)
	require.Equal(t, entity.Units(1).MulDiv(1, 2).String(), ins.Total.String())
}

func TestDelayPayoutEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	passenger := acct(0x50)
	flight, req, holders := env.insuredFlight(t, passenger)

	for i, o := range holders[:Quorum] {
		out, err := env.ledger.SubmitOracleResponse(ctx, o, lateAirline(req.Index))
		require.NoError(t, err)
		require.Equal(t, i+1, out.Responses)
		if i < Quorum-1 {
			require.False(t, out.QuorumReached)
			continue
		}
		require.True(t, out.QuorumReached)
		require.True(t, out.FlightUpdated)
		require.Equal(t, 1, out.PassengersCredited)
	}

	threeQuarters := entity.Units(1).MulDiv(3, 4)
	require.Equal(t, threeQuarters.String(), env.ledger.Credit(passenger).String())
	got, err := env.ledger.Flight(flight.Key)
	require.NoError(t, err)
	require.Equal(t, entity.StatusLateAirline, got.Status)

	// resolved flights no longer sell policies
	_, err = env.ledger.BuyPolicy(ctx, passenger, flight.Key, entity.Units(1).MulDiv(1, 10))
	require.ErrorIs(t, err, entity.ErrInvalidState)

	escrowBefore := env.bank.balances[escrow]
	paid, err := env.ledger.Withdraw(ctx, passenger)
	require.NoError(t, err)
	require.Equal(t, threeQuarters.String(), paid.String())
	require.True(t, env.ledger.Credit(passenger).IsZero())
	require.Equal(t, entity.Units(5).MulDiv(1, 4).String(), env.bank.balances[passenger].String())
	require.Equal(t, escrowBefore.Sub(threeQuarters).String(), env.bank.balances[escrow].String())

	_, err = env.ledger.Withdraw(ctx, passenger)
	require.ErrorIs(t, err, entity.ErrInvalidState)

	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PassengersPaid))
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Withdrawals))
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Calls.WithLabelValues(opWithdraw, "invalid_state")))
	require.Equal(t, 0.0, testutil.ToFloat64(env.metrics.OpenRequests))
}

func TestQuorumResolvesFlightOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	passenger := acct(0x50)
	flight, req, holders := env.insuredFlight(t, passenger)

	for _, o := range holders[:Quorum+1] {
		_, err := env.ledger.SubmitOracleResponse(ctx, o, lateAirline(req.Index))
		require.NoError(t, err)
	}
	credit := env.ledger.Credit(passenger)
	require.Equal(t, entity.Units(1).MulDiv(3, 4).String(), credit.String())

	onTime := lateAirline(req.Index)
	onTime.Status = entity.StatusOnTime
	var out ResponseOutcome
	for _, o := range holders[:Quorum] {
		var err error
		out, err = env.ledger.SubmitOracleResponse(ctx, o, onTime)
		require.NoError(t, err)
	}
	require.True(t, out.QuorumReached)
	require.False(t, out.FlightUpdated)

	got, err := env.ledger.Flight(flight.Key)
	require.NoError(t, err)
	require.Equal(t, entity.StatusLateAirline, got.Status)
	require.Equal(t, credit.String(), env.ledger.Credit(passenger).String())

	stored, err := env.ledger.StatusRequest(req.Key)
	require.NoError(t, err)
	require.Equal(t, entity.StatusLateAirline, stored.Resolved)
	require.Equal(t, Quorum+1, stored.ResponseCounts()[entity.StatusLateAirline])
}

func TestOracleResponseErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, req, holders := env.insuredFlight(t, acct(0x50))
	oracle := holders[0]

	// an unregistered account holds no index
	_, err := env.ledger.SubmitOracleResponse(ctx, acct(0x99), lateAirline(req.Index))
	require.ErrorIs(t, err, entity.ErrIndexMismatch)

	idx, err := env.ledger.MyIndexes(oracle)
	require.NoError(t, err)
	var missing uint8
	for i := uint8(0); i < entity.OracleIndexRange; i++ {
		if !(entity.Oracle{Indexes: idx}).Holds(i) {
			missing = i
			break
		}
	}
	_, err = env.ledger.SubmitOracleResponse(ctx, oracle, lateAirline(missing))
	require.ErrorIs(t, err, entity.ErrIndexMismatch)

	unknown := lateAirline(req.Index)
	unknown.Status = entity.StatusUnknown
	_, err = env.ledger.SubmitOracleResponse(ctx, oracle, unknown)
	require.ErrorIs(t, err, entity.ErrInvalidArgument)

	otherFlight := lateAirline(req.Index)
	otherFlight.Designator = "XX0001"
	_, err = env.ledger.SubmitOracleResponse(ctx, oracle, otherFlight)
	require.ErrorIs(t, err, entity.ErrNotFound)

	_, err = env.ledger.SubmitOracleResponse(ctx, oracle, lateAirline(req.Index))
	require.NoError(t, err)
	_, err = env.ledger.SubmitOracleResponse(ctx, oracle, lateAirline(req.Index))
	require.ErrorIs(t, err, entity.ErrDuplicateVote)

	_, err = env.ledger.MyIndexes(acct(0x99))
	require.ErrorIs(t, err, entity.ErrUnauthorized)

	_, err = env.ledger.RegisterOracle(ctx, oracle, OracleRegistrationFee)
	require.ErrorIs(t, err, entity.ErrAlreadyExists)
	_, err = env.ledger.RegisterOracle(ctx, acct(0x98), entity.Units(1).MulDiv(1, 2))
	require.ErrorIs(t, err, entity.ErrInsufficientFunds)

	_, err = env.ledger.RequestFlightStatus(ctx, acct(0x50), genesis, "XX0001", scheduledTo)
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestRequestStatusAgainKeepsResponses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, req, holders := env.insuredFlight(t, acct(0x50))

	_, err := env.ledger.SubmitOracleResponse(ctx, holders[0], lateAirline(req.Index))
	require.NoError(t, err)

	// request until the same index comes up again
	for i := 0; i < 200; i++ {
		again, err := env.ledger.RequestFlightStatus(ctx, acct(0x51), genesis, designator, scheduledTo)
		require.NoError(t, err)
		if again.Key == req.Key {
			require.Equal(t, 1, again.ResponseCounts()[entity.StatusLateAirline])
			require.Equal(t, acct(0x51), again.Requester)
			return
		}
	}
	t.Fatal("request index never repeated")
}

func TestRequestExpiresAfterTTL(t *testing.T) {
	env := newTestEnv(t, func(c *LedgerConfig) { c.RequestTTL = 5 })
	ctx := context.Background()
	_, req, holders := env.insuredFlight(t, acct(0x50))

	env.blocks.height = req.OpenedAt + 5
	_, err := env.ledger.SubmitOracleResponse(ctx, holders[0], lateAirline(req.Index))
	require.NoError(t, err)

	env.blocks.height = req.OpenedAt + 6
	_, err = env.ledger.SubmitOracleResponse(ctx, holders[1], lateAirline(req.Index))
	require.ErrorIs(t, err, entity.ErrNotFound)

	stored, err := env.ledger.StatusRequest(req.Key)
	require.NoError(t, err)
	require.False(t, stored.IsOpen)
}

func TestPauseBlocksEverythingButResume(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, genesis)

	require.ErrorIs(t, env.ledger.SetOperational(ctx, genesis, false), entity.ErrUnauthorized)
	require.ErrorIs(t, env.ledger.SetOperational(ctx, admin, true), entity.ErrInvalidState)
	require.NoError(t, env.ledger.SetOperational(ctx, admin, false))
	require.False(t, env.ledger.IsOperational())

	_, err := env.ledger.RegisterFlight(ctx, genesis, designator, scheduledTo)
	require.ErrorIs(t, err, entity.ErrPaused)
	require.ErrorIs(t, env.ledger.AuthorizeCaller(ctx, admin, acct(0x60)), entity.ErrPaused)
	require.ErrorIs(t, env.ledger.SetOperational(ctx, admin, false), entity.ErrPaused)

	// queries keep working
	_, err = env.ledger.Airline(genesis)
	require.NoError(t, err)

	require.NoError(t, env.ledger.SetOperational(ctx, admin, true))
	_, err = env.ledger.RegisterFlight(ctx, genesis, designator, scheduledTo)
	require.NoError(t, err)
}

func TestAllowlistedCallers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.gate.restricted = true
	env.bank.credit(genesis, MinAirlineFunding)

	_, err := env.ledger.FundAirline(ctx, genesis, MinAirlineFunding)
	require.ErrorIs(t, err, entity.ErrUnauthorized)

	require.ErrorIs(t, env.ledger.AuthorizeCaller(ctx, genesis, genesis), entity.ErrUnauthorized)
	require.NoError(t, env.ledger.AuthorizeCaller(ctx, admin, genesis))
	require.ErrorIs(t, env.ledger.AuthorizeCaller(ctx, admin, genesis), entity.ErrAlreadyExists)

	_, err = env.ledger.FundAirline(ctx, genesis, MinAirlineFunding)
	require.NoError(t, err)

	require.NoError(t, env.ledger.DeauthorizeCaller(ctx, admin, genesis))
	require.ErrorIs(t, env.ledger.DeauthorizeCaller(ctx, admin, genesis), entity.ErrNotFound)
	_, err = env.ledger.RegisterFlight(ctx, genesis, designator, scheduledTo)
	require.ErrorIs(t, err, entity.ErrUnauthorized)
}

func TestTransferFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fourFundedAirlines(t)
	flight, err := env.ledger.RegisterFlight(ctx, genesis, designator, scheduledTo)
	require.NoError(t, err)
	records := len(env.repo.records)
	published := len(env.pub.events)

	passenger := acct(0x50)
	_, err = env.ledger.BuyPolicy(ctx, passenger, flight.Key, entity.Units(1))
	require.ErrorIs(t, err, entity.ErrInsufficientFunds)

	_, err = env.ledger.Insurance(flight.Key, passenger)
	require.ErrorIs(t, err, entity.ErrNotFound)
	require.Len(t, env.repo.records, records)
	require.Len(t, env.pub.events, published)
}

func TestJournalFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.bank.credit(genesis, MinAirlineFunding)
	records := len(env.repo.records)

	env.repo.failNext = true
	_, err := env.ledger.FundAirline(ctx, genesis, MinAirlineFunding)
	require.Error(t, err)
	require.Nil(t, entity.KindOf(err))

	a, err := env.ledger.Airline(genesis)
	require.NoError(t, err)
	require.Equal(t, entity.AirlineApproved, a.State)
	require.Equal(t, MinAirlineFunding.String(), env.bank.balances[genesis].String())
	require.True(t, env.bank.balances[escrow].IsZero())
	require.Len(t, env.repo.records, records)
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Calls.WithLabelValues(opFundAirline, "error")))

	// the chain head did not move, so the retry links cleanly
	_, err = env.ledger.FundAirline(ctx, genesis, MinAirlineFunding)
	require.NoError(t, err)
	report, err := env.ledger.VerifyJournal(ctx)
	require.NoError(t, err)
	require.True(t, report.OK, report.Errors)
}

func TestPublishFailureDoesNotFailCall(t *testing.T) {
	env := newTestEnv(t)
	env.pub.fail = errors.New("redis down")

	env.fund(t, genesis)
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PublishFailures))
}

func TestReplayRestoresState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	passenger := acct(0x50)
	flight, req, holders := env.insuredFlight(t, passenger)
	for _, o := range holders[:Quorum] {
		_, err := env.ledger.SubmitOracleResponse(ctx, o, lateAirline(req.Index))
		require.NoError(t, err)
	}
	require.NoError(t, env.ledger.SetOperational(ctx, admin, false))

	restarted := &testEnv{
		gate:   newFakeGate(admin),
		bank:   newFakeBank(),
		blocks: env.blocks,
		repo:   env.repo,
		pub:    &fakePublisher{},
		cfg:    env.cfg,
	}
	restarted.open(t)

	require.Empty(t, restarted.pub.events)
	require.Equal(t, env.ledger.Airlines(), restarted.ledger.Airlines())
	require.Equal(t, env.ledger.Flights(), restarted.ledger.Flights())
	require.Equal(t, env.ledger.Credit(passenger).String(), restarted.ledger.Credit(passenger).String())
	require.Equal(t, env.ledger.ApprovedCount(), restarted.ledger.ApprovedCount())
	require.False(t, restarted.ledger.IsOperational())

	ins, err := restarted.ledger.Insurance(flight.Key, passenger)
	require.NoError(t, err)
	require.Equal(t, entity.Units(1).MulDiv(1, 2).String(), ins.Total.String())

	for _, o := range holders {
		want, err := env.ledger.MyIndexes(o)
		require.NoError(t, err)
		got, err := restarted.ledger.MyIndexes(o)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	require.Equal(t, env.ledger.oracles.drawer.nonce, restarted.ledger.oracles.drawer.nonce)

	stored, err := restarted.ledger.StatusRequest(req.Key)
	require.NoError(t, err)
	require.Equal(t, entity.StatusLateAirline, stored.Resolved)
}

func TestTamperedJournalIsRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fourFundedAirlines(t)

	report, err := env.ledger.VerifyJournal(ctx)
	require.NoError(t, err)
	require.True(t, report.OK)
	require.Greater(t, report.RootsChecked, 0)

	env.repo.records[0].Payload = strings.Replace(env.repo.records[0].Payload, "Genesis Air", "Genesis Aig", 1)

	report, err = env.ledger.VerifyJournal(ctx)
	require.NoError(t, err)
	require.False(t, report.OK)
	require.Contains(t, report.Errors, "hash mismatch at 1")

	_, err = NewLedger(ctx, env.cfg, newFakeGate(admin), newFakeBank(), env.blocks, NewJournal(env.repo, 4), nil,
		metrics.NewMetrics("test", prometheus.NewRegistry()), logger.NewNopLogger())
	require.Error(t, err)
}

// reopen starts a second ledger on the same journal with an empty bank, the
// way the service comes back after a restart.
func (e *testEnv) reopen(t *testing.T) *testEnv {
	t.Helper()
	restarted := &testEnv{
		gate:   newFakeGate(admin),
		bank:   newFakeBank(),
		blocks: e.blocks,
		repo:   e.repo,
		pub:    &fakePublisher{},
		cfg:    e.cfg,
	}
	restarted.open(t)
	return restarted
}

func TestWithdrawAfterRestart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	passenger := acct(0x50)
	_, req, holders := env.insuredFlight(t, passenger)
	for _, o := range holders[:Quorum] {
		_, err := env.ledger.SubmitOracleResponse(ctx, o, lateAirline(req.Index))
		require.NoError(t, err)
	}
	escrowBefore := env.bank.balances[escrow]

	restarted := env.reopen(t)
	require.Equal(t, escrowBefore.String(), restarted.bank.balances[escrow].String())

	threeQuarters := entity.Units(1).MulDiv(3, 4)
	paid, err := restarted.ledger.Withdraw(ctx, passenger)
	require.NoError(t, err)
	require.Equal(t, threeQuarters.String(), paid.String())
	require.True(t, restarted.ledger.Credit(passenger).IsZero())
	require.Equal(t, threeQuarters.String(), restarted.bank.balances[passenger].String())

	// the withdrawal is journaled, so a further restart starts from the reduced escrow
	again := restarted.reopen(t)
	require.Equal(t, escrowBefore.Sub(threeQuarters).String(), again.bank.balances[escrow].String())
	_, err = again.ledger.Withdraw(ctx, passenger)
	require.ErrorIs(t, err, entity.ErrInvalidState)
}

func TestPublishRunsWithoutHoldingLock(t *testing.T) {
	env := newTestEnv(t)
	var free, held int
	env.pub.onPublish = func(entity.Event) {
		if env.ledger.mu.TryRLock() {
			env.ledger.mu.RUnlock()
			free++
			return
		}
		held++
	}

	env.fund(t, genesis)
	require.Positive(t, free)
	require.Zero(t, held)
}

func TestOpenRequestsGaugeDropsExpiredRequests(t *testing.T) {
	env := newTestEnv(t, func(c *LedgerConfig) { c.RequestTTL = 5 })
	ctx := context.Background()
	_, req, holders := env.insuredFlight(t, acct(0x50))
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.OpenRequests))

	env.blocks.height = req.OpenedAt + 6
	_, err := env.ledger.SubmitOracleResponse(ctx, holders[0], lateAirline(req.Index))
	require.ErrorIs(t, err, entity.ErrNotFound)
	require.Equal(t, 0.0, testutil.ToFloat64(env.metrics.OpenRequests))
}

func TestRequestTTLNearMaxStaysOpen(t *testing.T) {
	env := newTestEnv(t, func(c *LedgerConfig) { c.RequestTTL = ^uint64(0) })
	ctx := context.Background()
	_, req, holders := env.insuredFlight(t, acct(0x50))

	_, err := env.ledger.SubmitOracleResponse(ctx, holders[0], lateAirline(req.Index))
	require.NoError(t, err)
}
