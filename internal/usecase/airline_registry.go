package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"flightsurety-service/internal/domain/entity"
)

// AirlineRegistry tracks airline governance: admission, consensus votes and funding.
type AirlineRegistry struct {
	airlines map[entity.Account]*entity.Airline
	tallies  map[entity.Account]*entity.VoteTally
	order    []entity.Account
	admitted uint64
	rule     entity.ConsensusRule
}

// NewAirlineRegistry creates an empty registry evaluating votes with rule.
func NewAirlineRegistry(rule entity.ConsensusRule) *AirlineRegistry {
	if rule == "" {
		rule = entity.ConsensusApprovals
	}
	return &AirlineRegistry{
		airlines: make(map[entity.Account]*entity.Airline),
		tallies:  make(map[entity.Account]*entity.VoteTally),
		rule:     rule,
	}
}

func (r *AirlineRegistry) register(tx *txn, id entity.Account, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return entity.Errorf(entity.ErrInvalidArgument, opRegisterAirline, "name is required")
	}
	if id == entity.ZeroAccount {
		return entity.Errorf(entity.ErrInvalidArgument, opRegisterAirline, "airline account is required")
	}
	if _, ok := r.airlines[id]; ok {
		return entity.Errorf(entity.ErrAlreadyExists, opRegisterAirline, "airline %s", id.Hex())
	}
	return tx.record(entity.EventAirlineCreated, map[string]string{
		"airline": id.Hex(),
		"name":    name,
	})
}

// approveWithoutConsensus admits a pending airline while fewer than
// BypassThreshold airlines are approved.
func (r *AirlineRegistry) approveWithoutConsensus(tx *txn, id entity.Account) error {
	a, ok := r.airlines[id]
	if !ok {
		return entity.Errorf(entity.ErrNotFound, opApproveBypass, "airline %s", id.Hex())
	}
	if a.State != entity.AirlinePending {
		return entity.Errorf(entity.ErrInvalidState, opApproveBypass, "airline %s is %s", id.Hex(), a.State)
	}
	if r.admitted >= BypassThreshold {
		return entity.Errorf(entity.ErrInvalidState, opApproveBypass, "%d airlines approved, consensus required", r.admitted)
	}
	return tx.record(entity.EventAirlineApproved, map[string]string{
		"airline": id.Hex(),
		"via":     "bypass",
	})
}

func (r *AirlineRegistry) castVote(tx *txn, voter, id entity.Account, approve bool) error {
	a, ok := r.airlines[id]
	if !ok {
		return entity.Errorf(entity.ErrNotFound, opCastVote, "airline %s", id.Hex())
	}
	if a.State != entity.AirlinePending {
		return entity.Errorf(entity.ErrInvalidState, opCastVote, "airline %s is %s", id.Hex(), a.State)
	}
	if !r.IsFunded(voter) {
		return entity.Errorf(entity.ErrUnauthorized, opCastVote, "voter %s is not a funded airline", voter.Hex())
	}
	if r.tallies[id].Votes[voter].Cast {
		return entity.Errorf(entity.ErrDuplicateVote, opCastVote, "voter %s already voted on %s", voter.Hex(), id.Hex())
	}
	return tx.record(entity.EventAirlineVoted, map[string]string{
		"airline": id.Hex(),
		"voter":   voter.Hex(),
		"approve": strconv.FormatBool(approve),
	})
}

// evaluateConsensus transitions a pending airline once its tally is decisive
// and returns the resulting state. Non-pending airlines are left untouched.
func (r *AirlineRegistry) evaluateConsensus(tx *txn, id entity.Account) (entity.AirlineState, error) {
	a, ok := r.airlines[id]
	if !ok {
		return 0, entity.Errorf(entity.ErrNotFound, opEvaluateConsensus, "airline %s", id.Hex())
	}
	if a.State != entity.AirlinePending {
		return a.State, nil
	}

	// No approved airlines means nobody can ever vote.
	denominator := r.admitted
	if denominator == 0 {
		return a.State, nil
	}

	tally := r.tallies[id]
	measured := tally.Approvals
	if r.rule == entity.ConsensusParticipation {
		measured = tally.Count
	}

	switch {
	case measured*100/denominator >= ConsensusPercent:
		err := tx.record(entity.EventAirlineApproved, map[string]string{
			"airline": id.Hex(),
			"via":     "consensus",
		})
		if err != nil {
			return a.State, err
		}
	case tally.Count >= denominator:
		err := tx.record(entity.EventAirlineRejected, map[string]string{
			"airline": id.Hex(),
		})
		if err != nil {
			return a.State, err
		}
	}
	return a.State, nil
}

func (r *AirlineRegistry) fund(tx *txn, id entity.Account, amount entity.Money) error {
	a, ok := r.airlines[id]
	if !ok {
		return entity.Errorf(entity.ErrNotFound, opFundAirline, "airline %s", id.Hex())
	}
	if a.State != entity.AirlineApproved {
		return entity.Errorf(entity.ErrInvalidState, opFundAirline, "airline %s is %s", id.Hex(), a.State)
	}
	if amount.Cmp(MinAirlineFunding) < 0 {
		return entity.Errorf(entity.ErrInsufficientFunds, opFundAirline, "funding %s below minimum %s", amount, MinAirlineFunding)
	}
	return tx.record(entity.EventAirlineFunded, map[string]string{
		"airline": id.Hex(),
		"amount":  amount.String(),
	})
}

// IsFunded reports whether id is a funded airline.
func (r *AirlineRegistry) IsFunded(id entity.Account) bool {
	a, ok := r.airlines[id]
	return ok && a.State == entity.AirlineFunded
}

// Airline returns a copy of the airline record.
func (r *AirlineRegistry) Airline(id entity.Account) (entity.Airline, bool) {
	a, ok := r.airlines[id]
	if !ok {
		return entity.Airline{}, false
	}
	return *a, true
}

// Airlines lists airlines in registration order.
func (r *AirlineRegistry) Airlines() []entity.Airline {
	out := make([]entity.Airline, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.airlines[id])
	}
	return out
}

// ApprovedCount is the number of airlines ever approved, funded ones included.
func (r *AirlineRegistry) ApprovedCount() uint64 {
	return r.admitted
}

func (r *AirlineRegistry) apply(ev entity.Event) (func(), error) {
	attrs := readAttrs(ev)
	id := attrs.account("airline")

	switch ev.Type {
	case entity.EventAirlineCreated:
		name := attrs.str("name")
		if attrs.err != nil {
			return nil, attrs.err
		}
		if _, ok := r.airlines[id]; ok {
			return nil, fmt.Errorf("airline %s created twice", id.Hex())
		}
		r.airlines[id] = &entity.Airline{ID: id, Name: name, State: entity.AirlinePending}
		r.tallies[id] = entity.NewVoteTally()
		r.order = append(r.order, id)
		return func() {
			delete(r.airlines, id)
			delete(r.tallies, id)
			r.order = r.order[:len(r.order)-1]
		}, nil

	case entity.EventAirlineVoted:
		voter := attrs.account("voter")
		approve := attrs.boolean("approve")
		if attrs.err != nil {
			return nil, attrs.err
		}
		a, tally, err := r.lookup(id)
		if err != nil {
			return nil, err
		}
		if tally.Votes[voter].Cast {
			return nil, fmt.Errorf("voter %s voted twice on %s", voter.Hex(), id.Hex())
		}
		prevCount, prevApprovals := tally.Count, tally.Approvals
		tally.Votes[voter] = entity.Vote{Approve: approve, Cast: true}
		tally.Count++
		if approve {
			tally.Approvals++
		}
		a.Votes, a.Approvals = tally.Count, tally.Approvals
		return func() {
			delete(tally.Votes, voter)
			tally.Count, tally.Approvals = prevCount, prevApprovals
			a.Votes, a.Approvals = prevCount, prevApprovals
		}, nil

	case entity.EventAirlineApproved:
		return r.transition(attrs, id, entity.AirlineApproved)
	case entity.EventAirlineRejected:
		return r.transition(attrs, id, entity.AirlineRejected)
	case entity.EventAirlineFunded:
		return r.transition(attrs, id, entity.AirlineFunded)
	}
	return nil, fmt.Errorf("airline registry cannot apply %s", ev.Type)
}

func (r *AirlineRegistry) transition(attrs *attrReader, id entity.Account, to entity.AirlineState) (func(), error) {
	if attrs.err != nil {
		return nil, attrs.err
	}
	a, _, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	from := a.State
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("airline %s cannot move from %s to %s", id.Hex(), from, to)
	}
	a.State = to
	if to == entity.AirlineApproved {
		r.admitted++
	}
	return func() {
		a.State = from
		if to == entity.AirlineApproved {
			r.admitted--
		}
	}, nil
}

func (r *AirlineRegistry) lookup(id entity.Account) (*entity.Airline, *entity.VoteTally, error) {
	a, ok := r.airlines[id]
	if !ok {
		return nil, nil, fmt.Errorf("airline %s is not registered", id.Hex())
	}
	return a, r.tallies[id], nil
}
