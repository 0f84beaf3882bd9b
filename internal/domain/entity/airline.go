package entity

import "fmt"

// AirlineState is the governance stage of an airline.
type AirlineState uint8

const (
	AirlinePending AirlineState = iota
	AirlineRejected
	AirlineApproved
	AirlineFunded
)

func (s AirlineState) String() string {
	switch s {
	case AirlinePending:
		return "pending"
	case AirlineRejected:
		return "rejected"
	case AirlineApproved:
		return "approved"
	case AirlineFunded:
		return "funded"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

func (s AirlineState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Admitted reports whether the airline counts toward the consensus denominator.
func (s AirlineState) Admitted() bool {
	return s == AirlineApproved || s == AirlineFunded
}

// CanTransitionTo reports whether the governance state machine allows s -> to.
func (s AirlineState) CanTransitionTo(to AirlineState) bool {
	switch s {
	case AirlinePending:
		return to == AirlineApproved || to == AirlineRejected
	case AirlineApproved:
		return to == AirlineFunded
	}
	return false
}

// Airline is a governed participant.
type Airline struct {
	ID    Account      `json:"id"`
	Name  string       `json:"name"`
	State AirlineState `json:"state"`
	// Votes is the number of votes cast while pending.
	Votes     uint64 `json:"votes"`
	Approvals uint64 `json:"approvals"`
}

// Vote records a single ballot on a pending airline.
type Vote struct {
	Approve bool
	Cast    bool
}

// VoteTally accumulates ballots on a pending airline.
type VoteTally struct {
	Votes     map[Account]Vote
	Count     uint64
	Approvals uint64
}

func NewVoteTally() *VoteTally {
	return &VoteTally{Votes: make(map[Account]Vote)}
}

// ConsensusRule selects what is measured against the consensus threshold.
type ConsensusRule string

const (
	// ConsensusApprovals counts only approving ballots.
	ConsensusApprovals ConsensusRule = "approvals"
	// ConsensusParticipation counts every ballot regardless of direction.
	ConsensusParticipation ConsensusRule = "participation"
)

// ParseConsensusRule validates a rule name.
func ParseConsensusRule(s string) (ConsensusRule, error) {
	switch ConsensusRule(s) {
	case ConsensusApprovals, ConsensusParticipation:
		return ConsensusRule(s), nil
	case "":
		return ConsensusApprovals, nil
	}
	return "", fmt.Errorf("%w: unknown consensus rule %q", ErrInvalidArgument, s)
}
