package usecase

import "flightsurety-service/internal/domain/entity"

const (
	// BypassThreshold is the approved-airline count below which new airlines
	// are admitted without a vote.
	BypassThreshold = 4
	// ConsensusPercent is the share of approved airlines a vote must reach.
	ConsensusPercent = 50
	// Quorum is the number of matching oracle reports that resolves a request.
	Quorum = 3
	// PayoutNumerator and PayoutDenominator scale a premium into a credit.
	PayoutNumerator   = 3
	PayoutDenominator = 2

	nonceWrap       = 250
	maxDrawAttempts = 32
)

var (
	// MinAirlineFunding is the smallest accepted airline contribution.
	MinAirlineFunding = entity.Units(10)
	// PolicyCap bounds a single policy purchase.
	PolicyCap = entity.Units(1)
	// OracleRegistrationFee is the smallest accepted oracle registration fee.
	OracleRegistrationFee = entity.Units(1)
)

// Operation names used in errors, metrics and spans.
const (
	opGenesis            = "genesis"
	opRegisterAirline    = "registerAirline"
	opApproveBypass      = "approveWithoutConsensus"
	opCastVote           = "castVote"
	opEvaluateConsensus  = "evaluateConsensus"
	opFundAirline        = "fundAirline"
	opRegisterFlight     = "registerFlight"
	opUpdateFlightStatus = "updateFlightStatus"
	opBuyPolicy          = "buyPolicy"
	opCreditPayout       = "creditDelayPayout"
	opWithdraw           = "withdraw"
	opRegisterOracle     = "registerOracle"
	opRequestStatus      = "requestFlightStatus"
	opSubmitResponse     = "submitOracleResponse"
	opMyIndexes          = "getMyIndexes"
	opSetOperational     = "setOperational"
	opAuthorizeCaller    = "authorizeCaller"
	opDeauthorizeCaller  = "deauthorizeCaller"
)
