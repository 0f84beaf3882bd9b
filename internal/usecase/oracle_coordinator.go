package usecase

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/internal/domain/repository"
)

type flightStatusUpdater interface {
	Flight(key common.Hash) (entity.Flight, bool)
	updateStatus(tx *txn, key common.Hash, code entity.StatusCode) error
}

type payoutCreditor interface {
	creditDelayPayout(tx *txn, key common.Hash) (int, entity.Money, error)
}

// OracleResponse is a status report submitted by an oracle.
type OracleResponse struct {
	Index       uint8             `json:"index"`
	Airline     entity.Account    `json:"airline"`
	Designator  string            `json:"designator"`
	ScheduledTo uint64            `json:"scheduledTo"`
	Status      entity.StatusCode `json:"status"`
}

// ResponseOutcome describes what an accepted oracle response caused.
type ResponseOutcome struct {
	Request            common.Hash       `json:"request"`
	Status             entity.StatusCode `json:"status"`
	Responses          int               `json:"responses"`
	QuorumReached      bool              `json:"quorumReached"`
	FlightUpdated      bool              `json:"flightUpdated"`
	PassengersCredited int               `json:"passengersCredited"`
	PayoutTotal        entity.Money      `json:"payoutTotal"`
}

// OracleCoordinator registers oracles, opens status requests and resolves
// them once Quorum oracles agree.
type OracleCoordinator struct {
	oracles  map[entity.Account]*entity.Oracle
	requests map[common.Hash]*entity.StatusRequest
	drawer   *indexDrawer
	flights  flightStatusUpdater
	payouts  payoutCreditor
	quorum   int
	ttl      uint64
}

// NewOracleCoordinator creates a coordinator. A ttl of zero keeps requests
// open forever.
func NewOracleCoordinator(blocks repository.BlockSource, flights flightStatusUpdater, payouts payoutCreditor, ttl uint64) *OracleCoordinator {
	return &OracleCoordinator{
		oracles:  make(map[entity.Account]*entity.Oracle),
		requests: make(map[common.Hash]*entity.StatusRequest),
		drawer:   &indexDrawer{blocks: blocks},
		flights:  flights,
		payouts:  payouts,
		quorum:   Quorum,
		ttl:      ttl,
	}
}

func (c *OracleCoordinator) register(tx *txn, account entity.Account, fee entity.Money) ([entity.OracleIndexCount]uint8, error) {
	if _, ok := c.oracles[account]; ok {
		return [entity.OracleIndexCount]uint8{}, entity.Errorf(entity.ErrAlreadyExists, opRegisterOracle, "oracle %s", account.Hex())
	}
	if fee.Cmp(OracleRegistrationFee) < 0 {
		return [entity.OracleIndexCount]uint8{}, entity.Errorf(entity.ErrInsufficientFunds, opRegisterOracle, "fee %s below %s", fee, OracleRegistrationFee)
	}

	indexes, nonce := c.drawer.distinct(account)
	err := tx.record(entity.EventOracleRegistered, map[string]string{
		"oracle":  account.Hex(),
		"indexes": formatIndexes(indexes),
		"fee":     fee.String(),
		"nonce":   formatUint(nonce),
	})
	return indexes, err
}

func (c *OracleCoordinator) myIndexes(account entity.Account) ([entity.OracleIndexCount]uint8, error) {
	o, ok := c.oracles[account]
	if !ok {
		return [entity.OracleIndexCount]uint8{}, entity.Errorf(entity.ErrUnauthorized, opMyIndexes, "oracle %s is not registered", account.Hex())
	}
	return o.Indexes, nil
}

// requestStatus opens a status request for a random index. Asking again for
// a request that is still open keeps its responses.
func (c *OracleCoordinator) requestStatus(tx *txn, requester, airline entity.Account, designator string, scheduledTo uint64) (common.Hash, error) {
	designator = strings.TrimSpace(designator)
	if designator == "" {
		return common.Hash{}, entity.Errorf(entity.ErrInvalidArgument, opRequestStatus, "designator is required")
	}
	flightKey := entity.FlightKey(airline, designator, scheduledTo)
	if _, ok := c.flights.Flight(flightKey); !ok {
		return common.Hash{}, entity.Errorf(entity.ErrNotFound, opRequestStatus, "flight %s", flightKey.Hex())
	}

	index, nonce := c.drawer.one(requester)
	key := entity.RequestKey(index, airline, designator, scheduledTo)
	err := tx.record(entity.EventOracleRequest, map[string]string{
		"request":     key.Hex(),
		"flight":      flightKey.Hex(),
		"index":       formatUint(uint64(index)),
		"airline":     airline.Hex(),
		"designator":  designator,
		"scheduledTo": formatUint(scheduledTo),
		"requester":   requester.Hex(),
		"nonce":       formatUint(nonce),
	})
	return key, err
}

func (c *OracleCoordinator) submitResponse(tx *txn, oracle entity.Account, resp OracleResponse) (ResponseOutcome, error) {
	// An unregistered account holds no indices.
	o, ok := c.oracles[oracle]
	if !ok {
		return ResponseOutcome{}, entity.Errorf(entity.ErrIndexMismatch, opSubmitResponse, "%s is not a registered oracle", oracle.Hex())
	}
	if !o.Holds(resp.Index) {
		return ResponseOutcome{}, entity.Errorf(entity.ErrIndexMismatch, opSubmitResponse, "oracle %s does not hold index %d", oracle.Hex(), resp.Index)
	}
	if !resp.Status.Valid() || resp.Status == entity.StatusUnknown {
		return ResponseOutcome{}, entity.Errorf(entity.ErrInvalidArgument, opSubmitResponse, "status %d cannot be reported", uint8(resp.Status))
	}

	key := entity.RequestKey(resp.Index, resp.Airline, resp.Designator, resp.ScheduledTo)
	req, ok := c.requests[key]
	if !ok || !c.open(req, tx.height) {
		return ResponseOutcome{}, entity.Errorf(entity.ErrNotFound, opSubmitResponse, "no open request %s", key.Hex())
	}
	if _, dup := req.Responses[resp.Status][oracle]; dup {
		return ResponseOutcome{}, entity.Errorf(entity.ErrDuplicateVote, opSubmitResponse, "oracle %s already reported %s", oracle.Hex(), resp.Status)
	}

	err := tx.record(entity.EventOracleReport, map[string]string{
		"request":     key.Hex(),
		"oracle":      oracle.Hex(),
		"index":       formatUint(uint64(resp.Index)),
		"airline":     resp.Airline.Hex(),
		"designator":  resp.Designator,
		"scheduledTo": formatUint(resp.ScheduledTo),
		"status":      formatUint(uint64(resp.Status)),
	})
	if err != nil {
		return ResponseOutcome{}, err
	}

	out := ResponseOutcome{
		Request:   key,
		Status:    resp.Status,
		Responses: len(req.Responses[resp.Status]),
	}
	// Sets only grow by one, so quorum is crossed exactly once per code.
	if out.Responses != c.quorum {
		return out, nil
	}
	out.QuorumReached = true

	flightKey := entity.FlightKey(resp.Airline, resp.Designator, resp.ScheduledTo)
	err = tx.record(entity.EventFlightStatusInfo, map[string]string{
		"request":     key.Hex(),
		"flight":      flightKey.Hex(),
		"airline":     resp.Airline.Hex(),
		"designator":  resp.Designator,
		"scheduledTo": formatUint(resp.ScheduledTo),
		"status":      formatUint(uint64(resp.Status)),
	})
	if err != nil {
		return out, err
	}

	flight, ok := c.flights.Flight(flightKey)
	if !ok {
		return out, entity.Errorf(entity.ErrNotFound, opSubmitResponse, "flight %s", flightKey.Hex())
	}
	// The first resolution wins; later quorums are informational.
	if flight.Resolved() {
		return out, nil
	}
	if err := c.flights.updateStatus(tx, flightKey, resp.Status); err != nil {
		return out, err
	}
	out.FlightUpdated = true

	if resp.Status.TriggersPayout() {
		n, total, err := c.payouts.creditDelayPayout(tx, flightKey)
		if err != nil {
			return out, err
		}
		out.PassengersCredited = n
		out.PayoutTotal = total
	}
	return out, nil
}

// open reports whether req still accepts responses at height.
func (c *OracleCoordinator) open(req *entity.StatusRequest, height uint64) bool {
	if !req.IsOpen {
		return false
	}
	if c.ttl == 0 || height < req.OpenedAt {
		return true
	}
	return height-req.OpenedAt <= c.ttl
}

// Request returns a snapshot of a status request, closed if it expired at height.
func (c *OracleCoordinator) Request(key common.Hash, height uint64) (entity.StatusRequest, bool) {
	req, ok := c.requests[key]
	if !ok {
		return entity.StatusRequest{}, false
	}
	out := *req
	out.IsOpen = c.open(req, height)
	out.Responses = make(map[entity.StatusCode]map[entity.Account]struct{}, len(req.Responses))
	for code, set := range req.Responses {
		cp := make(map[entity.Account]struct{}, len(set))
		for a := range set {
			cp[a] = struct{}{}
		}
		out.Responses[code] = cp
	}
	return out, true
}

// Oracle returns a copy of the registered oracle.
func (c *OracleCoordinator) Oracle(account entity.Account) (entity.Oracle, bool) {
	o, ok := c.oracles[account]
	if !ok {
		return entity.Oracle{}, false
	}
	return *o, true
}

// OpenRequests counts requests that have not reached quorum and still accept
// responses at height.
func (c *OracleCoordinator) OpenRequests(height uint64) int {
	n := 0
	for _, req := range c.requests {
		if req.Resolved == entity.StatusUnknown && c.open(req, height) {
			n++
		}
	}
	return n
}

func (c *OracleCoordinator) apply(ev entity.Event) (func(), error) {
	attrs := readAttrs(ev)

	switch ev.Type {
	case entity.EventOracleRegistered:
		account := attrs.account("oracle")
		indexes := attrs.indexes("indexes")
		nonce := attrs.uint("nonce")
		if attrs.err != nil {
			return nil, attrs.err
		}
		if _, ok := c.oracles[account]; ok {
			return nil, fmt.Errorf("oracle %s registered twice", account.Hex())
		}
		prevNonce := c.drawer.nonce
		c.oracles[account] = &entity.Oracle{Account: account, Indexes: indexes}
		c.drawer.nonce = nonce
		return func() {
			delete(c.oracles, account)
			c.drawer.nonce = prevNonce
		}, nil

	case entity.EventOracleRequest:
		key := attrs.hash("request")
		index := attrs.index("index")
		airline := attrs.account("airline")
		designator := attrs.str("designator")
		scheduledTo := attrs.uint("scheduledTo")
		requester := attrs.account("requester")
		nonce := attrs.uint("nonce")
		if attrs.err != nil {
			return nil, attrs.err
		}
		if derived := entity.RequestKey(index, airline, designator, scheduledTo); derived != key {
			return nil, fmt.Errorf("request key %s does not match its fields (%s)", key.Hex(), derived.Hex())
		}
		prevNonce := c.drawer.nonce
		c.drawer.nonce = nonce

		existing, ok := c.requests[key]
		if ok && c.open(existing, ev.Height) {
			prevRequester := existing.Requester
			existing.Requester = requester
			return func() {
				existing.Requester = prevRequester
				c.drawer.nonce = prevNonce
			}, nil
		}

		// First request for this key, or a reopen after expiry.
		c.requests[key] = &entity.StatusRequest{
			Key:         key,
			Index:       index,
			Airline:     airline,
			Designator:  designator,
			ScheduledTo: scheduledTo,
			Requester:   requester,
			OpenedAt:    ev.Height,
			IsOpen:      true,
			Responses:   make(map[entity.StatusCode]map[entity.Account]struct{}),
		}
		return func() {
			if ok {
				c.requests[key] = existing
			} else {
				delete(c.requests, key)
			}
			c.drawer.nonce = prevNonce
		}, nil

	case entity.EventOracleReport:
		key := attrs.hash("request")
		oracle := attrs.account("oracle")
		code := attrs.status("status")
		if attrs.err != nil {
			return nil, attrs.err
		}
		req, ok := c.requests[key]
		if !ok {
			return nil, fmt.Errorf("report for unknown request %s", key.Hex())
		}
		set, hadSet := req.Responses[code]
		if !hadSet {
			set = make(map[entity.Account]struct{})
			req.Responses[code] = set
		}
		if _, dup := set[oracle]; dup {
			return nil, fmt.Errorf("oracle %s reported %s twice on %s", oracle.Hex(), code, key.Hex())
		}
		set[oracle] = struct{}{}
		return func() {
			delete(set, oracle)
			if !hadSet {
				delete(req.Responses, code)
			}
		}, nil

	case entity.EventFlightStatusInfo:
		key := attrs.hash("request")
		code := attrs.status("status")
		if attrs.err != nil {
			return nil, attrs.err
		}
		req, ok := c.requests[key]
		if !ok {
			return nil, fmt.Errorf("resolution for unknown request %s", key.Hex())
		}
		if req.Resolved != entity.StatusUnknown {
			return nil, nil
		}
		req.Resolved = code
		return func() {
			req.Resolved = entity.StatusUnknown
		}, nil
	}
	return nil, fmt.Errorf("oracle coordinator cannot apply %s", ev.Type)
}
