package rest

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/labstack/echo/v4"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/internal/interface/rest/middleware"
	"flightsurety-service/internal/interface/rest/presenter"
	"flightsurety-service/internal/usecase"
	"flightsurety-service/pkg/logger"
)

// Depositor credits accounts with externally supplied funds.
type Depositor interface {
	Deposit(account entity.Account, amount entity.Money) (entity.Money, error)
}

// AdminChecker reports whether a caller holds the administrator role.
type AdminChecker interface {
	IsAdmin(caller entity.Account) bool
}

type Handler struct {
	ledger   *usecase.Ledger
	deposits Depositor
	admins   AdminChecker
	logger   logger.Logger
}

func NewHandler(
	ledger *usecase.Ledger,
	deposits Depositor,
	admins AdminChecker,
	logger logger.Logger,
) *Handler {
	return &Handler{
		ledger:   ledger,
		deposits: deposits,
		admins:   admins,
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes mounts the ledger API on g. Callers are identified by
// middleware.IdentifyAccount, which must run first.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/airlines", h.handleRegisterAirline)
	g.GET("/airlines", h.handleListAirlines)
	g.GET("/airlines/:airline", h.handleGetAirline)
	g.POST("/airlines/:airline/votes", h.handleVote)
	g.POST("/airlines/:airline/fund", h.handleFundAirline)

	g.POST("/flights", h.handleRegisterFlight)
	g.GET("/flights", h.handleListFlights)
	g.GET("/flights/:key", h.handleGetFlight)
	g.POST("/flights/:key/policies", h.handleBuyPolicy)
	g.GET("/flights/:key/policies/:passenger", h.handleGetInsurance)
	g.POST("/flights/:key/status-requests", h.handleRequestStatus)
	g.GET("/status-requests/:key", h.handleGetStatusRequest)

	g.POST("/oracles", h.handleRegisterOracle)
	g.GET("/oracles/me/indexes", h.handleMyIndexes)
	g.POST("/oracles/responses", h.handleSubmitResponse)

	g.GET("/credits/:passenger", h.handleGetCredit)
	g.POST("/credits/withdraw", h.handleWithdraw)

	g.POST("/admin/operational", h.handleSetOperational)
	g.POST("/admin/callers", h.handleAuthorizeCaller)
	g.DELETE("/admin/callers/:account", h.handleDeauthorizeCaller)
	g.POST("/admin/deposits", h.handleDeposit)

	g.GET("/journal/verify", h.handleVerifyJournal)
}

type registerAirlineRequest struct {
	Airline entity.Account `json:"airline"`
	Name    string         `json:"name"`
}

type voteRequest struct {
	Approve bool `json:"approve"`
}

type amountRequest struct {
	Amount entity.Money `json:"amount"`
}

type registerFlightRequest struct {
	Designator  string `json:"designator"`
	ScheduledTo uint64 `json:"scheduledTo"`
}

type operationalRequest struct {
	Operational bool `json:"operational"`
}

type callerRequest struct {
	Account entity.Account `json:"account"`
}

type depositRequest struct {
	Account entity.Account `json:"account"`
	Amount  entity.Money   `json:"amount"`
}

type creditResponse struct {
	Passenger entity.Account `json:"passenger"`
	Amount    entity.Money   `json:"amount"`
}

type indexesResponse struct {
	Oracle  entity.Account                 `json:"oracle"`
	Indexes [entity.OracleIndexCount]uint8 `json:"indexes"`
}

type statusRequestResponse struct {
	entity.StatusRequest
	Counts map[entity.StatusCode]int `json:"counts"`
}

type balanceResponse struct {
	Account entity.Account `json:"account"`
	Balance entity.Money   `json:"balance"`
}

type operationalResponse struct {
	Operational bool `json:"operational"`
}

func (h *Handler) caller(c echo.Context) (entity.Account, bool) {
	return middleware.Caller(c.Request().Context())
}

func (h *Handler) fail(c echo.Context, err error) error {
	if entity.KindOf(err) == nil {
		h.logger.Error("Request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	}
	return presenter.Error(c, err)
}

func (h *Handler) handleRegisterAirline(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	var req registerAirlineRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	airline, err := h.ledger.RegisterAirline(c.Request().Context(), caller, req.Airline, req.Name)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.Created(c, airline)
}

func (h *Handler) handleListAirlines(c echo.Context) error {
	return presenter.OK(c, h.ledger.Airlines())
}

func (h *Handler) handleGetAirline(c echo.Context) error {
	id, err := entity.ParseAccount(c.Param("airline"))
	if err != nil {
		return presenter.Error(c, err)
	}
	airline, err := h.ledger.Airline(id)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, airline)
}

func (h *Handler) handleVote(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	airline, err := entity.ParseAccount(c.Param("airline"))
	if err != nil {
		return presenter.Error(c, err)
	}
	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	got, err := h.ledger.Vote(c.Request().Context(), caller, airline, req.Approve)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, got)
}

// handleFundAirline lets an airline fund itself; the path must name the caller.
func (h *Handler) handleFundAirline(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	airline, err := entity.ParseAccount(c.Param("airline"))
	if err != nil {
		return presenter.Error(c, err)
	}
	if airline != caller {
		return presenter.Error(c, entity.Errorf(entity.ErrUnauthorized, "fundAirline", "airlines fund only themselves"))
	}
	var req amountRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	got, err := h.ledger.FundAirline(c.Request().Context(), caller, req.Amount)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, got)
}

func (h *Handler) handleRegisterFlight(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	var req registerFlightRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	flight, err := h.ledger.RegisterFlight(c.Request().Context(), caller, req.Designator, req.ScheduledTo)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.Created(c, flight)
}

func (h *Handler) handleListFlights(c echo.Context) error {
	return presenter.OK(c, h.ledger.Flights())
}

func (h *Handler) handleGetFlight(c echo.Context) error {
	key, err := parseKey(c.Param("key"))
	if err != nil {
		return presenter.Error(c, err)
	}
	flight, err := h.ledger.Flight(key)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, flight)
}

func (h *Handler) handleBuyPolicy(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	key, err := parseKey(c.Param("key"))
	if err != nil {
		return presenter.Error(c, err)
	}
	var req amountRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	insurance, err := h.ledger.BuyPolicy(c.Request().Context(), caller, key, req.Amount)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.Created(c, insurance)
}

func (h *Handler) handleGetInsurance(c echo.Context) error {
	key, err := parseKey(c.Param("key"))
	if err != nil {
		return presenter.Error(c, err)
	}
	passenger, err := entity.ParseAccount(c.Param("passenger"))
	if err != nil {
		return presenter.Error(c, err)
	}
	insurance, err := h.ledger.Insurance(key, passenger)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, insurance)
}

// handleRequestStatus opens an oracle request for a registered flight.
func (h *Handler) handleRequestStatus(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	key, err := parseKey(c.Param("key"))
	if err != nil {
		return presenter.Error(c, err)
	}
	flight, err := h.ledger.Flight(key)
	if err != nil {
		return h.fail(c, err)
	}
	req, err := h.ledger.RequestFlightStatus(c.Request().Context(), caller, flight.Airline, flight.Designator, flight.ScheduledTo)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.Created(c, statusRequestResponse{StatusRequest: req, Counts: req.ResponseCounts()})
}

func (h *Handler) handleGetStatusRequest(c echo.Context) error {
	key, err := parseKey(c.Param("key"))
	if err != nil {
		return presenter.Error(c, err)
	}
	req, err := h.ledger.StatusRequest(key)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, statusRequestResponse{StatusRequest: req, Counts: req.ResponseCounts()})
}

func (h *Handler) handleRegisterOracle(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	var req amountRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	oracle, err := h.ledger.RegisterOracle(c.Request().Context(), caller, req.Amount)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.Created(c, oracle)
}

func (h *Handler) handleMyIndexes(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	indexes, err := h.ledger.MyIndexes(caller)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, indexesResponse{Oracle: caller, Indexes: indexes})
}

func (h *Handler) handleSubmitResponse(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	var req usecase.OracleResponse
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	outcome, err := h.ledger.SubmitOracleResponse(c.Request().Context(), caller, req)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, outcome)
}

func (h *Handler) handleGetCredit(c echo.Context) error {
	passenger, err := entity.ParseAccount(c.Param("passenger"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, creditResponse{Passenger: passenger, Amount: h.ledger.Credit(passenger)})
}

func (h *Handler) handleWithdraw(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	amount, err := h.ledger.Withdraw(c.Request().Context(), caller)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, creditResponse{Passenger: caller, Amount: amount})
}

func (h *Handler) handleSetOperational(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	var req operationalRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	if err := h.ledger.SetOperational(c.Request().Context(), caller, req.Operational); err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, operationalResponse{Operational: h.ledger.IsOperational()})
}

func (h *Handler) handleAuthorizeCaller(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	var req callerRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	if err := h.ledger.AuthorizeCaller(c.Request().Context(), caller, req.Account); err != nil {
		return h.fail(c, err)
	}
	return presenter.Created(c, req)
}

func (h *Handler) handleDeauthorizeCaller(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	target, err := entity.ParseAccount(c.Param("account"))
	if err != nil {
		return presenter.Error(c, err)
	}
	if err := h.ledger.DeauthorizeCaller(c.Request().Context(), caller, target); err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, callerRequest{Account: target})
}

// handleDeposit credits an account at the transfer primitive. Deposits stand
// in for the external payment rail and are not journaled.
func (h *Handler) handleDeposit(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return presenter.Unauthenticated(c)
	}
	if !h.admins.IsAdmin(caller) {
		return presenter.Error(c, entity.Errorf(entity.ErrUnauthorized, "deposit", "caller is not an administrator"))
	}
	var req depositRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}
	balance, err := h.deposits.Deposit(req.Account, req.Amount)
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, balanceResponse{Account: req.Account, Balance: balance})
}

func (h *Handler) handleVerifyJournal(c echo.Context) error {
	report, err := h.ledger.VerifyJournal(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return presenter.OK(c, report)
}

func parseKey(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, entity.Errorf(entity.ErrInvalidArgument, "parseKey", "key must be 32 bytes of 0x-prefixed hex")
	}
	return common.BytesToHash(b), nil
}
