package repository

import "flightsurety-service/internal/domain/entity"

// AuthorizationGate answers who may call the ledger and whether it is paused
type AuthorizationGate interface {
	IsAuthorized(caller entity.Account) bool
	IsPaused() bool
	IsAdmin(caller entity.Account) bool
}

// GateController mutates the gate on behalf of an administrator
type GateController interface {
	SetPaused(paused bool)
	Authorize(caller entity.Account)
	Deauthorize(caller entity.Account)
	// Listed reports whether caller was explicitly authorized.
	Listed(caller entity.Account) bool
}

// Gate is a gate the ledger can both consult and administer
type Gate interface {
	AuthorizationGate
	GateController
}
