package gate

import (
	"sync"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/internal/domain/repository"
)

// Gate is an in-memory authorization gate. With an empty initial allowlist
// every caller is admitted; otherwise only listed callers are.
type Gate struct {
	mu         sync.RWMutex
	paused     bool
	restricted bool
	admins     map[entity.Account]struct{}
	listed     map[entity.Account]struct{}
}

var _ repository.Gate = (*Gate)(nil)

// New creates an operational gate
func New(admins, allowlist []entity.Account) *Gate {
	g := &Gate{
		restricted: len(allowlist) > 0,
		admins:     make(map[entity.Account]struct{}, len(admins)),
		listed:     make(map[entity.Account]struct{}, len(allowlist)),
	}
	for _, a := range admins {
		g.admins[a] = struct{}{}
	}
	for _, a := range allowlist {
		g.listed[a] = struct{}{}
	}
	return g
}

func (g *Gate) IsAuthorized(caller entity.Account) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.restricted {
		return true
	}
	_, ok := g.listed[caller]
	return ok
}

func (g *Gate) IsPaused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused
}

func (g *Gate) IsAdmin(caller entity.Account) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.admins[caller]
	return ok
}

func (g *Gate) SetPaused(paused bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = paused
}

// Authorize lists caller. Listing does not restrict an open gate.
func (g *Gate) Authorize(caller entity.Account) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listed[caller] = struct{}{}
}

func (g *Gate) Deauthorize(caller entity.Account) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.listed, caller)
}

func (g *Gate) Listed(caller entity.Account) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.listed[caller]
	return ok
}
