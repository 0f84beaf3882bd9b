package usecase

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"flightsurety-service/internal/domain/entity"
)

type fakeGate struct {
	paused     bool
	restricted bool
	admins     map[entity.Account]bool
	listed     map[entity.Account]bool
}

func newFakeGate(admins ...entity.Account) *fakeGate {
	g := &fakeGate{admins: map[entity.Account]bool{}, listed: map[entity.Account]bool{}}
	for _, a := range admins {
		g.admins[a] = true
	}
	return g
}

func (g *fakeGate) IsAuthorized(c entity.Account) bool { return !g.restricted || g.listed[c] }
func (g *fakeGate) IsPaused() bool                     { return g.paused }
func (g *fakeGate) IsAdmin(c entity.Account) bool      { return g.admins[c] }
func (g *fakeGate) SetPaused(p bool)                   { g.paused = p }
func (g *fakeGate) Authorize(c entity.Account)         { g.listed[c] = true }
func (g *fakeGate) Deauthorize(c entity.Account)       { delete(g.listed, c) }
func (g *fakeGate) Listed(c entity.Account) bool       { return g.listed[c] }

type fakeBank struct {
	balances  map[entity.Account]entity.Money
	transfers int
	fail      error
}

func newFakeBank() *fakeBank {
	return &fakeBank{balances: map[entity.Account]entity.Money{}}
}

func (b *fakeBank) credit(a entity.Account, m entity.Money) {
	b.balances[a] = b.balances[a].Add(m)
}

func (b *fakeBank) Restore(a entity.Account, m entity.Money) {
	b.balances[a] = m
}

func (b *fakeBank) Transfer(_ context.Context, from, to entity.Account, amount entity.Money) error {
	if b.fail != nil {
		return b.fail
	}
	if b.balances[from].Cmp(amount) < 0 {
		return entity.Errorf(entity.ErrInsufficientFunds, "transfer", "%s holds %s", from.Hex(), b.balances[from])
	}
	b.balances[from] = b.balances[from].Sub(amount)
	b.balances[to] = b.balances[to].Add(amount)
	b.transfers++
	return nil
}

type fakeBlocks struct {
	height uint64
}

func (b *fakeBlocks) Height() uint64    { return b.height }
func (b *fakeBlocks) Timestamp() uint64 { return 1_700_000_000 + b.height*15 }

func (b *fakeBlocks) BlockHash(height uint64) common.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return crypto.Keccak256Hash([]byte("test-chain"), buf[:])
}

type fakeJournalRepo struct {
	mu       sync.Mutex
	records  []entity.JournalRecord
	roots    []entity.JournalRoot
	failNext bool
}

func (r *fakeJournalRepo) Append(_ context.Context, records []entity.JournalRecord, roots []entity.JournalRoot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return errors.New("journal unavailable")
	}
	r.records = append(r.records, records...)
	r.roots = append(r.roots, roots...)
	return nil
}

func (r *fakeJournalRepo) Records(context.Context) ([]entity.JournalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.JournalRecord(nil), r.records...), nil
}

func (r *fakeJournalRepo) Roots(context.Context) ([]entity.JournalRoot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.JournalRoot(nil), r.roots...), nil
}

type fakePublisher struct {
	events    []entity.Event
	fail      error
	onPublish func(entity.Event)
}

func (p *fakePublisher) Publish(_ context.Context, ev entity.Event) error {
	if p.onPublish != nil {
		p.onPublish(ev)
	}
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) types() []entity.EventType {
	out := make([]entity.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func acct(n byte) entity.Account {
	return common.BytesToAddress([]byte{0xAA, n})
}
