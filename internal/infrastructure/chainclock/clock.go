package chainclock

import (
	"encoding/binary"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"flightsurety-service/internal/domain/repository"
)

// Clock derives block heights from wall time: one block per interval since
// genesis. Block hashes are keccak256(seed ‖ height), so they are stable
// across restarts with the same seed.
type Clock struct {
	genesis  time.Time
	interval time.Duration
	seed     []byte
	now      func() time.Time
}

var _ repository.BlockSource = (*Clock)(nil)

func New(genesis time.Time, interval time.Duration, seed string) *Clock {
	return &Clock{
		genesis:  genesis,
		interval: interval,
		seed:     []byte(seed),
		now:      time.Now,
	}
}

func (c *Clock) Height() uint64 {
	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / c.interval)
}

func (c *Clock) Timestamp() uint64 {
	ts := c.now().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// BlockHash returns the zero hash for heights not yet reached.
func (c *Clock) BlockHash(height uint64) common.Hash {
	if height > c.Height() {
		return common.Hash{}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return crypto.Keccak256Hash(c.seed, buf[:])
}
