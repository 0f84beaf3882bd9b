package chainclock

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestHeightFollowsInterval(t *testing.T) {
	genesis := time.Unix(1_700_000_000, 0)
	c := New(genesis, 15*time.Second, "seed")

	c.now = func() time.Time { return genesis.Add(-time.Minute) }
	require.Zero(t, c.Height())

	c.now = func() time.Time { return genesis.Add(151 * time.Second) }
	require.EqualValues(t, 10, c.Height())
	require.EqualValues(t, 1_700_000_151, c.Timestamp())
}

func TestBlockHash(t *testing.T) {
	genesis := time.Unix(1_700_000_000, 0)
	c := New(genesis, time.Second, "seed")
	c.now = func() time.Time { return genesis.Add(100 * time.Second) }

	require.Equal(t, common.Hash{}, c.BlockHash(101))
	require.NotEqual(t, c.BlockHash(99), c.BlockHash(100))
	require.Equal(t, c.BlockHash(50), New(genesis, time.Second, "seed").BlockHash(50))
	require.NotEqual(t, c.BlockHash(50), New(genesis, time.Second, "other").BlockHash(50))
}
