package usecase

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/internal/domain/repository"
)

// indexDrawer derives oracle indices from recent block hashes, the caller
// and a rolling nonce. The output is predictable to anyone who can read the
// same block hashes; it only needs to spread oracles across indices.
type indexDrawer struct {
	blocks repository.BlockSource
	nonce  uint64
}

// draw returns one index for account using nonce, and the nonce to use next.
func (d *indexDrawer) draw(account entity.Account, nonce uint64) (uint8, uint64) {
	height := d.blocks.Height()
	var seedHeight uint64
	if height > nonce {
		seedHeight = height - nonce
	}
	entropy := d.blocks.BlockHash(seedHeight)

	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)

	h := sha3.NewLegacyKeccak256()
	h.Write(nonceBytes[:])
	h.Write(entropy.Bytes())
	h.Write(account.Bytes())

	var v uint256.Int
	v.SetBytes(h.Sum(nil))
	v.Mod(&v, uint256.NewInt(entity.OracleIndexRange))

	nonce++
	if nonce > nonceWrap {
		nonce = 0
	}
	return uint8(v.Uint64()), nonce
}

// one draws a single index starting from the current nonce.
func (d *indexDrawer) one(account entity.Account) (uint8, uint64) {
	return d.draw(account, d.nonce)
}

// distinct draws OracleIndexCount pairwise distinct indices. Redraws are
// bounded; past the bound the next unused index is taken.
func (d *indexDrawer) distinct(account entity.Account) ([entity.OracleIndexCount]uint8, uint64) {
	var (
		out   [entity.OracleIndexCount]uint8
		seen  [entity.OracleIndexRange]bool
		nonce = d.nonce
	)
	for i, attempts := 0, 0; i < len(out); attempts++ {
		var idx uint8
		idx, nonce = d.draw(account, nonce)
		if seen[idx] && attempts >= maxDrawAttempts {
			for seen[idx] {
				idx = (idx + 1) % entity.OracleIndexRange
			}
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out[i] = idx
		i++
	}
	return out, nonce
}
