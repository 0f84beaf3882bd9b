package repository

import "github.com/ethereum/go-ethereum/common"

// BlockSource is a monotonic height and timestamp source
type BlockSource interface {
	Height() uint64
	Timestamp() uint64
	// BlockHash returns the entropy value recorded at height.
	BlockHash(height uint64) common.Hash
}
