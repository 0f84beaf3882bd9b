package entity

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Account identifies a party on the ledger. It is issued by the
// authentication substrate and never created by the ledger itself.
type Account = common.Address

// ZeroAccount is the empty account.
var ZeroAccount = Account{}

// ParseAccount parses a 0x-prefixed hex address.
func ParseAccount(s string) (Account, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return ZeroAccount, fmt.Errorf("%w: invalid account %q", ErrInvalidArgument, s)
	}
	return common.HexToAddress(s), nil
}
