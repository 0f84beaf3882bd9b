package entity

import "github.com/ethereum/go-ethereum/common"

// Policy is a single insurance purchase.
type Policy struct {
	Amount Money `json:"amount"`
}

// Insurance aggregates the policies a passenger holds on one flight.
type Insurance struct {
	Flight    common.Hash `json:"flight"`
	Passenger Account     `json:"passenger"`
	Policies  []Policy    `json:"policies"`
	Total     Money       `json:"total"`
}
