package entity

import "github.com/ethereum/go-ethereum/common"

const (
	// OracleIndexCount is the number of indices assigned to each oracle.
	OracleIndexCount = 3
	// OracleIndexRange bounds every index to [0, OracleIndexRange).
	OracleIndexRange = 10
)

// Oracle is a registered status validator.
type Oracle struct {
	Account Account                 `json:"account"`
	Indexes [OracleIndexCount]uint8 `json:"indexes"`
}

// Holds reports whether index is one of the oracle's assigned indices.
func (o Oracle) Holds(index uint8) bool {
	for _, i := range o.Indexes {
		if i == index {
			return true
		}
	}
	return false
}

// StatusRequest is an open call for oracles holding Index to report on a flight.
type StatusRequest struct {
	Key         common.Hash                         `json:"key"`
	Index       uint8                               `json:"index"`
	Airline     Account                             `json:"airline"`
	Designator  string                              `json:"designator"`
	ScheduledTo uint64                              `json:"scheduledTo"`
	Requester   Account                             `json:"requester"`
	OpenedAt    uint64                              `json:"openedAt"`
	IsOpen      bool                                `json:"isOpen"`
	Resolved    StatusCode                          `json:"resolvedStatus"`
	Responses   map[StatusCode]map[Account]struct{} `json:"-"`
}

// ResponseCounts summarizes how many oracles reported each code.
func (r *StatusRequest) ResponseCounts() map[StatusCode]int {
	out := make(map[StatusCode]int, len(r.Responses))
	for code, set := range r.Responses {
		out[code] = len(set)
	}
	return out
}
