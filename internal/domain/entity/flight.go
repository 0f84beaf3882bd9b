package entity

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// StatusCode is the real-world outcome of a flight.
type StatusCode uint8

const (
	StatusUnknown       StatusCode = 0
	StatusOnTime        StatusCode = 10
	StatusLateAirline   StatusCode = 20
	StatusLateWeather   StatusCode = 30
	StatusLateTechnical StatusCode = 40
	StatusLateOther     StatusCode = 50
)

func (c StatusCode) String() string {
	switch c {
	case StatusUnknown:
		return "unknown"
	case StatusOnTime:
		return "on_time"
	case StatusLateAirline:
		return "late_airline"
	case StatusLateWeather:
		return "late_weather"
	case StatusLateTechnical:
		return "late_technical"
	case StatusLateOther:
		return "late_other"
	default:
		return fmt.Sprintf("status(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the defined codes.
func (c StatusCode) Valid() bool {
	switch c {
	case StatusUnknown, StatusOnTime, StatusLateAirline, StatusLateWeather, StatusLateTechnical, StatusLateOther:
		return true
	}
	return false
}

// TriggersPayout reports whether the code signals an airline-caused delay.
func (c StatusCode) TriggersPayout() bool {
	return c == StatusLateAirline
}

// Flight is a scheduled flight issued by a funded airline.
type Flight struct {
	Key         common.Hash `json:"key"`
	Airline     Account     `json:"airline"`
	Designator  string      `json:"designator"`
	CreatedAt   uint64      `json:"createdAt"`
	ScheduledTo uint64      `json:"scheduledTo"`
	Status      StatusCode  `json:"status"`
}

// Resolved reports whether the status has left Unknown.
func (f Flight) Resolved() bool {
	return f.Status != StatusUnknown
}

// FlightKey derives the identity of a flight as
// keccak256(airline ‖ designator ‖ uint256(scheduledTo)).
func FlightKey(airline Account, designator string, scheduledTo uint64) common.Hash {
	ts := uint256.NewInt(scheduledTo).Bytes32()
	return crypto.Keccak256Hash(airline.Bytes(), []byte(designator), ts[:])
}

// RequestKey derives the identity of an oracle status request as
// keccak256(uint8(index) ‖ airline ‖ designator ‖ uint256(scheduledTo)).
func RequestKey(index uint8, airline Account, designator string, scheduledTo uint64) common.Hash {
	ts := uint256.NewInt(scheduledTo).Bytes32()
	return crypto.Keccak256Hash([]byte{index}, airline.Bytes(), []byte(designator), ts[:])
}
