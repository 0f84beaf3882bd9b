package entity

import "time"

// EventType names a notification emitted by a committed ledger call.
type EventType string

const (
	EventAirlineCreated     EventType = "AirlineCreated"
	EventAirlineApproved    EventType = "AirlineApproved"
	EventAirlineVoted       EventType = "AirlineVoted"
	EventAirlineRejected    EventType = "AirlineRejected"
	EventAirlineFunded      EventType = "AirlineFunded"
	EventFlightRegistered   EventType = "FlightRegistered"
	EventInsurancePurchased EventType = "InsurancePurchased"
	EventOracleRegistered   EventType = "OracleRegistered"
	EventOracleRequest      EventType = "OracleRequest"
	EventOracleReport       EventType = "OracleReport"
	EventFlightStatusInfo   EventType = "FlightStatusInfo"
	EventFlightUpdated      EventType = "FlightUpdated"
	EventInsureesCredited   EventType = "InsureesCredited"
	EventCreditWithdrawn    EventType = "CreditWithdrawn"
	EventOperationalChanged EventType = "OperationalChanged"
	EventCallerAuthorized   EventType = "CallerAuthorized"
	EventCallerDeauthorized EventType = "CallerDeauthorized"
)

// Event is a public notification and the unit of state change: replaying
// the committed events in order rebuilds the ledger state.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Height     uint64            `json:"height"`
	Timestamp  uint64            `json:"timestamp"`
	Attributes map[string]string `json:"attributes"`
}

// JournalRecord is one hash-chained entry of the ledger journal. Payload is
// the canonical encoding of the event the hash was computed over.
type JournalRecord struct {
	Index     int64     `json:"index" bson:"index"`
	EventID   string    `json:"eventId" bson:"eventId"`
	EventType EventType `json:"eventType" bson:"eventType"`
	Payload   string    `json:"payload" bson:"payload"`
	PrevHash  string    `json:"prevHash" bson:"prevHash"`
	Hash      string    `json:"hash" bson:"hash"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// JournalRoot seals a batch of journal records under a Merkle root.
type JournalRoot struct {
	FromIndex int64     `json:"fromIndex" bson:"fromIndex"`
	ToIndex   int64     `json:"toIndex" bson:"toIndex"`
	RootHash  string    `json:"rootHash" bson:"rootHash"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// VerifyReport summarizes a journal verification.
type VerifyReport struct {
	OK           bool     `json:"ok"`
	Total        int64    `json:"total"`
	LastIndex    int64    `json:"lastIndex"`
	LastHash     string   `json:"lastHash"`
	RootsChecked int      `json:"rootsChecked"`
	Errors       []string `json:"errors"`
}
