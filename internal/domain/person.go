package domain

import "time"

// PersonStatus enumerates lifecycle states for responsible parties.
type PersonStatus string

const (
	PersonStatusActive   PersonStatus = "ACTIVE"
	PersonStatusInactive PersonStatus = "INACTIVE"
)

// Person is the party responsible for attending a request. DocumentID is
// the natural key used during ingestion.
type Person struct {
	ID             string
	FullName       string
	DocumentID     string
	CorporateEmail string
	Status         PersonStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
