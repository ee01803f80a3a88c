package domain

import "time"

// RoleTag categorizes the originating role of a request. Name is the
// natural key used during ingestion.
type RoleTag struct {
	ID          string
	Name        string
	TechBlock   string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
