package dto

// SlaPolicyResponse mirrors one SLA policy.
type SlaPolicyResponse struct {
	ID             string `json:"id"`
	Code           string `json:"code"`
	ThresholdDays  int    `json:"threshold_days"`
	RequestTypeTag string `json:"request_type_tag"`
	Active         bool   `json:"active"`
}

// PersonResponse mirrors one responsible party.
type PersonResponse struct {
	ID             string `json:"id"`
	FullName       string `json:"full_name"`
	DocumentID     string `json:"document_id"`
	CorporateEmail string `json:"corporate_email"`
	Status         string `json:"status"`
}

// RoleTagResponse mirrors one role tag.
type RoleTagResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TechBlock   string `json:"tech_block"`
	Description string `json:"description,omitempty"`
}
