package dto

import "github.com/spec-kit/sla-tracker/internal/service"

// IngestionPayload wraps the raw rows of one batch.
type IngestionPayload struct {
	Rows []service.IngestionRow `json:"rows"`
}

// IngestionReportResponse mirrors the per-row outcome report.
type IngestionReportResponse struct {
	TotalRows    int                `json:"totalRows"`
	SuccessCount int                `json:"successCount"`
	ErrorCount   int                `json:"errorCount"`
	Errors       []service.RowError `json:"errors"`
}
