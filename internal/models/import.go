package models

// ImportSummary reports the outcome of one reconciliation run.
type ImportSummary struct {
	DeletedCount int    `json:"deleted_count"`
	ParsedCount  int    `json:"parsed_count"`
	CreatedCount int    `json:"created_count"`
	SkippedCount int    `json:"skipped_count"`
	Message      string `json:"message"`
	Success      bool   `json:"success"`
}
