package contracts

import "time"

// Audit log categories
const (
	CategoryValidation  = "validation"
	CategoryDataFetch   = "data_fetch"
	CategoryCalculation = "calculation"
	CategoryAnalysis    = "analysis"
	CategoryAPI         = "api"
)

// ErrorLogEntry is one write-only audit record
type ErrorLogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Category  string                 `json:"type"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details"`
}
