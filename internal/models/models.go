package models

import "time"

// SummaryRecord is one stored summarization.
type SummaryRecord struct {
	ID           int64
	Dialogue     string
	Method       string
	MaxNewTokens int64
	Model        string
	Summary      string
	CreatedAt    time.Time
}
