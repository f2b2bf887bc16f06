package models

import "time"

// FrequencyEntry is one ranked line of a mention report.
type FrequencyEntry struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// Report is the ranked outcome of one aggregation run.
type Report struct {
	RunID               string           `json:"run_id"`
	GeneratedAt         time.Time        `json:"generated_at"`
	Source              string           `json:"source"`
	SubmissionThreshold int              `json:"submission_threshold"`
	CommentThreshold    int              `json:"comment_threshold"`
	DocumentsSeen       int              `json:"documents_seen"`
	DocumentsCounted    int              `json:"documents_counted"`
	DocumentsSkipped    int              `json:"documents_skipped"`
	Distinct            int              `json:"distinct"`
	Entries             []FrequencyEntry `json:"entries"`
	// Partial is set when the run was cancelled before every document was seen.
	Partial bool `json:"partial,omitempty"`
}
