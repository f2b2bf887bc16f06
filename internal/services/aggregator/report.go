package aggregator

import (
	"time"

	"github.com/google/uuid"

	"TickerPulse/internal/domain/models"
)

// BuildReport snapshots the tally into a Report holding the top k entries.
func (a *Aggregator) BuildReport(t *Tally, source string, k int) *models.Report {
	return &models.Report{
		RunID:               uuid.NewString(),
		GeneratedAt:         time.Now().UTC(),
		Source:              source,
		SubmissionThreshold: a.subThreshold,
		CommentThreshold:    a.commentThreshold,
		DocumentsSeen:       t.DocumentsSeen(),
		DocumentsCounted:    t.DocumentsCounted(),
		DocumentsSkipped:    t.DocumentsSkipped(),
		Distinct:            t.Distinct(),
		Entries:             t.Top(k),
	}
}
