package threads

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/internal/utils"
)

// Summary aggregates one conversation thread
type Summary struct {
	ThreadID     string     `json:"threadId"`
	DealID       string     `json:"dealId"`
	EmailCount   int        `json:"emailCount"`
	FirstEmail   *time.Time `json:"firstEmail,omitempty"`
	LastEmail    *time.Time `json:"lastEmail,omitempty"`
	Participants []string   `json:"participants"`
	DurationDays int        `json:"durationDays"`
}

// GetThreadSummary aggregates the entries of a thread into counts,
// time bounds and a participant list
func (t *Tracker) GetThreadSummary(ctx context.Context, threadID string) (*Summary, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ThreadTracker.GetThreadSummary")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("thread_id", threadID)

	entries, err := t.threadRepository.ListByThreadID(ctx, threadID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	summary := &Summary{
		ThreadID:   threadID,
		EmailCount: len(entries),
	}

	var participants []string
	for _, entry := range entries {
		if summary.DealID == "" && entry.DealID != "" {
			summary.DealID = entry.DealID
		}
		if entry.FromAddress != "" {
			participants = append(participants, entry.FromAddress)
		}
		participants = append(participants, entry.Participants...)
		if entry.SentAt == nil {
			continue
		}
		if summary.FirstEmail == nil || entry.SentAt.Before(*summary.FirstEmail) {
			summary.FirstEmail = entry.SentAt
		}
		if summary.LastEmail == nil || entry.SentAt.After(*summary.LastEmail) {
			summary.LastEmail = entry.SentAt
		}
	}
	summary.Participants = utils.UniqueStrings(participants)

	if summary.FirstEmail != nil && summary.LastEmail != nil {
		summary.DurationDays = int(summary.LastEmail.Sub(*summary.FirstEmail).Hours() / 24)
	}

	return summary, nil
}
