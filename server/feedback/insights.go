package feedback

import (
	"context"
	"sort"

	apierrors "github.com/maiahq/maia/server/internal/errors"
	"github.com/maiahq/maia/store"
)

// Statistics summarizes a user's feedback history.
type Statistics struct {
	Total        int     `json:"total"`
	Correct      int     `json:"correct"`
	Incorrect    int     `json:"incorrect"`
	Implicit     int     `json:"implicit"`
	AccuracyRate float64 `json:"accuracy_rate"`
}

// Insights is the user-facing read on how well extraction is doing and
// whether it is getting better.
type Insights struct {
	Statistics Statistics `json:"statistics"`
	Assessment string     `json:"assessment"`
	Message    string     `json:"message"`
	Trend      string     `json:"trend"`
}

const (
	AssessmentExcellent         = "excellent"
	AssessmentImproving         = "improving"
	AssessmentNeedsFeedback     = "needs_feedback"
	AssessmentRequiresAttention = "requires_attention"

	TrendImproving    = "improving"
	TrendDeclining    = "declining"
	TrendStable       = "stable"
	TrendInsufficient = "insufficient_data"
)

// trendMinRecords is the smallest history that supports a halves comparison.
const trendMinRecords = 4

// insightsWindowSeconds bounds the insights computation to the last 30
// days so the assessment reflects current behavior, not ancient history.
const insightsWindowSeconds = 30 * 24 * 60 * 60

// Statistics computes feedback totals for a user.
func (s *Service) Statistics(ctx context.Context, userID string) (*Statistics, error) {
	records, err := s.store.ListFeedback(ctx, &store.FindFeedback{UserID: &userID})
	if err != nil {
		return nil, apierrors.StoreUnavailable("failed to list feedback", err)
	}
	stats := tally(records)
	return &stats, nil
}

// Insights computes accuracy, an assessment band, and a trend over the
// user's feedback from the last 30 days.
func (s *Service) Insights(ctx context.Context, userID string) (*Insights, error) {
	cutoff := s.now() - insightsWindowSeconds
	records, err := s.store.ListFeedback(ctx, &store.FindFeedback{
		UserID:       &userID,
		CreatedAfter: &cutoff,
	})
	if err != nil {
		return nil, apierrors.StoreUnavailable("failed to list feedback", err)
	}

	stats := tally(records)
	assessment, message := assess(stats)

	return &Insights{
		Statistics: stats,
		Assessment: assessment,
		Message:    message,
		Trend:      trend(records),
	}, nil
}

func tally(records []*store.FeedbackRecord) Statistics {
	stats := Statistics{Total: len(records)}
	for _, record := range records {
		if record.Correct {
			stats.Correct++
		} else {
			stats.Incorrect++
		}
		if record.Implicit {
			stats.Implicit++
		}
	}
	if stats.Total > 0 {
		stats.AccuracyRate = float64(stats.Correct) / float64(stats.Total)
	}
	return stats
}

func assess(stats Statistics) (string, string) {
	if stats.Total == 0 {
		return AssessmentNeedsFeedback,
			"No feedback yet. Confirm or reject a few extracted tasks to start tuning."
	}
	switch {
	case stats.AccuracyRate >= 0.9:
		return AssessmentExcellent,
			"Task extraction is performing excellently for you."
	case stats.AccuracyRate >= 0.7:
		return AssessmentImproving,
			"Task extraction is doing well and learning from your feedback."
	case stats.AccuracyRate >= 0.5:
		return AssessmentNeedsFeedback,
			"Task extraction is adapting. More feedback will speed it up."
	default:
		return AssessmentRequiresAttention,
			"Task extraction is missing the mark. Recent corrections are being applied."
	}
}

// trend compares accuracy between the earlier and later halves of the
// history.
func trend(records []*store.FeedbackRecord) string {
	if len(records) < trendMinRecords {
		return TrendInsufficient
	}

	ordered := make([]*store.FeedbackRecord, len(records))
	copy(ordered, records)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].CreatedTs < ordered[j].CreatedTs
	})

	mid := len(ordered) / 2
	early := accuracy(ordered[:mid])
	late := accuracy(ordered[mid:])

	switch {
	case late-early > 0.05:
		return TrendImproving
	case early-late > 0.05:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func accuracy(records []*store.FeedbackRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	correct := 0
	for _, record := range records {
		if record.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(records))
}
