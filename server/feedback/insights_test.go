package feedback

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maiahq/maia/store"
)

func seedVerdicts(t *testing.T, svc *Service, st *store.Store, verdicts []bool) {
	t.Helper()
	ctx := context.Background()
	for i, correct := range verdicts {
		id := fmt.Sprintf("task-%03d", i)
		_, err := st.CreateTask(ctx, &store.Task{
			ID: id, UserID: "u1", Description: "desc " + id,
			Status: store.TaskStatusPending, CreationMethod: store.CreationMethodAutonomous,
			CreatedTs: 1,
		})
		require.NoError(t, err)
		require.NoError(t, svc.Submit(ctx, id, "u1", correct, ""))
	}
}

func TestStatistics(t *testing.T) {
	svc, st := testService(t)
	seedVerdicts(t, svc, st, []bool{true, true, false, true})

	stats, err := svc.Statistics(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Correct)
	assert.Equal(t, 1, stats.Incorrect)
	assert.Zero(t, stats.Implicit)
	assert.InDelta(t, 0.75, stats.AccuracyRate, 1e-9)
}

func TestStatistics_CountsImplicit(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	seedTask(t, st, "t1", store.CreationMethodAutonomous)
	require.NoError(t, svc.DeleteTask(ctx, "t1"))

	stats, err := svc.Statistics(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Implicit)
	assert.Zero(t, stats.AccuracyRate)
}

func TestInsights_AssessmentBands(t *testing.T) {
	tests := []struct {
		name       string
		verdicts   []bool
		assessment string
	}{
		{"excellent at 90 percent", []bool{true, true, true, true, true, true, true, true, true, false}, AssessmentExcellent},
		{"improving at 70 percent", []bool{true, true, true, true, true, true, true, false, false, false}, AssessmentImproving},
		{"needs feedback at 50 percent", []bool{true, false, true, false}, AssessmentNeedsFeedback},
		{"requires attention below 50 percent", []bool{true, false, false, false}, AssessmentRequiresAttention},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := testService(t)
			seedVerdicts(t, svc, st, tt.verdicts)

			insights, err := svc.Insights(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.assessment, insights.Assessment)
			assert.NotEmpty(t, insights.Message)
		})
	}
}

func TestInsights_NoFeedbackYet(t *testing.T) {
	svc, _ := testService(t)

	insights, err := svc.Insights(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, AssessmentNeedsFeedback, insights.Assessment)
	assert.Equal(t, TrendInsufficient, insights.Trend)
	assert.Zero(t, insights.Statistics.Total)
}

func TestInsights_WindowExcludesOldFeedback(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()

	now := int64(10_000_000_000)
	svc.now = func() int64 { return now }

	records := []struct {
		taskID    string
		correct   bool
		createdTs int64
	}{
		{"old-1", false, now - insightsWindowSeconds - 100},
		{"old-2", false, now - insightsWindowSeconds - 50},
		{"recent", true, now - 10},
	}
	for _, r := range records {
		_, err := st.CreateFeedback(ctx, &store.FeedbackRecord{
			TaskID:          r.taskID,
			UserID:          "u1",
			Correct:         r.correct,
			TaskDescription: "desc " + r.taskID,
			CreatedTs:       r.createdTs,
		})
		require.NoError(t, err)
	}

	insights, err := svc.Insights(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, insights.Statistics.Total)
	assert.InDelta(t, 1.0, insights.Statistics.AccuracyRate, 1e-9)

	// Statistics stays all-time.
	stats, err := svc.Statistics(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
}

func TestInsights_Trend(t *testing.T) {
	tests := []struct {
		name     string
		verdicts []bool
		trend    string
	}{
		{"improving", []bool{false, false, false, true, true, true}, TrendImproving},
		{"declining", []bool{true, true, true, false, false, false}, TrendDeclining},
		{"stable", []bool{true, false, true, true, false, true}, TrendStable},
		{"too little history", []bool{true, false}, TrendInsufficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := testService(t)
			seedVerdicts(t, svc, st, tt.verdicts)

			insights, err := svc.Insights(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.trend, insights.Trend)
		})
	}
}
