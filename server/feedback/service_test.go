package feedback

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/maiahq/maia/server/internal/errors"
	"github.com/maiahq/maia/store"
	"github.com/maiahq/maia/store/teststore"
)

func testService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st := store.New(teststore.New(), nil)
	svc := NewService(st, slog.Default())
	// Deterministic, strictly increasing timestamps.
	var tick int64
	svc.now = func() int64 {
		tick++
		return tick
	}
	return svc, st
}

func seedTask(t *testing.T, st *store.Store, id string, method store.CreationMethod) *store.Task {
	t.Helper()
	task, err := st.CreateTask(context.Background(), &store.Task{
		ID:             id,
		UserID:         "u1",
		Description:    "Send Q3 report to " + id,
		Status:         store.TaskStatusPending,
		CreationMethod: method,
		CreatedTs:      1,
	})
	require.NoError(t, err)
	return task
}

func TestSubmit_FirstWins(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	seedTask(t, st, "t1", store.CreationMethodAutonomous)

	require.NoError(t, svc.Submit(ctx, "t1", "u1", true, ""))

	// The second verdict is rejected even though it differs.
	err := svc.Submit(ctx, "t1", "u1", false, "")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeFeedbackExists))

	record, err := st.GetFeedback(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.Correct)
	assert.False(t, record.Implicit)
}

func TestSubmit_PersistsComments(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	seedTask(t, st, "t1", store.CreationMethodAutonomous)

	require.NoError(t, svc.Submit(ctx, "t1", "u1", false, "this is a newsletter, not a task"))

	record, err := st.GetFeedback(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "this is a newsletter, not a task", record.Comments)
}

func TestSubmit_UnknownTask(t *testing.T) {
	svc, _ := testService(t)

	err := svc.Submit(context.Background(), "missing", "u1", true, "")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeNotFound))
}

func TestDeleteTask_AutonomousRecordsImplicitNegative(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	seedTask(t, st, "t1", store.CreationMethodAutonomous)

	require.NoError(t, svc.DeleteTask(ctx, "t1"))

	task, err := st.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, task)

	record, err := st.GetFeedback(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.False(t, record.Correct)
	assert.True(t, record.Implicit)
	assert.Equal(t, "User manually deleted autonomous task", record.Comments)
	assert.Contains(t, record.TaskDescription, "Send Q3 report")
}

func TestDeleteTask_ManualLeavesNoFeedback(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	seedTask(t, st, "t1", store.CreationMethodManual)

	require.NoError(t, svc.DeleteTask(ctx, "t1"))

	record, err := st.GetFeedback(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestDeleteTask_ExplicitVerdictKeepsPriority(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	seedTask(t, st, "t1", store.CreationMethodAutonomous)

	require.NoError(t, svc.Submit(ctx, "t1", "u1", true, ""))
	require.NoError(t, svc.DeleteTask(ctx, "t1"))

	// The earlier explicit positive verdict survives the delete.
	record, err := st.GetFeedback(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.Correct)
	assert.False(t, record.Implicit)
}

func TestArchiveIncorrect(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	seedTask(t, st, "t1", store.CreationMethodAutonomous)

	require.NoError(t, svc.ArchiveIncorrect(ctx, "t1"))

	task, err := st.GetTask(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, store.TaskStatusArchivedIncorrect, task.Status)
}

func TestNegativeExamples_RecentFirstAndDeduplicated(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()

	descriptions := []string{"review slides", "book flights", "review slides", "call vendor"}
	for i, desc := range descriptions {
		id := string(rune('a' + i))
		_, err := st.CreateTask(ctx, &store.Task{
			ID: id, UserID: "u1", Description: desc,
			Status: store.TaskStatusPending, CreationMethod: store.CreationMethodAutonomous,
			CreatedTs: 1,
		})
		require.NoError(t, err)
		require.NoError(t, svc.Submit(ctx, id, "u1", false, ""))
	}

	examples, err := svc.NegativeExamples(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"call vendor", "review slides", "book flights"}, examples)
}

func TestExamples_CacheInvalidatedOnNewFeedback(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()

	seedTask(t, st, "t1", store.CreationMethodAutonomous)
	require.NoError(t, svc.Submit(ctx, "t1", "u1", false, ""))

	first, err := svc.NegativeExamples(ctx, "u1", 5)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// New feedback must show up despite the warm cache.
	_, err = st.CreateTask(ctx, &store.Task{
		ID: "t2", UserID: "u1", Description: "ping legal team",
		Status: store.TaskStatusPending, CreationMethod: store.CreationMethodAutonomous,
		CreatedTs: 1,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Submit(ctx, "t2", "u1", false, ""))

	second, err := svc.NegativeExamples(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Equal(t, "ping legal team", second[0])
}

func TestExamples_LimitAndPolarity(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		id := string(rune('a' + i))
		_, err := st.CreateTask(ctx, &store.Task{
			ID: id, UserID: "u1", Description: "task " + id,
			Status: store.TaskStatusPending, CreationMethod: store.CreationMethodAutonomous,
			CreatedTs: 1,
		})
		require.NoError(t, err)
		require.NoError(t, svc.Submit(ctx, id, "u1", i%2 == 0, ""))
	}

	negatives, err := svc.NegativeExamples(ctx, "u1", 3)
	require.NoError(t, err)
	assert.Len(t, negatives, 3)

	positives, err := svc.PositiveExamples(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, positives, 4)

	for _, p := range positives {
		assert.NotContains(t, negatives, p)
	}
}
