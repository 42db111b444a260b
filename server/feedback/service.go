// Package feedback records user verdicts on extracted tasks and turns them
// into few-shot bias examples and accuracy insights.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maiahq/maia/server/internal/cache"
	apierrors "github.com/maiahq/maia/server/internal/errors"
	"github.com/maiahq/maia/store"
)

const (
	// exampleCacheTTL bounds how stale the bias examples served to the
	// extraction prompt can be after new feedback arrives on another node.
	exampleCacheTTL = 5 * time.Minute

	// DefaultExampleLimit caps how many examples flow into a prompt.
	DefaultExampleLimit = 5

	// implicitDeleteComment annotates feedback inferred from a deletion.
	implicitDeleteComment = "User manually deleted autonomous task"
)

// Service is the feedback store: idempotent submission, implicit feedback
// on deletion, and example/insight queries for the learning loop.
type Service struct {
	store  *store.Store
	cache  *cache.LRUCache
	logger *slog.Logger
	now    func() int64
}

// NewService creates a feedback service backed by the given store.
func NewService(s *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		cache:  cache.NewLRUCache(256, exampleCacheTTL),
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// Submit records a verdict for a task, with an optional free-form comment.
// The first submission wins: a second verdict for the same task is
// rejected, whatever its value.
func (s *Service) Submit(ctx context.Context, taskID, userID string, correct bool, comments string) error {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return apierrors.StoreUnavailable("failed to load task", err)
	}
	if task == nil {
		return apierrors.NotFound(fmt.Sprintf("task not found: %s", taskID))
	}

	return s.record(ctx, &store.FeedbackRecord{
		TaskID:          taskID,
		UserID:          userID,
		Correct:         correct,
		Comments:        comments,
		TaskDescription: task.Description,
		SourceEmailID:   task.SourceEmailID,
		CreatedTs:       s.now(),
	})
}

// DeleteTask removes a task. Deleting a task the pipeline created on its
// own counts as telling the assistant it was wrong, so an implicit negative
// verdict is recorded before the delete. Feedback recording is best-effort:
// a prior explicit verdict keeps priority and the delete still proceeds.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return apierrors.StoreUnavailable("failed to load task", err)
	}
	if task == nil {
		return apierrors.NotFound(fmt.Sprintf("task not found: %s", taskID))
	}

	if task.CreationMethod == store.CreationMethodAutonomous {
		err := s.record(ctx, &store.FeedbackRecord{
			TaskID:          taskID,
			UserID:          task.UserID,
			Correct:         false,
			Implicit:        true,
			Comments:        implicitDeleteComment,
			TaskDescription: task.Description,
			SourceEmailID:   task.SourceEmailID,
			CreatedTs:       s.now(),
		})
		if err != nil && !apierrors.IsCode(err, apierrors.ErrCodeFeedbackExists) {
			s.logger.Warn("implicit feedback not recorded",
				"task_id", taskID,
				"error", err)
		}
	}

	if err := s.store.DeleteTask(ctx, &store.DeleteTask{ID: taskID}); err != nil {
		return apierrors.StoreUnavailable("failed to delete task", err)
	}
	return nil
}

// ArchiveIncorrect marks a task as removed-for-being-wrong without deleting
// it, keeping the row available for later inspection.
func (s *Service) ArchiveIncorrect(ctx context.Context, taskID string) error {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return apierrors.StoreUnavailable("failed to load task", err)
	}
	if task == nil {
		return apierrors.NotFound(fmt.Sprintf("task not found: %s", taskID))
	}

	status := store.TaskStatusArchivedIncorrect
	now := s.now()
	if err := s.store.UpdateTask(ctx, &store.UpdateTask{
		ID:        taskID,
		Status:    &status,
		UpdatedTs: &now,
	}); err != nil {
		return apierrors.StoreUnavailable("failed to archive task", err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, create *store.FeedbackRecord) error {
	_, err := s.store.CreateFeedback(ctx, create)
	if err != nil {
		if errors.Is(err, store.ErrFeedbackExists) {
			return apierrors.FeedbackExists(create.TaskID)
		}
		return apierrors.StoreUnavailable("failed to record feedback", err)
	}

	s.cache.Invalidate(exampleCacheKeyPrefix(create.UserID) + "*")
	s.logger.Info("feedback recorded",
		"task_id", create.TaskID,
		"user_id", create.UserID,
		"correct", create.Correct,
		"implicit", create.Implicit)
	return nil
}

// NegativeExamples returns recent task descriptions the user rejected,
// newest first and deduplicated. Served through a short-TTL cache; staleness
// within the TTL is acceptable for prompt bias.
func (s *Service) NegativeExamples(ctx context.Context, userID string, limit int) ([]string, error) {
	return s.examples(ctx, userID, false, limit)
}

// PositiveExamples returns recent task descriptions the user confirmed,
// newest first and deduplicated.
func (s *Service) PositiveExamples(ctx context.Context, userID string, limit int) ([]string, error) {
	return s.examples(ctx, userID, true, limit)
}

func (s *Service) examples(ctx context.Context, userID string, correct bool, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultExampleLimit
	}

	key := fmt.Sprintf("%scorrect=%t:limit=%d", exampleCacheKeyPrefix(userID), correct, limit)
	if raw, ok := s.cache.Get(key); ok {
		var cached []string
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	// Over-fetch so deduplication still fills the limit.
	fetchLimit := limit * 4
	records, err := s.store.ListFeedback(ctx, &store.FindFeedback{
		UserID:  &userID,
		Correct: &correct,
		Limit:   &fetchLimit,
	})
	if err != nil {
		return nil, apierrors.StoreUnavailable("failed to list feedback", err)
	}

	seen := make(map[string]struct{}, len(records))
	examples := make([]string, 0, limit)
	for _, record := range records {
		if record.TaskDescription == "" {
			continue
		}
		if _, ok := seen[record.TaskDescription]; ok {
			continue
		}
		seen[record.TaskDescription] = struct{}{}
		examples = append(examples, record.TaskDescription)
		if len(examples) == limit {
			break
		}
	}

	if raw, err := json.Marshal(examples); err == nil {
		s.cache.Set(key, raw, exampleCacheTTL)
	}
	return examples, nil
}

func exampleCacheKeyPrefix(userID string) string {
	return "feedback:examples:" + userID + ":"
}
