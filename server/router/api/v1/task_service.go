package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apierrors "github.com/maiahq/maia/server/internal/errors"
	"github.com/maiahq/maia/store"
)

type extractRequest struct {
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	SourceEmailID string `json:"source_email_id"`
}

type extractResponse struct {
	Tasks []*store.Task `json:"tasks"`
}

// ExtractTasks pulls action items from an email and persists them as
// autonomous pending tasks.
func (s *APIV1Service) ExtractTasks(c echo.Context) error {
	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.InvalidArgument("malformed request body"))
	}
	if req.Subject == "" && req.Body == "" {
		return writeError(c, apierrors.InvalidArgument("email subject or body is required"))
	}

	uid := userID(c)
	ctx := s.requestContext(c, "action_extraction", uid)
	tasks, err := s.Pipeline.ExtractTasks(ctx, uid, req.Subject, req.Body, req.SourceEmailID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, extractResponse{Tasks: tasks})
}

// ListTasks returns the user's tasks, optionally filtered by status.
func (s *APIV1Service) ListTasks(c echo.Context) error {
	uid := userID(c)
	find := &store.FindTask{UserID: &uid}
	if status := c.QueryParam("status"); status != "" {
		taskStatus := store.TaskStatus(status)
		find.Status = &taskStatus
	}

	tasks, err := s.Store.ListTasks(c.Request().Context(), find)
	if err != nil {
		return writeError(c, apierrors.StoreUnavailable("failed to list tasks", err))
	}
	return c.JSON(http.StatusOK, extractResponse{Tasks: tasks})
}

type taskStatsResponse struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	Autonomous int            `json:"autonomous"`
}

// TaskStats reports the user's task counts by status and origin.
func (s *APIV1Service) TaskStats(c echo.Context) error {
	uid := userID(c)
	tasks, err := s.Store.ListTasks(c.Request().Context(), &store.FindTask{UserID: &uid})
	if err != nil {
		return writeError(c, apierrors.StoreUnavailable("failed to list tasks", err))
	}

	stats := taskStatsResponse{Total: len(tasks), ByStatus: make(map[string]int)}
	for _, task := range tasks {
		stats.ByStatus[string(task.Status)]++
		if task.CreationMethod == store.CreationMethodAutonomous {
			stats.Autonomous++
		}
	}
	return c.JSON(http.StatusOK, stats)
}

// DeleteTask removes a task. Deleting an autonomously created task counts
// as implicit negative feedback on the extraction.
func (s *APIV1Service) DeleteTask(c echo.Context) error {
	if err := s.Feedback.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type feedbackRequest struct {
	Correct  bool   `json:"correct"`
	Comments string `json:"comments"`
}

// SubmitFeedback records the user's verdict on a task. The first verdict
// per task wins; later submissions conflict.
func (s *APIV1Service) SubmitFeedback(c echo.Context) error {
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.InvalidArgument("malformed request body"))
	}

	if err := s.Feedback.Submit(c.Request().Context(), c.Param("id"), userID(c), req.Correct, req.Comments); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ArchiveTask marks a task as incorrectly extracted without deleting it.
func (s *APIV1Service) ArchiveTask(c echo.Context) error {
	if err := s.Feedback.ArchiveIncorrect(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
