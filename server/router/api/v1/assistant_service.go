package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	apierrors "github.com/maiahq/maia/server/internal/errors"
	"github.com/maiahq/maia/server/internal/observability"
	"github.com/maiahq/maia/server/prompt"
)

type emailPayload struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (e emailPayload) toPrompt() prompt.Email {
	return prompt.Email{Sender: e.Sender, Subject: e.Subject, Body: e.Body}
}

type classifyRequest struct {
	Email emailPayload `json:"email"`
}

// Classify analyzes one email and returns its urgency verdict.
func (s *APIV1Service) Classify(c echo.Context) error {
	var req classifyRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.InvalidArgument("malformed request body"))
	}
	if req.Email.Subject == "" && req.Email.Body == "" {
		return writeError(c, apierrors.InvalidArgument("email subject or body is required"))
	}

	uid := userID(c)
	ctx := s.requestContext(c, "classification", uid)
	result, err := s.Pipeline.Classify(ctx, uid, req.Email.toPrompt())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type summarizeRequest struct {
	Emails []emailPayload `json:"emails"`
	Style  string         `json:"style"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize produces a digest of the submitted emails.
func (s *APIV1Service) Summarize(c echo.Context) error {
	var req summarizeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.InvalidArgument("malformed request body"))
	}

	emails := make([]prompt.Email, 0, len(req.Emails))
	for _, email := range req.Emails {
		emails = append(emails, email.toPrompt())
	}

	ctx := s.requestContext(c, "summarization", userID(c))
	summary, err := s.Pipeline.Summarize(ctx, emails, prompt.SummaryStyle(req.Style))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, summarizeResponse{Summary: summary})
}

type repliesRequest struct {
	EmailContent  string   `json:"email_content"`
	StyleExamples []string `json:"style_examples"`
}

type repliesResponse struct {
	Replies []string `json:"replies"`
}

// GenerateReplies drafts reply suggestions for an email.
func (s *APIV1Service) GenerateReplies(c echo.Context) error {
	var req repliesRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.InvalidArgument("malformed request body"))
	}

	ctx := s.requestContext(c, "response_generation", userID(c))
	replies, err := s.Pipeline.GenerateReplies(ctx, req.EmailContent, req.StyleExamples)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, repliesResponse{Replies: replies})
}

type agendaRequest struct {
	Meetings []string `json:"meetings"`
}

type agendaResponse struct {
	Agenda string `json:"agenda"`
}

// SynthesizeAgenda builds a daily agenda from pending tasks and meetings.
func (s *APIV1Service) SynthesizeAgenda(c echo.Context) error {
	var req agendaRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.InvalidArgument("malformed request body"))
	}

	uid := userID(c)
	ctx := s.requestContext(c, "reasoning", uid)
	agenda, err := s.Pipeline.SynthesizeAgenda(ctx, uid, req.Meetings)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, agendaResponse{Agenda: agenda})
}

// requestContext attaches a per-request logging context so downstream
// layers tag their logs with the request ID, user, and category.
func (s *APIV1Service) requestContext(c echo.Context, category, uid string) context.Context {
	reqCtx := observability.NewRequestContext(s.logger, category, uid)
	return observability.WithRequestContext(c.Request().Context(), reqCtx)
}
