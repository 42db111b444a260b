package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/maiahq/maia/server/feedback"
	"github.com/maiahq/maia/server/finops"
	apierrors "github.com/maiahq/maia/server/internal/errors"
	"github.com/maiahq/maia/server/internal/observability"
	"github.com/maiahq/maia/server/llm"
	"github.com/maiahq/maia/server/prompt"
	"github.com/maiahq/maia/server/routing"
	"github.com/maiahq/maia/store"
)

// Pipeline wires routing, retry, budget accounting, and the feedback bias
// loop into the user-facing operations.
type Pipeline struct {
	router   *routing.Router
	executor *llm.Executor
	ledger   *finops.Ledger
	feedback *feedback.Service
	store    *store.Store
	logger   *slog.Logger
}

// Options configures a Pipeline.
type Options struct {
	Router   *routing.Router
	Executor *llm.Executor
	Ledger   *finops.Ledger
	Feedback *feedback.Service
	Store    *store.Store
	Logger   *slog.Logger
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	executor := opts.Executor
	if executor == nil {
		executor = llm.NewExecutor()
	}
	return &Pipeline{
		router:   opts.Router,
		executor: executor,
		ledger:   opts.Ledger,
		feedback: opts.Feedback,
		store:    opts.Store,
		logger:   logger,
	}
}

// generationParams holds the sampling knobs for one request category.
// Structured outputs run cold and small; drafted prose gets headroom.
type generationParams struct {
	maxOutputTokens int
	temperature     float32
}

var categoryParams = map[routing.Category]generationParams{
	routing.CategoryClassification:     {maxOutputTokens: 500, temperature: 0.3},
	routing.CategorySummarization:      {maxOutputTokens: 800, temperature: 0.5},
	routing.CategoryResponseGeneration: {maxOutputTokens: 1000, temperature: 0.7},
	routing.CategoryActionExtraction:   {maxOutputTokens: 800, temperature: 0.3},
	routing.CategoryReasoning:          {maxOutputTokens: 1200, temperature: 0.5},
}

// invoke runs one provider call end to end: route within budget, execute
// with retry, and settle the routing reservation against measured usage.
func (p *Pipeline) invoke(ctx context.Context, category routing.Category, system, user string) (*llm.Response, string, error) {
	promptTokens := llm.EstimateTokens(system + user)

	decision, err := p.router.Choose(category, promptTokens)
	if err != nil {
		return nil, "", err
	}
	providerName := decision.Provider.Name()

	reqCtx, hasReqCtx := observability.FromContext(ctx)
	if hasReqCtx {
		reqCtx.Debug("provider selected",
			slog.String(observability.LogFieldProvider, providerName),
			slog.Float64("estimated_cost", decision.EstimatedCost),
			slog.Bool("budget_bypassed", decision.Bypassed))
	}

	params := categoryParams[category]
	start := time.Now()
	resp, err := p.executor.Execute(ctx, func(ctx context.Context) (*llm.Response, error) {
		return decision.Provider.Invoke(ctx, llm.Request{
			SystemInstruction: system,
			UserPrompt:        user,
			MaxOutputTokens:   params.maxOutputTokens,
			Temperature:       params.temperature,
		})
	})
	if err != nil {
		// A failed call produced no billable usage; hand the reservation
		// back. Bypassed admissions never reserved.
		if !decision.Bypassed {
			p.ledger.Release(providerName, decision.EstimatedCost)
		}
		return nil, providerName, translateExecutionError(err)
	}

	cost := p.ledger.ActualCost(providerName, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if decision.Bypassed {
		p.ledger.Commit(providerName, resp.Usage.Total(), cost)
	} else {
		p.ledger.Reconcile(providerName, resp.Usage.Total(), cost, decision.EstimatedCost)
	}

	if hasReqCtx {
		reqCtx.Info("provider call completed",
			slog.String(observability.LogFieldProvider, providerName),
			slog.Int("tokens", resp.Usage.Total()),
			slog.Float64("cost", cost),
			slog.Int64(observability.LogFieldDuration, time.Since(start).Milliseconds()))
	}
	return resp, providerName, nil
}

// translateExecutionError maps retry-layer failures onto the service error
// taxonomy so callers and the API layer see one vocabulary.
func translateExecutionError(err error) error {
	var exhausted *llm.ExhaustedError
	if errors.As(err, &exhausted) {
		return apierrors.ServiceDegraded(exhausted.Last.UserMessage(), exhausted)
	}

	// Cancellation takes priority over the classified status: a caller that
	// hung up mid-call did not send a bad request.
	if errors.Is(err, context.Canceled) {
		return apierrors.ContextCanceled(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apierrors.Timeout("provider call timed out")
	}

	var classified *llm.ClassifiedError
	if errors.As(err, &classified) {
		switch classified.StatusCode {
		case 401, 403:
			return apierrors.Unauthorized(classified.UserMessage())
		case 429:
			return apierrors.RateLimitExceeded(classified.UserMessage())
		default:
			return apierrors.Wrap(classified, apierrors.ErrCodeInvalidArgument, classified.UserMessage())
		}
	}
	return apierrors.ServiceDegraded("provider call failed", err)
}

// Classify analyzes a single email. Confirmed-task examples from the
// feedback store bias urgency upward; a failing bias fetch degrades
// silently to an unpersonalized prompt.
func (p *Pipeline) Classify(ctx context.Context, userID string, email prompt.Email) (*Classification, error) {
	var priorityExamples []string
	if p.feedback != nil {
		examples, err := p.feedback.PositiveExamples(ctx, userID, feedback.DefaultExampleLimit)
		if err != nil {
			p.logger.Warn("bias fetch failed, classifying without personalization",
				"user_id", userID,
				"error", err)
		} else {
			priorityExamples = examples
		}
	}

	system, user := prompt.Classification(email, priorityExamples)
	resp, _, err := p.invoke(ctx, routing.CategoryClassification, system, user)
	if err != nil {
		return nil, err
	}
	return parseClassification(resp.Text)
}

// ExtractItems pulls action items from an email without persisting them.
// Rejected-task examples from the feedback store are injected as negative
// guidance.
func (p *Pipeline) ExtractItems(ctx context.Context, userID, subject, body string) ([]ExtractedTask, error) {
	var negativeExamples []string
	if p.feedback != nil {
		examples, err := p.feedback.NegativeExamples(ctx, userID, feedback.DefaultExampleLimit)
		if err != nil {
			p.logger.Warn("bias fetch failed, extracting without negative examples",
				"user_id", userID,
				"error", err)
		} else {
			negativeExamples = examples
		}
	}

	system, user := prompt.TaskExtraction(subject, body, negativeExamples)
	resp, _, err := p.invoke(ctx, routing.CategoryActionExtraction, system, user)
	if err != nil {
		return nil, err
	}
	return parseTasks(resp.Text)
}

// ExtractTasks pulls action items from an email and persists the valid ones
// as autonomous tasks. Items matching an already saved task description are
// skipped so re-processing an email never duplicates tasks.
func (p *Pipeline) ExtractTasks(ctx context.Context, userID, subject, body, sourceEmailID string) ([]*store.Task, error) {
	extracted, err := p.ExtractItems(ctx, userID, subject, body)
	if err != nil {
		return nil, err
	}

	existing, err := p.store.ListTasks(ctx, &store.FindTask{UserID: &userID})
	if err != nil {
		return nil, apierrors.StoreUnavailable("failed to list existing tasks", err)
	}
	saved := make(map[string]struct{}, len(existing))
	for _, task := range existing {
		saved[normalizeDescription(task.Description)] = struct{}{}
	}

	tasks := make([]*store.Task, 0, len(extracted))
	for _, item := range extracted {
		key := normalizeDescription(item.TaskDescription)
		if _, ok := saved[key]; ok {
			p.logger.Debug("skipping already saved task",
				"user_id", userID,
				"description", item.TaskDescription)
			continue
		}
		saved[key] = struct{}{}
		task, err := p.store.CreateTask(ctx, &store.Task{
			ID:             shortuuid.New(),
			UserID:         userID,
			Description:    item.TaskDescription,
			Deadline:       item.Deadline,
			Stakeholders:   item.Stakeholders,
			Status:         store.TaskStatusPending,
			SourceEmailID:  sourceEmailID,
			CreationMethod: store.CreationMethodAutonomous,
		})
		if err != nil {
			return nil, apierrors.StoreUnavailable("failed to persist extracted task", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func normalizeDescription(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}

// Summarize produces a digest of the given emails.
func (p *Pipeline) Summarize(ctx context.Context, emails []prompt.Email, style prompt.SummaryStyle) (string, error) {
	if len(emails) == 0 {
		return "", apierrors.InvalidArgument("no emails to summarize")
	}

	system, user := prompt.Summary(emails, style)
	resp, _, err := p.invoke(ctx, routing.CategorySummarization, system, user)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// GenerateReplies drafts reply suggestions for an email, optionally matched
// to the user's writing style.
func (p *Pipeline) GenerateReplies(ctx context.Context, emailContent string, styleExamples []string) ([]string, error) {
	if emailContent == "" {
		return nil, apierrors.InvalidArgument("email content is empty")
	}

	system, user := prompt.ReplySuggestions(emailContent, styleExamples)
	resp, _, err := p.invoke(ctx, routing.CategoryResponseGeneration, system, user)
	if err != nil {
		return nil, err
	}
	return parseReplies(resp.Text)
}

// SynthesizeAgenda builds a daily agenda from the user's pending tasks and
// the supplied meetings.
func (p *Pipeline) SynthesizeAgenda(ctx context.Context, userID string, meetings []string) (string, error) {
	status := store.TaskStatusPending
	limit := 50
	pending, err := p.store.ListTasks(ctx, &store.FindTask{
		UserID: &userID,
		Status: &status,
		Limit:  &limit,
	})
	if err != nil {
		return "", apierrors.StoreUnavailable("failed to list pending tasks", err)
	}

	descriptions := make([]string, 0, len(pending))
	for _, task := range pending {
		line := task.Description
		if task.Deadline != nil && *task.Deadline != "" {
			line += " (due " + *task.Deadline + ")"
		}
		descriptions = append(descriptions, line)
	}

	system, user := prompt.Agenda(descriptions, meetings)
	resp, _, err := p.invoke(ctx, routing.CategoryReasoning, system, user)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
