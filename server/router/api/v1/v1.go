// Package v1 exposes the assistant operations over a JSON HTTP API.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/maiahq/maia/internal/profile"
	"github.com/maiahq/maia/server/feedback"
	"github.com/maiahq/maia/server/finops"
	apierrors "github.com/maiahq/maia/server/internal/errors"
	"github.com/maiahq/maia/server/middleware"
	"github.com/maiahq/maia/server/pipeline"
	"github.com/maiahq/maia/server/routing"
	"github.com/maiahq/maia/store"
)

// headerUserID carries the acting user. Requests without it fall back to
// the default user so single-tenant deployments need no client changes.
const headerUserID = "X-User-ID"

const defaultUserID = "default"

type APIV1Service struct {
	Profile  *profile.Profile
	Store    *store.Store
	Pipeline *pipeline.Pipeline
	Feedback *feedback.Service
	Ledger   *finops.Ledger
	Router   *routing.Router

	logger  *slog.Logger
	limiter *middleware.RateLimiter
}

// Options bundles the assembled services the API fronts.
type Options struct {
	Profile  *profile.Profile
	Store    *store.Store
	Pipeline *pipeline.Pipeline
	Feedback *feedback.Service
	Ledger   *finops.Ledger
	Router   *routing.Router
	Logger   *slog.Logger
}

func NewAPIV1Service(opts Options) *APIV1Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &APIV1Service{
		Profile:  opts.Profile,
		Store:    opts.Store,
		Pipeline: opts.Pipeline,
		Feedback: opts.Feedback,
		Ledger:   opts.Ledger,
		Router:   opts.Router,
		logger:   logger,
		limiter:  middleware.NewRateLimiter(middleware.DefaultRateLimit()),
	}
}

// Register mounts every route under /api/v1 on the given Echo instance.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	group := echoServer.Group("/api/v1")
	group.Use(echomw.CORS())
	group.Use(s.recoverMiddleware)
	group.Use(s.limiter.Middleware(userID))

	group.POST("/assistant/classify", s.Classify)
	group.POST("/assistant/summarize", s.Summarize)
	group.POST("/assistant/replies", s.GenerateReplies)
	group.POST("/assistant/agenda", s.SynthesizeAgenda)

	group.POST("/tasks/extract", s.ExtractTasks)
	group.GET("/tasks", s.ListTasks)
	group.GET("/tasks/stats", s.TaskStats)
	group.DELETE("/tasks/:id", s.DeleteTask)
	group.POST("/tasks/:id/feedback", s.SubmitFeedback)
	group.POST("/tasks/:id/archive", s.ArchiveTask)

	group.GET("/usage", s.Usage)
	group.GET("/insights", s.Insights)
}

// recoverMiddleware converts panics in handlers into a generic retryable
// response instead of tearing down the connection.
func (s *APIV1Service) recoverMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("handler panicked",
					"path", c.Path(),
					"panic", r)
				_ = c.JSON(http.StatusInternalServerError, errorBody{
					Code:    string(apierrors.ErrCodeServiceDegraded),
					Message: "something went wrong, please retry",
				})
			}
		}()
		return next(c)
	}
}

func userID(c echo.Context) string {
	if id := c.Request().Header.Get(headerUserID); id != "" {
		return id
	}
	return defaultUserID
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps the service error taxonomy onto HTTP statuses. Unknown
// errors are reported generically so internals never leak to clients.
func writeError(c echo.Context, err error) error {
	var aiErr *apierrors.AIError
	if e, ok := err.(*apierrors.AIError); ok {
		aiErr = e
	} else {
		aiErr = apierrors.ServiceDegraded("something went wrong, please retry", err)
	}
	return c.JSON(httpStatus(aiErr.Code), errorBody{
		Code:    string(aiErr.Code),
		Message: aiErr.Message,
	})
}

func httpStatus(code apierrors.ErrorCode) int {
	switch code {
	case apierrors.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case apierrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apierrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apierrors.ErrCodeFeedbackExists:
		return http.StatusConflict
	case apierrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case apierrors.ErrCodeBudgetExhausted, apierrors.ErrCodeProviderExhausted:
		return http.StatusPaymentRequired
	case apierrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case apierrors.ErrCodeContextCanceled:
		// 499 is the de facto client-closed-request status.
		return 499
	case apierrors.ErrCodeStoreUnavailable, apierrors.ErrCodeServiceDegraded, apierrors.ErrCodeContentInvalid:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
