package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/maiahq/maia/server/internal/errors"
	"github.com/maiahq/maia/server/finops"
)

type usageResponse struct {
	PeriodStart time.Time                       `json:"period_start"`
	Providers   map[string]finops.ProviderUsage `json:"providers"`
	BypassCount int64                           `json:"bypass_count"`
}

// Usage reports per-provider spend for the current billing period and how
// often the budget bypass fired.
func (s *APIV1Service) Usage(c echo.Context) error {
	return c.JSON(http.StatusOK, usageResponse{
		PeriodStart: s.Ledger.PeriodStart(),
		Providers:   s.Ledger.UsageStats(),
		BypassCount: s.Router.BypassCount(),
	})
}

// Insights summarizes the user's feedback history and extraction accuracy.
func (s *APIV1Service) Insights(c echo.Context) error {
	insights, err := s.Feedback.Insights(c.Request().Context(), userID(c))
	if err != nil {
		return writeError(c, apierrors.StoreUnavailable("failed to compute insights", err))
	}
	return c.JSON(http.StatusOK, insights)
}
