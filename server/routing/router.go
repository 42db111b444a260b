// Package routing selects a provider for each request category, subject to
// per-provider budget admission.
package routing

import (
	"log/slog"
	"sync/atomic"

	apierrors "github.com/maiahq/maia/server/internal/errors"
	"github.com/maiahq/maia/server/finops"
	"github.com/maiahq/maia/server/llm"
)

// Category names a kind of work routed through the layer. Each category
// carries its own provider preference order and output-size profile.
type Category string

const (
	CategoryClassification     Category = "classification"
	CategorySummarization      Category = "summarization"
	CategoryResponseGeneration Category = "response_generation"
	CategoryActionExtraction   Category = "action_extraction"
	CategoryReasoning          Category = "reasoning"
)

// outputRatios scale the token estimate by how much output each category
// produces relative to its input. Summaries compress; generated replies
// expand.
var outputRatios = map[Category]float64{
	CategoryClassification:     1.5,
	CategorySummarization:      0.3,
	CategoryResponseGeneration: 2.0,
	CategoryActionExtraction:   0.5,
	CategoryReasoning:          1.5,
}

// OutputRatio returns the output-size multiplier for a category, defaulting
// to neutral for unknown categories.
func OutputRatio(category Category) float64 {
	if r, ok := outputRatios[category]; ok {
		return r
	}
	return 1.0
}

// Decision is the outcome of a routing choice.
type Decision struct {
	Provider      llm.Provider
	EstimatedCost float64
	// Bypassed is set when every preferred provider failed budget admission
	// and the request was admitted anyway as a last resort.
	Bypassed bool
}

// Router picks the first provider in a category's preference order that
// passes budget admission. It never calls providers itself.
type Router struct {
	providers   map[string]llm.Provider
	preferences map[string][]string
	ledger      *finops.Ledger
	allowBypass bool
	logger      *slog.Logger

	bypassCount atomic.Int64
}

// Options configures a Router.
type Options struct {
	Providers   map[string]llm.Provider
	Preferences map[string][]string
	Ledger      *finops.Ledger
	// AllowBypass admits a request on the first preferred provider when
	// every provider is over budget, instead of failing it.
	AllowBypass bool
	Logger      *slog.Logger
}

// NewRouter creates a router.
func NewRouter(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		providers:   opts.Providers,
		preferences: opts.Preferences,
		ledger:      opts.Ledger,
		allowBypass: opts.AllowBypass,
		logger:      logger,
	}
}

// Choose walks the category's preference order and returns the first
// provider whose projected cost fits its remaining budget. Admission
// reserves the projected cost in the ledger, so concurrent requests cannot
// jointly breach a cap; the caller settles or releases the reservation
// once the call finishes. When every provider is exhausted, the first
// preferred provider is used as a last resort if bypass is allowed;
// otherwise a provider-exhausted error is returned.
func (r *Router) Choose(category Category, promptTokens int) (*Decision, error) {
	order := r.preferences[string(category)]
	if len(order) == 0 {
		return nil, apierrors.ProviderExhausted(string(category))
	}

	ratio := OutputRatio(category)
	for _, name := range order {
		provider, ok := r.providers[name]
		if !ok {
			r.logger.Warn("preference names unconfigured provider",
				"category", category,
				"provider", name)
			continue
		}
		cost := r.ledger.EstimateCost(name, promptTokens, ratio)
		if r.ledger.Reserve(name, cost) {
			return &Decision{Provider: provider, EstimatedCost: cost}, nil
		}
		r.logger.Info("provider over budget, trying next",
			"category", category,
			"provider", name,
			"estimated_cost", cost)
	}

	if r.allowBypass {
		for _, name := range order {
			provider, ok := r.providers[name]
			if !ok {
				continue
			}
			cost := r.ledger.EstimateCost(name, promptTokens, ratio)
			n := r.bypassCount.Add(1)
			r.logger.Warn("all providers over budget, admitting anyway",
				"category", category,
				"provider", name,
				"estimated_cost", cost,
				"bypass_total", n)
			return &Decision{Provider: provider, EstimatedCost: cost, Bypassed: true}, nil
		}
	}

	return nil, apierrors.BudgetExhausted(
		"every provider for category " + string(category) + " is over its monthly cap")
}

// BypassCount reports how many requests were admitted past an exhausted
// budget since startup.
func (r *Router) BypassCount() int64 {
	return r.bypassCount.Load()
}
