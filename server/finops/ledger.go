// Package finops tracks per-provider token and dollar spend against fixed
// monthly caps, and answers the admission-control question the router asks
// before every call.
package finops

import (
	"log/slog"
	"sync"
	"time"
)

// Account holds the running totals for one provider within the current
// billing period. All mutation goes through the ledger's reserve, settle,
// and commit operations.
type Account struct {
	mu sync.Mutex

	tokens   int64
	cost     float64
	requests int64

	// Cap is the fixed monthly budget in dollars.
	cap float64
	// Dollars per 1K tokens.
	inputRate  float64
	outputRate float64
}

// AccountConfig configures one provider account.
type AccountConfig struct {
	Provider   string
	MonthlyCap float64
	InputRate  float64
	OutputRate float64
}

// ProviderUsage is a read-only snapshot of one account, shaped for the
// usage/budget query surface.
type ProviderUsage struct {
	Tokens      int64   `json:"tokens"`
	Cost        float64 `json:"cost"`
	Requests    int64   `json:"requests"`
	Cap         float64 `json:"cap"`
	Remaining   float64 `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
}

// Ledger tracks cumulative spend per provider. It is safe for concurrent
// use: admission and settlement synchronize on a per-account mutex, and
// admission holds the projected cost as a reservation until the call
// settles. Two concurrent requests that would jointly breach the cap
// therefore cannot both be admitted.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	logger   *slog.Logger

	periodStart time.Time
}

// NewLedger creates a ledger with one account per configured provider.
func NewLedger(configs []AccountConfig) *Ledger {
	accounts := make(map[string]*Account, len(configs))
	for _, cfg := range configs {
		accounts[cfg.Provider] = &Account{
			cap:        cfg.MonthlyCap,
			inputRate:  cfg.InputRate,
			outputRate: cfg.OutputRate,
		}
	}
	return &Ledger{
		accounts:    accounts,
		logger:      slog.Default(),
		periodStart: time.Now(),
	}
}

func (l *Ledger) account(provider string) *Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts[provider]
}

// EstimateCost projects the dollar cost of a call from a token estimate.
// ioRatio scales for tasks with disproportionate output: long-form
// generation produces far more output tokens per input token than
// classification, so its effective per-token rate is higher.
func (l *Ledger) EstimateCost(provider string, tokens int, ioRatio float64) float64 {
	account := l.account(provider)
	if account == nil {
		return 0
	}
	if ioRatio <= 0 {
		ioRatio = 1.0
	}
	return float64(tokens) * (account.inputRate / 1000.0) * ioRatio
}

// HasBudget reports whether committing estimatedCost would keep the
// account at or under its cap. Read-only; admission goes through Reserve.
func (l *Ledger) HasBudget(provider string, estimatedCost float64) bool {
	account := l.account(provider)
	if account == nil {
		return false
	}
	account.mu.Lock()
	defer account.mu.Unlock()
	return account.cost+estimatedCost <= account.cap
}

// Reserve atomically admits estimatedCost against the cap and holds it
// until the call settles through Reconcile or is returned through Release.
// Budget exhaustion is a routing decision, not an error: a false return
// just sends the router to the next provider.
func (l *Ledger) Reserve(provider string, estimatedCost float64) bool {
	account := l.account(provider)
	if account == nil {
		return false
	}
	account.mu.Lock()
	defer account.mu.Unlock()
	if account.cost+estimatedCost > account.cap {
		return false
	}
	account.cost += estimatedCost
	return true
}

// Release returns an unused reservation after a call that never produced
// billable usage.
func (l *Ledger) Release(provider string, estimatedCost float64) {
	account := l.account(provider)
	if account == nil {
		return
	}
	account.mu.Lock()
	account.cost -= estimatedCost
	if account.cost < 0 {
		account.cost = 0
	}
	account.mu.Unlock()
}

// Reconcile settles a reservation against the measured usage of a
// completed call: the held estimate is swapped for the actual cost in one
// step, and the token and request counters advance.
func (l *Ledger) Reconcile(provider string, tokens int, actualCost, reservedCost float64) {
	account := l.account(provider)
	if account == nil {
		l.logger.Warn("usage reconcile for unknown provider", "provider", provider)
		return
	}
	account.mu.Lock()
	account.cost += actualCost - reservedCost
	if account.cost < 0 {
		account.cost = 0
	}
	account.tokens += int64(tokens)
	account.requests++
	account.mu.Unlock()

	l.logger.Debug("usage reconciled",
		"provider", provider,
		"tokens", tokens,
		"cost", actualCost,
		"reserved", reservedCost)
}

// Commit atomically records the actual usage of a completed call.
func (l *Ledger) Commit(provider string, tokens int, cost float64) {
	account := l.account(provider)
	if account == nil {
		l.logger.Warn("usage commit for unknown provider", "provider", provider)
		return
	}
	account.mu.Lock()
	account.tokens += int64(tokens)
	account.cost += cost
	account.requests++
	account.mu.Unlock()

	l.logger.Debug("usage committed",
		"provider", provider,
		"tokens", tokens,
		"cost", cost)
}

// ActualCost converts measured token usage into dollars with the
// provider's configured rates.
func (l *Ledger) ActualCost(provider string, inputTokens, outputTokens int) float64 {
	account := l.account(provider)
	if account == nil {
		return 0
	}
	return float64(inputTokens)*(account.inputRate/1000.0) +
		float64(outputTokens)*(account.outputRate/1000.0)
}

// UsageStats returns a snapshot of every account. Read-only, no side effects.
func (l *Ledger) UsageStats() map[string]ProviderUsage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]ProviderUsage, len(l.accounts))
	for name, account := range l.accounts {
		account.mu.Lock()
		usage := ProviderUsage{
			Tokens:    account.tokens,
			Cost:      account.cost,
			Requests:  account.requests,
			Cap:       account.cap,
			Remaining: account.cap - account.cost,
		}
		if account.cap > 0 {
			usage.PercentUsed = (account.cost / account.cap) * 100.0
		}
		account.mu.Unlock()
		stats[name] = usage
	}
	return stats
}

// Providers returns the configured account names.
func (l *Ledger) Providers() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.accounts))
	for name := range l.accounts {
		names = append(names, name)
	}
	return names
}

// Reset zeroes every account at a billing-period boundary. The trigger is
// external (a scheduler or an operator), not the ledger's concern.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for name, account := range l.accounts {
		account.mu.Lock()
		account.tokens = 0
		account.cost = 0
		account.requests = 0
		account.mu.Unlock()
		l.logger.Info("budget account reset", "provider", name)
	}
	l.periodStart = time.Now()
}

// PeriodStart returns the start of the current billing period.
func (l *Ledger) PeriodStart() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.periodStart
}
