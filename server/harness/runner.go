package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maiahq/maia/server/finops"
	"github.com/maiahq/maia/server/pipeline"
	"github.com/maiahq/maia/server/prompt"
)

// harnessUserID isolates harness traffic from real users' feedback bias.
const harnessUserID = "__harness__"

// latencyBudget is the per-call response-time bar; suites averaging above
// it are flagged as bottlenecks regardless of score.
const latencyBudget = 8 * time.Second

// Thresholds are the pass bars per suite, tuned from production baselines.
type Thresholds struct {
	ClassificationAccuracy float64
	ExtractionPrecision    float64
	ExtractionRecall       float64
	ChatRelevance          float64
	ChatNaturalness        float64
}

// DefaultThresholds returns the standard pass bars.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ClassificationAccuracy: 0.85,
		ExtractionPrecision:    0.85,
		ExtractionRecall:       0.80,
		ChatRelevance:          0.80,
		ChatNaturalness:        0.75,
	}
}

// CaseResult is the outcome of a single test case.
type CaseResult struct {
	ID      string        `json:"id"`
	Score   float64       `json:"score"`
	Latency time.Duration `json:"latency"`
	Err     string        `json:"error,omitempty"`
}

// SuiteResult aggregates one suite.
type SuiteResult struct {
	Name string `json:"name"`
	// PrimaryScore is the suite's headline metric: accuracy for
	// classification, F1 for extraction, relevance for chat.
	PrimaryScore float64      `json:"primary_score"`
	SuccessRate  float64      `json:"success_rate"`
	AvgLatencyMs int64        `json:"avg_latency_ms"`
	// EstimatedCost is the suite's dollar spend as settled in the ledger.
	EstimatedCost float64      `json:"estimated_cost"`
	Cases         []CaseResult `json:"cases"`

	// Extraction-only.
	Precision float64 `json:"precision,omitempty"`
	Recall    float64 `json:"recall,omitempty"`
	// Chat-only.
	Naturalness float64 `json:"naturalness,omitempty"`
}

// Recommendation is one concrete prompt-tuning suggestion.
type Recommendation struct {
	Priority string `json:"priority"`
	Category string `json:"category"`
	Issue    string `json:"issue"`
	Advice   string `json:"advice"`
}

// Report is the full harness outcome.
type Report struct {
	OverallScore    float64          `json:"overall_score"`
	TotalCost       float64          `json:"total_cost"`
	Classification  SuiteResult      `json:"classification"`
	Extraction      SuiteResult      `json:"extraction"`
	Chat            SuiteResult      `json:"chat"`
	Bottlenecks     []string         `json:"bottlenecks"`
	Strengths       []string         `json:"strengths"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Runner executes the suites against a live pipeline.
type Runner struct {
	pipeline    *pipeline.Pipeline
	ledger      *finops.Ledger
	thresholds  Thresholds
	concurrency int
	logger      *slog.Logger
}

// NewRunner creates a harness runner. The ledger attributes dollar spend to
// each suite; nil is allowed and reports zero cost. concurrency bounds
// in-flight provider calls; values below one default to four.
func NewRunner(p *pipeline.Pipeline, ledger *finops.Ledger, thresholds Thresholds, concurrency int, logger *slog.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		pipeline:    p,
		ledger:      ledger,
		thresholds:  thresholds,
		concurrency: concurrency,
		logger:      logger,
	}
}

// committedCost sums settled spend across every ledger account.
func (r *Runner) committedCost() float64 {
	if r.ledger == nil {
		return 0
	}
	var total float64
	for _, usage := range r.ledger.UsageStats() {
		total += usage.Cost
	}
	return total
}

// Run executes every suite and assembles the report. Individual case
// failures score zero; they do not abort the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	classificationSuite, extractionSuite, chatSuite, err := LoadSuites()
	if err != nil {
		return nil, err
	}

	report := &Report{}

	baseline := r.committedCost()
	report.Classification = r.runClassification(ctx, classificationSuite)
	afterClassification := r.committedCost()
	report.Classification.EstimatedCost = afterClassification - baseline

	report.Extraction = r.runExtraction(ctx, extractionSuite)
	afterExtraction := r.committedCost()
	report.Extraction.EstimatedCost = afterExtraction - afterClassification

	report.Chat = r.runChat(ctx, chatSuite)
	report.Chat.EstimatedCost = r.committedCost() - afterExtraction

	report.TotalCost = report.Classification.EstimatedCost +
		report.Extraction.EstimatedCost +
		report.Chat.EstimatedCost
	report.OverallScore = (report.Classification.PrimaryScore +
		report.Extraction.PrimaryScore +
		report.Chat.PrimaryScore) / 3.0

	r.analyze(report)
	return report, nil
}

func (r *Runner) runClassification(ctx context.Context, suite *ClassificationSuite) SuiteResult {
	results := make([]CaseResult, len(suite.Cases))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, testCase := range suite.Cases {
		g.Go(func() error {
			start := time.Now()
			actual, err := r.pipeline.Classify(ctx, harnessUserID, prompt.Email{
				Sender:  testCase.Email.Sender,
				Subject: testCase.Email.Subject,
				Body:    testCase.Email.Body,
			})
			result := CaseResult{ID: testCase.ID, Latency: time.Since(start)}
			if err != nil {
				result.Err = err.Error()
			} else {
				result.Score = classificationAccuracy(testCase.Expected, actual)
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	suiteResult := SuiteResult{Name: suite.Name, Cases: results}
	var total float64
	succeeded := 0
	for _, result := range results {
		total += result.Score
		if result.Err == "" {
			succeeded++
		}
	}
	if len(results) > 0 {
		suiteResult.PrimaryScore = total / float64(len(results))
		suiteResult.SuccessRate = float64(succeeded) / float64(len(results))
		suiteResult.AvgLatencyMs = avgLatencyMs(results)
	}
	return suiteResult
}

func (r *Runner) runExtraction(ctx context.Context, suite *ExtractionSuite) SuiteResult {
	results := make([]CaseResult, len(suite.Cases))
	precisions := make([]float64, len(suite.Cases))
	recalls := make([]float64, len(suite.Cases))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, testCase := range suite.Cases {
		g.Go(func() error {
			start := time.Now()
			extracted, err := r.pipeline.ExtractItems(ctx, harnessUserID, testCase.Subject, testCase.Body)
			result := CaseResult{ID: testCase.ID, Latency: time.Since(start)}
			if err != nil {
				result.Err = err.Error()
			} else {
				precision, recall := extractionMetrics(testCase.ExpectedTasks, extracted)
				precisions[i] = precision
				recalls[i] = recall
				result.Score = f1(precision, recall)
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	suiteResult := SuiteResult{Name: suite.Name, Cases: results}
	var totalPrecision, totalRecall float64
	succeeded := 0
	for i, result := range results {
		totalPrecision += precisions[i]
		totalRecall += recalls[i]
		if result.Err == "" {
			succeeded++
		}
	}
	if len(results) > 0 {
		suiteResult.Precision = totalPrecision / float64(len(results))
		suiteResult.Recall = totalRecall / float64(len(results))
		suiteResult.PrimaryScore = f1(suiteResult.Precision, suiteResult.Recall)
		suiteResult.SuccessRate = float64(succeeded) / float64(len(results))
		suiteResult.AvgLatencyMs = avgLatencyMs(results)
	}
	return suiteResult
}

func (r *Runner) runChat(ctx context.Context, suite *ChatSuite) SuiteResult {
	results := make([]CaseResult, len(suite.Cases))
	naturalness := make([]float64, len(suite.Cases))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, testCase := range suite.Cases {
		g.Go(func() error {
			start := time.Now()
			replies, err := r.pipeline.GenerateReplies(ctx, testCase.Message, nil)
			result := CaseResult{ID: testCase.ID, Latency: time.Since(start)}
			if err != nil {
				result.Err = err.Error()
			} else {
				response := strings.Join(replies, " ")
				result.Score = chatRelevance(testCase.ExpectedElements, response)
				naturalness[i] = chatNaturalness(replies[0])
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	suiteResult := SuiteResult{Name: suite.Name, Cases: results}
	var totalRelevance, totalNaturalness float64
	succeeded := 0
	for i, result := range results {
		totalRelevance += result.Score
		totalNaturalness += naturalness[i]
		if result.Err == "" {
			succeeded++
		}
	}
	if len(results) > 0 {
		suiteResult.PrimaryScore = totalRelevance / float64(len(results))
		suiteResult.Naturalness = totalNaturalness / float64(len(results))
		suiteResult.SuccessRate = float64(succeeded) / float64(len(results))
		suiteResult.AvgLatencyMs = avgLatencyMs(results)
	}
	return suiteResult
}

func avgLatencyMs(results []CaseResult) int64 {
	if len(results) == 0 {
		return 0
	}
	var total time.Duration
	for _, result := range results {
		total += result.Latency
	}
	return (total / time.Duration(len(results))).Milliseconds()
}

// analyze fills bottlenecks, strengths, and recommendations from the suite
// scores.
func (r *Runner) analyze(report *Report) {
	suites := []struct {
		name      string
		metric    string
		score     float64
		latencyMs int64
	}{
		{"email_classification", "accuracy", report.Classification.PrimaryScore, report.Classification.AvgLatencyMs},
		{"task_extraction", "f1_score", report.Extraction.PrimaryScore, report.Extraction.AvgLatencyMs},
		{"chat_response", "relevance", report.Chat.PrimaryScore, report.Chat.AvgLatencyMs},
	}

	for _, suite := range suites {
		switch {
		case suite.score < 0.7:
			report.Bottlenecks = append(report.Bottlenecks,
				formatFinding(suite.name, "low", suite.metric, suite.score))
		case suite.score > 0.9:
			report.Strengths = append(report.Strengths,
				formatFinding(suite.name, "excellent", suite.metric, suite.score))
		}
		if suite.latencyMs > latencyBudget.Milliseconds() {
			report.Bottlenecks = append(report.Bottlenecks,
				fmt.Sprintf("%s: slow response time (avg %.1fs)",
					suite.name, float64(suite.latencyMs)/1000.0))
		}
	}

	if report.Classification.PrimaryScore < r.thresholds.ClassificationAccuracy {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: "high",
			Category: "email_classification",
			Issue:    "classification accuracy below threshold",
			Advice:   "Add more specific examples and clearer classification criteria to the email analysis prompt.",
		})
	}
	if report.Extraction.PrimaryScore < 0.8 ||
		report.Extraction.Precision < r.thresholds.ExtractionPrecision ||
		report.Extraction.Recall < r.thresholds.ExtractionRecall {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: "high",
			Category: "task_extraction",
			Issue:    "task extraction precision/recall below threshold",
			Advice:   "Improve task definition examples and add negative examples to reduce false positives.",
		})
	}
	if report.Chat.Naturalness < r.thresholds.ChatNaturalness {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: "medium",
			Category: "chat_response",
			Issue:    "responses read as unnatural",
			Advice:   "Add more conversational examples and adjust the system prompt for a warmer tone.",
		})
	}
	if report.Chat.PrimaryScore < r.thresholds.ChatRelevance {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: "medium",
			Category: "chat_response",
			Issue:    "responses miss expected elements",
			Advice:   "Tighten the response guidelines so replies address the user's request directly.",
		})
	}
}

func formatFinding(suite, level, metric string, score float64) string {
	return fmt.Sprintf("%s: %s %s (%.2f)", suite, level, metric, score)
}
