// Package harness benchmarks prompt quality against curated test suites
// and reports per-suite metrics, bottlenecks, and optimization
// recommendations.
package harness

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed suites/*.yaml
var suitesFS embed.FS

// ClassificationSuite is the curated set of emails with known verdicts.
type ClassificationSuite struct {
	Name  string               `yaml:"name"`
	Cases []ClassificationCase `yaml:"cases"`
}

// ClassificationCase is one email and its expected verdict.
type ClassificationCase struct {
	ID    string `yaml:"id"`
	Email struct {
		Sender  string `yaml:"sender"`
		Subject string `yaml:"subject"`
		Body    string `yaml:"body"`
	} `yaml:"email"`
	Expected ExpectedClassification `yaml:"expected"`
}

// ExpectedClassification is the ground-truth verdict for a case.
type ExpectedClassification struct {
	UrgencyScore   int    `yaml:"urgency_score"`
	Purpose        string `yaml:"purpose"`
	ResponseNeeded bool   `yaml:"response_needed"`
}

// ExtractionSuite is the curated set of emails with known action items.
type ExtractionSuite struct {
	Name  string           `yaml:"name"`
	Cases []ExtractionCase `yaml:"cases"`
}

// ExtractionCase is one email and the tasks it should yield. An empty
// expected list asserts the email contains no tasks.
type ExtractionCase struct {
	ID            string         `yaml:"id"`
	Subject       string         `yaml:"subject"`
	Body          string         `yaml:"body"`
	ExpectedTasks []ExpectedTask `yaml:"expected_tasks"`
}

// ExpectedTask is a ground-truth action item.
type ExpectedTask struct {
	Description string `yaml:"description"`
	Deadline    string `yaml:"deadline"`
}

// ChatSuite is the curated set of conversational messages.
type ChatSuite struct {
	Name  string     `yaml:"name"`
	Cases []ChatCase `yaml:"cases"`
}

// ChatCase is one user message and the response elements a good reply
// should contain.
type ChatCase struct {
	ID               string   `yaml:"id"`
	Message          string   `yaml:"message"`
	ExpectedElements []string `yaml:"expected_elements"`
}

// LoadSuites parses the embedded suites.
func LoadSuites() (*ClassificationSuite, *ExtractionSuite, *ChatSuite, error) {
	var classification ClassificationSuite
	if err := loadSuite("suites/classification.yaml", &classification); err != nil {
		return nil, nil, nil, err
	}

	var extraction ExtractionSuite
	if err := loadSuite("suites/extraction.yaml", &extraction); err != nil {
		return nil, nil, nil, err
	}

	var chat ChatSuite
	if err := loadSuite("suites/chat.yaml", &chat); err != nil {
		return nil, nil, nil, err
	}

	return &classification, &extraction, &chat, nil
}

func loadSuite(path string, out any) error {
	raw, err := suitesFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read suite %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse suite %s: %w", path, err)
	}
	return nil
}
