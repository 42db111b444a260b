package harness

import (
	"strings"

	"github.com/maiahq/maia/server/pipeline"
)

// similarityThreshold is the token-set overlap above which an extracted
// task counts as matching an expected one.
const similarityThreshold = 0.7

// classificationAccuracy scores a verdict against ground truth. Urgency is
// graded on closeness, purpose and response-needed on exact match, each
// weighted equally.
func classificationAccuracy(expected ExpectedClassification, actual *pipeline.Classification) float64 {
	if actual == nil {
		return 0
	}

	urgencyDiff := float64(expected.UrgencyScore - actual.UrgencyScore)
	if urgencyDiff < 0 {
		urgencyDiff = -urgencyDiff
	}
	urgencyScore := 1 - urgencyDiff/5.0
	if urgencyScore < 0 {
		urgencyScore = 0
	}

	purposeScore := 0.0
	if strings.EqualFold(expected.Purpose, actual.Purpose) {
		purposeScore = 1.0
	}

	responseScore := 0.0
	if expected.ResponseNeeded == actual.ResponseNeeded {
		responseScore = 1.0
	}

	return (urgencyScore + purposeScore + responseScore) / 3.0
}

// textSimilarity is the Jaccard overlap of the two texts' token sets.
func textSimilarity(a, b string) float64 {
	wordsA := tokenSet(a)
	wordsB := tokenSet(b)

	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}

	intersection := 0
	for word := range wordsA {
		if _, ok := wordsB[word]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = struct{}{}
	}
	return set
}

// extractionMetrics computes precision and recall by greedily matching
// expected tasks to extracted ones on description similarity. Both empty is
// a perfect score; extracting tasks from a no-task email zeroes precision.
func extractionMetrics(expected []ExpectedTask, extracted []pipeline.ExtractedTask) (precision, recall float64) {
	if len(expected) == 0 && len(extracted) == 0 {
		return 1.0, 1.0
	}
	if len(expected) == 0 {
		return 0.0, 1.0
	}
	if len(extracted) == 0 {
		return 0.0, 0.0
	}

	matched := 0
	for _, want := range expected {
		for _, got := range extracted {
			if textSimilarity(want.Description, got.TaskDescription) > similarityThreshold {
				matched++
				break
			}
		}
	}

	return float64(matched) / float64(len(extracted)), float64(matched) / float64(len(expected))
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// elementKeywords maps an expected response element to the words that
// signal its presence.
var elementKeywords = map[string][]string{
	"greeting":                {"hello", "hi", "good"},
	"helpful_offer":           {"help", "assist", "can i"},
	"email_summary":           {"emails", "messages", "inbox"},
	"priority_acknowledgment": {"important", "priority", "urgent"},
	"actionable_response":     {"show", "view", "here", "find"},
}

// chatRelevance scores how many expected elements the response covers.
func chatRelevance(expectedElements []string, response string) float64 {
	if len(expectedElements) == 0 {
		return 0.5
	}

	lowered := strings.ToLower(response)
	matched := 0
	for _, element := range expectedElements {
		for _, keyword := range elementKeywords[element] {
			if strings.Contains(lowered, keyword) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(expectedElements))
}

// chatNaturalness is a heuristic score for conversational quality: sensible
// length, punctuation, conversational pronouns, politeness, and the absence
// of implementation jargon.
func chatNaturalness(response string) float64 {
	if response == "" {
		return 0
	}

	score := 0.0
	lowered := strings.ToLower(response)

	if n := len(response); n >= 50 && n <= 300 {
		score += 0.3
	}

	if strings.ContainsAny(response, ".!?") {
		score += 0.2
	}

	if containsAnyWord(lowered, "i", "you", "your", "my") {
		score += 0.2
	}

	for _, polite := range []string{"please", "thank", "sorry", "help"} {
		if strings.Contains(lowered, polite) {
			score += 0.2
			break
		}
	}

	jargon := false
	for _, word := range []string{"api", "llm", "model", "algorithm", "processing"} {
		if containsAnyWord(lowered, word) {
			jargon = true
			break
		}
	}
	if !jargon {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func containsAnyWord(lowered string, words ...string) bool {
	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	})
	for _, field := range fields {
		field = strings.Trim(field, "'")
		for _, word := range words {
			if field == word {
				return true
			}
		}
	}
	return false
}
