package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maiahq/maia/server/pipeline"
)

func TestClassificationAccuracy_ExactMatch(t *testing.T) {
	expected := ExpectedClassification{UrgencyScore: 5, Purpose: "important", ResponseNeeded: true}
	actual := &pipeline.Classification{UrgencyScore: 5, Purpose: "important", ResponseNeeded: true}

	assert.InDelta(t, 1.0, classificationAccuracy(expected, actual), 1e-9)
}

func TestClassificationAccuracy_OffByOneUrgencyStillScoresHigh(t *testing.T) {
	// Urgency is graded on closeness, so a near-miss with correct purpose
	// and response flag keeps a high score.
	expected := ExpectedClassification{UrgencyScore: 5, Purpose: "important", ResponseNeeded: true}
	actual := &pipeline.Classification{UrgencyScore: 4, Purpose: "important", ResponseNeeded: true}

	score := classificationAccuracy(expected, actual)
	assert.InDelta(t, (0.8+1.0+1.0)/3.0, score, 1e-9)
	assert.Greater(t, score, 0.9)
}

func TestClassificationAccuracy_WrongPurpose(t *testing.T) {
	expected := ExpectedClassification{UrgencyScore: 1, Purpose: "newsletter", ResponseNeeded: false}
	actual := &pipeline.Classification{UrgencyScore: 1, Purpose: "promotion", ResponseNeeded: false}

	assert.InDelta(t, (1.0+0.0+1.0)/3.0, classificationAccuracy(expected, actual), 1e-9)
}

func TestClassificationAccuracy_Nil(t *testing.T) {
	assert.Zero(t, classificationAccuracy(ExpectedClassification{}, nil))
}

func TestTextSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, textSimilarity("review the report", "review the report"), 1e-9)
	assert.InDelta(t, 1.0, textSimilarity("", ""), 1e-9)
	assert.Zero(t, textSimilarity("alpha beta", "gamma delta"))

	// 3 shared of 4 total distinct words.
	sim := textSimilarity("review the quarterly report", "review the report")
	assert.InDelta(t, 0.75, sim, 1e-9)
}

func TestExtractionMetrics(t *testing.T) {
	expected := []ExpectedTask{
		{Description: "Review the quarterly report and send feedback"},
		{Description: "Schedule a meeting with the team"},
	}
	extracted := []pipeline.ExtractedTask{
		{TaskDescription: "Review the quarterly report and send feedback"},
		{TaskDescription: "Order lunch for everyone"},
	}

	precision, recall := extractionMetrics(expected, extracted)
	assert.InDelta(t, 0.5, precision, 1e-9)
	assert.InDelta(t, 0.5, recall, 1e-9)
}

func TestExtractionMetrics_EmptySets(t *testing.T) {
	// A no-task email with no extracted tasks is a perfect result.
	precision, recall := extractionMetrics(nil, nil)
	assert.Equal(t, 1.0, precision)
	assert.Equal(t, 1.0, recall)

	// Hallucinating tasks from a no-task email zeroes precision.
	precision, recall = extractionMetrics(nil, []pipeline.ExtractedTask{{TaskDescription: "made up"}})
	assert.Zero(t, precision)
	assert.Equal(t, 1.0, recall)

	// Missing every expected task zeroes recall.
	precision, recall = extractionMetrics([]ExpectedTask{{Description: "real task"}}, nil)
	assert.Zero(t, precision)
	assert.Zero(t, recall)
}

func TestF1(t *testing.T) {
	assert.Zero(t, f1(0, 0))
	assert.InDelta(t, 1.0, f1(1, 1), 1e-9)
	assert.InDelta(t, 2.0/3.0, f1(0.5, 1.0), 1e-9)
}

func TestChatRelevance(t *testing.T) {
	response := "Hello! You have 3 important emails in your inbox. Can I help you triage them?"
	score := chatRelevance([]string{"greeting", "helpful_offer", "email_summary"}, response)
	assert.InDelta(t, 1.0, score, 1e-9)

	score = chatRelevance([]string{"priority_acknowledgment"}, "everything looks quiet today")
	assert.Zero(t, score)

	assert.InDelta(t, 0.5, chatRelevance(nil, "anything"), 1e-9)
}

func TestChatNaturalness(t *testing.T) {
	natural := "Thanks for asking! I went through your inbox and you have three messages that need a reply."
	assert.InDelta(t, 1.0, chatNaturalness(natural), 1e-9)

	assert.Zero(t, chatNaturalness(""))

	// Jargon costs the no-jargon bonus.
	jargon := "Thanks! I ran your messages through the model and the processing finished without errors today."
	assert.Less(t, chatNaturalness(jargon), chatNaturalness(natural))
}

func TestContainsAnyWord(t *testing.T) {
	assert.True(t, containsAnyWord("can i help you", "i"))
	assert.False(t, containsAnyWord("inbox interesting", "i"))
	assert.True(t, containsAnyWord("that's your call", "your"))
}
