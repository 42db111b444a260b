package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/maiahq/maia/server/internal/errors"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n[]\n```  ", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripFences(tt.input))
		})
	}
}

func TestParseClassification(t *testing.T) {
	result, err := parseClassification("```json\n" + `{
		"urgency_score": 4,
		"purpose": "action_request",
		"response_needed": true,
		"estimated_time": 15,
		"key_points": ["review contract"],
		"confidence": 88
	}` + "\n```")

	require.NoError(t, err)
	assert.Equal(t, 4, result.UrgencyScore)
	assert.Equal(t, "action_request", result.Purpose)
	assert.True(t, result.ResponseNeeded)
	assert.Equal(t, 88, result.Confidence)
}

func TestParseClassification_Normalizes(t *testing.T) {
	result, err := parseClassification(`{"urgency_score": 9, "purpose": "spam-ish", "confidence": 150}`)
	require.NoError(t, err)
	assert.Equal(t, 5, result.UrgencyScore)
	assert.Equal(t, "unknown", result.Purpose)
	assert.Equal(t, 100, result.Confidence)
	assert.NotNil(t, result.KeyPoints)

	result, err = parseClassification(`{"urgency_score": 0, "purpose": "important", "confidence": -5}`)
	require.NoError(t, err)
	assert.Equal(t, 1, result.UrgencyScore)
	assert.Zero(t, result.Confidence)
}

func TestParseClassification_InvalidJSON(t *testing.T) {
	_, err := parseClassification("the email seems urgent")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeContentInvalid))
}

func TestParseTasks_DropsRecordsWithoutDescription(t *testing.T) {
	tasks, err := parseTasks(`[
		{"task_description": "Send report", "deadline": "Friday", "stakeholders": ["alice"]},
		{"deadline": "Monday", "stakeholders": []},
		{"task_description": "   ", "deadline": null},
		{"task_description": "Book room", "deadline": null, "stakeholders": null}
	]`)

	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Send report", tasks[0].TaskDescription)
	assert.Equal(t, []string{"alice"}, tasks[0].Stakeholders)
	assert.Equal(t, "Book room", tasks[1].TaskDescription)
	assert.Empty(t, tasks[1].Stakeholders)
}

func TestParseTasks_CoercesStakeholderString(t *testing.T) {
	tasks, err := parseTasks(`[{"task_description": "Call vendor", "stakeholders": "procurement team"}]`)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, []string{"procurement team"}, tasks[0].Stakeholders)
}

func TestParseTasks_EmptyArray(t *testing.T) {
	tasks, err := parseTasks("```json\n[]\n```")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestParseTasks_InvalidJSON(t *testing.T) {
	for _, input := range []string{
		"no tasks found",
		`{"task_description": "not an array"}`,
		"",
	} {
		_, err := parseTasks(input)
		require.Error(t, err, "input: %q", input)
		assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeContentInvalid))
	}
}

func TestParseReplies(t *testing.T) {
	replies, err := parseReplies(`["Thanks, will do!", "", "  Let me check and revert.  "]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Thanks, will do!", "Let me check and revert."}, replies)
}

func TestParseReplies_AllEmpty(t *testing.T) {
	_, err := parseReplies(`["", "   "]`)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeContentInvalid))
}
