// Package prompt builds the instruction text sent to providers. Each
// builder returns a system instruction and a user prompt, keeping template
// text separate from the calling pipeline.
package prompt

import (
	"fmt"
	"strings"
)

// Email is the input document most prompts operate on.
type Email struct {
	Sender  string
	Subject string
	Body    string
}

const (
	// maxBodyChars bounds how much email body flows into a prompt.
	maxBodyChars = 2000

	// maxPriorityExamples bounds the personalization block.
	maxPriorityExamples = 6
	// maxNegativeExamples bounds the learned-mistakes block.
	maxNegativeExamples = 8
	// maxStyleExamples bounds the writing-style block.
	maxStyleExamples = 3
)

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}

// Classification builds the email classification prompt. priorityExamples
// are task descriptions the user previously confirmed; emails resembling
// them should score higher.
func Classification(email Email, priorityExamples []string) (system, user string) {
	system = "You are an expert email analysis assistant. " +
		"Classify emails precisely and respond with JSON only."

	var b strings.Builder

	if len(priorityExamples) > 0 {
		examples := priorityExamples
		if len(examples) > maxPriorityExamples {
			examples = examples[:maxPriorityExamples]
		}
		b.WriteString("PERSONALIZED INSIGHTS\n")
		b.WriteString("Based on feedback history, the user considers these high priority:\n")
		for _, example := range examples {
			fmt.Fprintf(&b, "  - %s\n", example)
		}
		b.WriteString("If this email contains similar tasks or topics, assign higher urgency (4-5).\n\n")
	}

	fmt.Fprintf(&b, "EMAIL\nFROM: %s\nSUBJECT: %s\nBODY: %s\n\n",
		email.Sender, email.Subject, truncate(email.Body, maxBodyChars))

	b.WriteString(`CLASSIFICATION TASK
Classify the email's PURPOSE using exactly one of:
- "important": direct questions, requests from key contacts, time-sensitive matters
- "action_request": explicit tasks, "please do X", requests requiring response
- "meeting_invite": calendar invitations, meeting requests, scheduling
- "transactional": receipts, confirmations, automated service notifications
- "newsletter": regular updates, subscriptions, informational content
- "digest_summary": news summaries, platform digests
- "social": social network notifications
- "promotion": marketing emails, sales offers, advertisements
- "information": general updates not requiring action
- "unknown": cannot determine from available content

URGENCY SCORING (1-5)
- 5: critical, immediate action needed
- 4: high, important but not emergency
- 3: medium, standard business communication
- 2: low, informational content
- 1: minimal, promotional or automated content

EXAMPLES
- "URGENT: Client presentation tomorrow" -> urgency 5, purpose "important"
- "Please review contract by EOD" -> urgency 4, purpose "action_request"
- "Emergency meeting in 30 minutes" -> urgency 5, purpose "meeting_invite"
- "Project status update" -> urgency 3, purpose "information"
- "Weekly team meeting agenda" -> urgency 3, purpose "meeting_invite"
- "Your LinkedIn weekly digest" -> urgency 1, purpose "social"
- "Order confirmation #12345" -> urgency 2, purpose "transactional"

OUTPUT
Return only this JSON object with no additional text:
{
    "urgency_score": <1-5 integer>,
    "purpose": "<exact purpose from list above>",
    "response_needed": <true/false>,
    "estimated_time": <minutes as integer>,
    "key_points": ["<concise point 1>", "<concise point 2>"],
    "confidence": <0-100 integer>
}

Analyze now:`)

	return system, b.String()
}

// TaskExtraction builds the action-item extraction prompt.
// negativeExamples are descriptions the user rejected; the model is told
// not to repeat them.
func TaskExtraction(subject, body string, negativeExamples []string) (system, user string) {
	system = "You are a precision task extraction specialist. " +
		"Identify only genuine actionable tasks and respond with a JSON array only."

	var b strings.Builder

	fmt.Fprintf(&b, "EMAIL TO ANALYZE\nSubject: %s\nBody: %s\n\n",
		subject, truncate(body, maxBodyChars))

	if len(negativeExamples) > 0 {
		examples := negativeExamples
		if len(examples) > maxNegativeExamples {
			examples = examples[:maxNegativeExamples]
		}
		b.WriteString("LEARN FROM PAST MISTAKES - do NOT extract these as tasks:\n")
		for _, example := range examples {
			fmt.Fprintf(&b, "  x %s\n", example)
		}
		b.WriteString("These were incorrectly identified as tasks. Avoid similar mistakes.\n\n")
	}

	b.WriteString(`GENUINE TASKS (extract these):
- Direct requests: "Please send me the report"
- Explicit assignments: "I need you to update the presentation"
- Action items: "Review the contract and provide feedback"
- Deadlines with actions: "Submit proposal by Friday"
- Meeting preparations: "Prepare slides for Monday's meeting"

NOT TASKS (ignore these):
- FYI information: "The server will be down tonight"
- General updates: "Project is going well"
- Past events: "The meeting went great yesterday"
- Automated notifications: "Your order has shipped"
- Questions without action: "How was your weekend?"
- Statements: "I'm working on the report"

RULES
1. Only extract clear, actionable items.
2. Include enough detail to understand each task.
3. Extract specific dates/times as deadlines when mentioned.
4. Note people or groups involved as stakeholders.
5. One task per distinct action, no duplicates.

EXAMPLE
Email: "Please review the Q3 report and send feedback by Thursday. Also schedule a follow-up meeting with the team."
[
  {"task_description": "Review Q3 report and send feedback", "deadline": "Thursday", "stakeholders": []},
  {"task_description": "Schedule follow-up meeting with the team", "deadline": null, "stakeholders": ["team"]}
]

Email: "FYI - The system maintenance is scheduled for tonight. No action needed."
[]

OUTPUT
Return only a JSON array. Each task has exactly these fields:
- "task_description": clear, actionable description
- "deadline": specific deadline or null
- "stakeholders": list of people/groups involved or empty list

Extract tasks now:`)

	return system, b.String()
}

// SummaryStyle selects the emphasis of a multi-email summary.
type SummaryStyle string

const (
	SummaryExecutive     SummaryStyle = "executive"
	SummaryDetailed      SummaryStyle = "detailed"
	SummaryActionFocused SummaryStyle = "action-focused"
)

// Summary builds the multi-email digest prompt.
func Summary(emails []Email, style SummaryStyle) (system, user string) {
	system = "You are an executive assistant creating email summaries for a busy professional."

	var instruction string
	switch style {
	case SummaryExecutive:
		instruction = `Create an executive-level summary focusing on:
- Critical decisions needed
- Time-sensitive items
- Key opportunities
- Major issues requiring attention`
	case SummaryActionFocused:
		instruction = `Create an action-oriented summary emphasizing:
- Tasks requiring immediate action
- Response deadlines
- Meeting preparation needs
- Follow-up requirements`
	default:
		instruction = `Create a comprehensive summary including:
- Main topics and themes
- Important details and context
- Action items and deadlines
- Key relationships and stakeholders`
	}

	var b strings.Builder
	b.WriteString("EMAILS TO SUMMARIZE\n")
	for i, email := range emails {
		fmt.Fprintf(&b, "%d. FROM: %s | SUBJECT: %s\n%s\n\n",
			i+1, email.Sender, email.Subject, truncate(email.Body, maxBodyChars/2))
	}

	fmt.Fprintf(&b, "REQUIREMENTS\n%s\n\n", instruction)
	fmt.Fprintf(&b, `OUTPUT FORMAT

## Email Summary (%d emails)

### Priority Items
[Most urgent items requiring immediate attention]

### Action Items
[Specific tasks with deadlines]

### Key Updates
[Important information and developments]

### Notable Mentions
[Opportunities or items to keep in mind]

Keep it professional, concise, organized by urgency, and easy to scan.

Create the summary now:`, len(emails))

	return system, b.String()
}

// ReplySuggestions builds the reply drafting prompt. styleExamples are past
// messages written by the user; suggestions should match their tone.
func ReplySuggestions(emailContent string, styleExamples []string) (system, user string) {
	system = "You draft professional, contextually appropriate email replies. " +
		"Respond with a JSON array of strings only."

	var b strings.Builder
	fmt.Fprintf(&b, "EMAIL CONTENT\n%s\n\n", truncate(emailContent, maxBodyChars))

	if len(styleExamples) > 0 {
		examples := styleExamples
		if len(examples) > maxStyleExamples {
			examples = examples[:maxStyleExamples]
		}
		b.WriteString("THE USER'S COMMUNICATION STYLE\n")
		for _, example := range examples {
			fmt.Fprintf(&b, "  - %s\n", example)
		}
		b.WriteString("Match this tone and style in your suggestions.\n\n")
	}

	b.WriteString(`REQUIREMENTS
- 2-3 reply options with different tones
- Contextually appropriate to the email content
- Professional but personalized
- Complete, ready to send
- Various lengths (brief, moderate, detailed)

Return ONLY a JSON array of strings, nothing else.

Example format:
["Thanks for the update! I'll review this and get back to you by Friday.", "Got it, thank you. Can we schedule a quick call to go over a few questions?"]

Generate suggestions now:`)

	return system, b.String()
}

// Agenda builds the daily agenda synthesis prompt from pending tasks and
// upcoming meetings.
func Agenda(tasks []string, meetings []string) (system, user string) {
	system = "You are an executive assistant preparing a daily agenda. " +
		"Be concrete and concise."

	var b strings.Builder
	b.WriteString("PENDING TASKS\n")
	if len(tasks) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, task := range tasks {
		fmt.Fprintf(&b, "  - %s\n", task)
	}

	b.WriteString("\nUPCOMING MEETINGS\n")
	if len(meetings) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, meeting := range meetings {
		fmt.Fprintf(&b, "  - %s\n", meeting)
	}

	b.WriteString(`
Produce a prioritized agenda for today:
1. Order items by urgency and deadline.
2. Group related tasks.
3. Flag anything at risk of being missed.
4. Suggest a realistic time block for each item.

Use short markdown sections. Do not invent tasks or meetings that are not listed above.

Write the agenda now:`)

	return system, b.String()
}
