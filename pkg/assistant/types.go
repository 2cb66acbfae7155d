package assistant

// IntentRequest asks the assistant to classify a chat message.
type IntentRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// IntentFields are the meeting fields extracted from the message.
type IntentFields struct {
	DurationMinutes int      `json:"duration,omitempty"`
	Purpose         string   `json:"purpose,omitempty"`
	Participants    []string `json:"participants"`
	SuggestedTitle  string   `json:"suggestedTitle,omitempty"`
}

// IntentResult is the assistant's classification of the user message.
type IntentResult struct {
	Intent     string       `json:"intent"`
	Confidence float64      `json:"confidence"`
	Fields     IntentFields `json:"fields"`
	Missing    []string     `json:"missing"`
}

// minConfidence is the threshold below which an extracted scheduling intent
// is ignored.
const minConfidence = 0.6

// ShouldSchedule reports whether the extraction should start a workflow.
func (r *IntentResult) ShouldSchedule() bool {
	return r.Intent != "other" && r.Confidence > minConfidence
}

// TitleRequest asks for a meeting title and an enhanced purpose.
type TitleRequest struct {
	Purpose      string         `json:"purpose"`
	Participants []string       `json:"participants"`
	Context      map[string]any `json:"context,omitempty"`
}

// TitleResult carries the generated title material.
type TitleResult struct {
	Title            string   `json:"title"`
	EnhancedPurpose  string   `json:"enhancedPurpose"`
	TitleSuggestions []string `json:"titleSuggestions"`
	KeyPoints        []string `json:"keyPoints"`
}

// AgendaRequest asks for a meeting agenda draft.
type AgendaRequest struct {
	MeetingID       string   `json:"meetingId"`
	Title           string   `json:"title"`
	EnhancedPurpose string   `json:"enhancedPurpose"`
	Participants    []string `json:"participants"`
	DurationMinutes int      `json:"duration"`
	MeetingLink     string   `json:"meetingLink,omitempty"`
	StartTime       string   `json:"startTime,omitempty"`
	EndTime         string   `json:"endTime,omitempty"`
}

// AgendaContent is the generated agenda in both renderings.
type AgendaContent struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// AgendaResult wraps the generated agenda.
type AgendaResult struct {
	Agenda AgendaContent `json:"agenda"`
}
