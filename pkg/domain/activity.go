package domain

// ActivityType discriminates the inbound/outbound turn envelope.
type ActivityType string

const (
	ActivityMessage            ActivityType = "message"
	ActivityEvent              ActivityType = "event"
	ActivityConversationUpdate ActivityType = "conversationUpdate"
)

// Activity is the opaque turn transport envelope. The engine only reads the
// fields below; anything else a channel carries stays in Properties.
type Activity struct {
	Type        ActivityType   `json:"type"`
	Text        string         `json:"text,omitempty"`
	Name        string         `json:"name,omitempty"` // event name, when Type == ActivityEvent
	Value       any            `json:"value,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// Attachment is a rendered card or file reference attached to an outbound activity.
type Attachment struct {
	ContentType string `json:"content_type"`
	Content     any    `json:"content,omitempty"`
	Name        string `json:"name,omitempty"`
}

// NewMessage builds an outbound text activity.
func NewMessage(text string) Activity {
	return Activity{Type: ActivityMessage, Text: text}
}

// NewEvent builds an event activity carrying a structured value.
func NewEvent(name string, value any) Activity {
	return Activity{Type: ActivityEvent, Name: name, Value: value}
}

// EventActionResult is the event name used to deliver an ActionResult as the
// single synchronous reply of a non-interactive invocation.
const EventActionResult = "actionResult"

// EventTokenResponse is the event name carrying an externally-delivered
// credential back into a suspended auth dialog.
const EventTokenResponse = "tokens/response"
