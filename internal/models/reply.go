package models

// ActionIgnore tags a reply the reasoning engine decided not to send.
const ActionIgnore = "IGNORE"

// Reply is the payload a reasoning engine produces for a processed
// memory. A reply with empty text, or tagged with ActionIgnore, is
// suppressed by the router and never reaches the hub.
type Reply struct {
	Text        string   `json:"text"`
	Thought     string   `json:"thought,omitempty"`
	Actions     []string `json:"actions,omitempty"`
	Attachments []any    `json:"attachments,omitempty"`
}

// Ignored reports whether the reply carries the ignore action.
func (r Reply) Ignored() bool {
	for _, a := range r.Actions {
		if a == ActionIgnore {
			return true
		}
	}
	return false
}
