package types

// Feedback nudges the ranking of a topic or domain. Positive deltas mean
// "more like this".
type Feedback struct {
	Category string  `json:"category"`
	Topic    string  `json:"topic,omitempty"`
	Domain   string  `json:"domain,omitempty"`
	Delta    float64 `json:"delta" binding:"required"`
}

// Validate returns an error message when the feedback targets nothing.
func (f Feedback) Validate() string {
	if f.Topic == "" && f.Domain == "" {
		return "feedback needs a topic or a domain"
	}
	if f.Delta == 0 {
		return "feedback delta must be non-zero"
	}
	return ""
}
