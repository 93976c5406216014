// Package sentiment holds the domain model for the political-sentiment
// pipeline and the classifier that produces verdicts from message text.
package sentiment

// MessageEvent is a chat-platform message as delivered by the event source.
// The pipeline treats the payload as an open JSON object and only ever relies
// on the fields below; anything else a producer sends rides along untouched.
type MessageEvent struct {
	// Type is the event tag, always "message" for events this pipeline accepts.
	Type string `json:"type"`
	// User is an opaque user identifier.
	User string `json:"user"`
	// Channel is an opaque channel identifier.
	Channel string `json:"channel"`
	// Text is the free-form message body. May be empty.
	Text string `json:"text"`
	// Ts is the platform's floating-point epoch timestamp, as a string.
	Ts string `json:"ts"`
}

// Verdict is the classifier's judgment of a single message text.
type Verdict struct {
	// IsPolitical reports whether the message is political.
	IsPolitical bool `json:"is_political" firestore:"is_political"`
	// Score is the sentiment score in [-10, 10]. It is meaningful only when
	// IsPolitical is true and is defined as 0 otherwise.
	Score int `json:"sentiment_score" firestore:"sentiment_score"`
}

// Neutral is the safe default verdict substituted for every classification
// failure mode.
func Neutral() Verdict {
	return Verdict{IsPolitical: false, Score: 0}
}
