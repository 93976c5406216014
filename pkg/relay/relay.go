// Package relay receives chat-platform event envelopes over HTTP and forwards
// the inner event to the streaming buffer.
package relay

import (
	"encoding/json"
	"fmt"
)

// envelope is the inbound trigger payload. The event of interest is either at
// the top level or nested inside a JSON-encoded "body" string, depending on
// how the platform delivered the request.
type envelope struct {
	Event json.RawMessage `json:"event"`
	Body  string          `json:"body"`
}

// ExtractEvent locates the nested event object in a trigger payload. It tries
// the direct `event` field first, then a JSON-decoded `body` field's `event`
// sub-field. The returned bytes are the event object exactly as the producer
// sent it.
func ExtractEvent(payload []byte) (json.RawMessage, error) {
	var outer envelope
	if err := json.Unmarshal(payload, &outer); err != nil {
		return nil, fmt.Errorf("decode trigger payload: %w", err)
	}

	if isJSONObject(outer.Event) {
		return outer.Event, nil
	}

	if outer.Body != "" {
		var inner envelope
		if err := json.Unmarshal([]byte(outer.Body), &inner); err != nil {
			return nil, fmt.Errorf("decode body field: %w", err)
		}
		if isJSONObject(inner.Event) {
			return inner.Event, nil
		}
	}

	return nil, fmt.Errorf("no 'event' found in the incoming request")
}

// isJSONObject reports whether raw holds an actual object, rather than being
// absent or an explicit null.
func isJSONObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}
