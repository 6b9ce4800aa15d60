package logger

import (
	"encoding/json"

	"github.com/r3labs/sse/v2"
)

const logStream = "logs"

// SSEPublisher is the part of sse.Server the writer needs.
type SSEPublisher interface {
	Publish(topic string, event *sse.Event)
}

// LogMessage is the shape published to the logs stream.
type LogMessage struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Bytes returns the JSON encoding of the message.
func (lm LogMessage) Bytes() ([]byte, error) {
	return json.Marshal(lm)
}

// SSEWriter forwards zerolog JSON events to SSE subscribers.
type SSEWriter struct {
	SSE SSEPublisher
}

func NewSSEWriter(srv SSEPublisher) SSEWriter {
	return SSEWriter{SSE: srv}
}

// Write implements io.Writer. The input is a single zerolog JSON event.
// Malformed events are dropped rather than breaking the writer chain.
func (w SSEWriter) Write(p []byte) (int, error) {
	if w.SSE == nil {
		return len(p), nil
	}

	var event struct {
		Time    string `json:"time"`
		Level   string `json:"level"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(p, &event); err != nil {
		return len(p), nil
	}

	data, err := LogMessage{Time: event.Time, Level: event.Level, Message: event.Message}.Bytes()
	if err != nil {
		return len(p), nil
	}

	w.SSE.Publish(logStream, &sse.Event{Data: data})

	return len(p), nil
}
