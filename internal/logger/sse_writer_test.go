package logger

import (
	"encoding/json"
	"testing"

	"github.com/r3labs/sse/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSSE struct {
	lastTopic string
	lastEvent *sse.Event
	calls     int
}

func (m *mockSSE) Publish(topic string, event *sse.Event) {
	m.lastTopic = topic
	m.lastEvent = event
	m.calls++
}

func TestSSEWriter_PublishesLogEvents(t *testing.T) {
	srv := &mockSSE{}
	w := NewSSEWriter(srv)

	line := []byte(`{"time":"2026-01-02T15:04:05Z","level":"info","message":"queue flushed"}`)
	n, err := w.Write(line)
	require.NoError(t, err)
	assert.Equal(t, len(line), n)

	require.Equal(t, 1, srv.calls)
	assert.Equal(t, logStream, srv.lastTopic)

	var msg LogMessage
	require.NoError(t, json.Unmarshal(srv.lastEvent.Data, &msg))
	assert.Equal(t, "info", msg.Level)
	assert.Equal(t, "queue flushed", msg.Message)
}

func TestSSEWriter_DropsMalformedEvents(t *testing.T) {
	srv := &mockSSE{}
	w := NewSSEWriter(srv)

	n, err := w.Write([]byte("not json"))
	require.NoError(t, err)
	assert.Equal(t, len("not json"), n)
	assert.Zero(t, srv.calls)
}

func TestSSEWriter_NilServer(t *testing.T) {
	w := SSEWriter{SSE: nil}
	n, err := w.Write([]byte(`{"level":"info","message":"test"}`))
	require.NoError(t, err)
	assert.NotZero(t, n)
}
