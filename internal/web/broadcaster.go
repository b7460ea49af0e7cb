package web

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/ScanGo/internal/logic/report"
	"github.com/cjeanneret/ScanGo/internal/numfmt"
)

// Event levels used on the status stream.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// subscriberBuffer is how many events a slow client may lag behind before
// it starts missing them.
const subscriberBuffer = 64

// StatusEvent is one line of the evaluation log pushed over SSE.
type StatusEvent struct {
	Time       string `json:"t"`
	Level      string `json:"l,omitempty"`
	Evaluation string `json:"id,omitempty"` // short evaluation id
	Msg        string `json:"msg"`
}

// StatusBroadcaster fans evaluation log lines out to every connected SSE client.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel of JSON-encoded StatusEvents and a cleanup
// function the caller must run when the client goes away.
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, subscriberBuffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Subscribers returns the number of connected clients.
func (b *StatusBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish stamps evt with the current time if it has none and hands it to
// every client with room in its buffer. Full clients miss the event.
func (b *StatusBroadcaster) Publish(evt StatusEvent) {
	if evt.Time == "" {
		evt.Time = time.Now().Format(time.RFC3339)
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
		}
	}
}

// Broadcast publishes a plain message at the given level.
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.Publish(StatusEvent{Level: level, Msg: msg})
}

// Evaluation publishes the outcome of one evaluation: T and PT when the
// inputs were valid (info), the number of input errors otherwise (warn).
func (b *StatusBroadcaster) Evaluation(rep *report.Report) {
	evt := StatusEvent{Evaluation: shortID(rep.ID)}
	if rep.Valid && rep.Metrics != nil {
		evt.Level = LevelInfo
		evt.Msg = fmt.Sprintf("evaluation %s: T = %s s, PT = %s points", evt.Evaluation,
			numfmt.MustFormat(rep.Metrics.Duration, 2), numfmt.MustFormat(rep.Metrics.TotalPoints, 0))
	} else {
		evt.Level = LevelWarn
		evt.Msg = fmt.Sprintf("evaluation %s: %d input error(s)", evt.Evaluation, len(rep.Violations))
	}
	b.Publish(evt)
}

// Failure publishes a server-side failure of the named operation.
func (b *StatusBroadcaster) Failure(op string, err error) {
	b.Broadcast(LevelError, fmt.Sprintf("%s failed: %v", op, err))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// LogWriter returns an io.Writer for debug.SetOutput. Every non-empty line
// written becomes one event; [WARN] and [ERROR] lines keep their level.
func LogWriter(b *StatusBroadcaster) io.Writer {
	return logWriter{b: b}
}

type logWriter struct {
	b *StatusBroadcaster
}

func (w logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		w.b.Broadcast(logLevel(line), line)
	}
	return len(p), nil
}

func logLevel(line string) string {
	switch {
	case strings.Contains(line, "[ERROR]"):
		return LevelError
	case strings.Contains(line, "[WARN]"):
		return LevelWarn
	default:
		return LevelInfo
	}
}
