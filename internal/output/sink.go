// Package output defines the diagnostic output collaborator: a sink for all
// user-visible progress and error text produced by the launch/attach core.
package output

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-logr/logr"
)

// Channel classifies a message as normal progress output or error output.
type Channel int

const (
	Normal Channel = iota
	Error
)

// Sink accepts user-visible messages. Implementations decide where the
// text goes (console, IDE output pane, test buffer).
type Sink interface {
	Write(message string, channel Channel)
}

// SinkFunc makes it easy to supply a plain function as a Sink.
type SinkFunc func(message string, channel Channel)

func (f SinkFunc) Write(message string, channel Channel) {
	f(message, channel)
}

// ConsoleSink writes normal output to stdout and error output to stderr.
type ConsoleSink struct{}

func (ConsoleSink) Write(message string, channel Channel) {
	if channel == Error {
		fmt.Fprintln(os.Stderr, message)
		return
	}
	fmt.Println(message)
}

// LogSink routes messages to a logr.Logger, keeping the error classification.
type LogSink struct {
	Log logr.Logger
}

func (s LogSink) Write(message string, channel Channel) {
	if channel == Error {
		s.Log.Error(nil, message)
		return
	}
	s.Log.Info(message)
}

// BufferSink records messages for inspection in tests.
type BufferSink struct {
	mu       sync.Mutex
	messages []Message
}

type Message struct {
	Text    string
	Channel Channel
}

func (s *BufferSink) Write(message string, channel Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Text: message, Channel: channel})
}

func (s *BufferSink) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
