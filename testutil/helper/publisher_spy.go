package helper

import (
	"context"
	"sync"
)

// PublishedMessage is one captured Publish call.
type PublishedMessage struct {
	Topic string
	Key   []byte
	Value any
}

// PublisherSpy captures published messages and optionally fails every call.
type PublisherSpy struct {
	mu       sync.Mutex
	messages []PublishedMessage
	err      error
	closed   bool
}

// NewPublisherSpy creates a PublisherSpy that accepts every message.
func NewPublisherSpy() *PublisherSpy {
	return &PublisherSpy{messages: make([]PublishedMessage, 0)}
}

// NewFailingPublisherSpy creates a PublisherSpy that records every message and then returns err.
func NewFailingPublisherSpy(err error) *PublisherSpy {
	return &PublisherSpy{messages: make([]PublishedMessage, 0), err: err}
}

// Publish records the message.
func (s *PublisherSpy) Publish(_ context.Context, topic string, key []byte, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, PublishedMessage{Topic: topic, Key: append([]byte(nil), key...), Value: value})

	return s.err
}

// Close marks the spy as closed.
func (s *PublisherSpy) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true

	return nil
}

// Messages returns a copy of the captured messages.
func (s *PublisherSpy) Messages() []PublishedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]PublishedMessage, len(s.messages))
	copy(messages, s.messages)

	return messages
}

// Count returns the number of captured messages.
func (s *PublisherSpy) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.messages)
}

// Closed reports whether Close was called.
func (s *PublisherSpy) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
