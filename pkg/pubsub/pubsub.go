// Package pubsub delivers server-sent events to API subscribers, with
// per-topic buffering so late subscribers see the current state.
package pubsub

import (
	"context"
	"encoding/json"
)

// Event is one published message on a topic.
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`    // e.g. "loaded", "reloaded", "reload_failed"
	Data    json.RawMessage `json:"data"`    // event payload
	Version int             `json:"version"` // per-topic ordering
}

// GraphStatus is the payload published on the "graph" topic whenever the
// causal DAG snapshot changes.
type GraphStatus struct {
	Source  string `json:"source"`  // DOT file the graph was loaded from
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	Message string `json:"message,omitempty"`
}

// Subscription is a client's view of one topic.
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Close() error
}

// Publisher fans events out to topic subscribers.
type Publisher interface {
	// Subscribe registers for a topic; cancelling the context closes
	// the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Publish(topic, eventType string, data interface{}) error
	Close() error
}
