package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/mhutton/causal-analyzer/pkg/logging"
)

// TopicConfig controls event buffering for a topic.
type TopicConfig struct {
	BufferSize int  // number of events to retain (0 disables buffering)
	ReplayAll  bool // replay the whole buffer to new subscribers, not just the last event
}

// SSEPublisher is an in-process Publisher whose events are written to
// HTTP responses as server-sent events.
type SSEPublisher struct {
	mu      sync.Mutex
	subs    map[string]map[*subscription]bool
	buffers map[string][]Event
	configs map[string]TopicConfig
	version map[string]int
	closed  bool
}

// NewSSEPublisher creates an SSE publisher.
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{
		subs:    make(map[string]map[*subscription]bool),
		buffers: make(map[string][]Event),
		configs: make(map[string]TopicConfig),
		version: make(map[string]int),
	}
}

// ConfigureTopic sets the buffering behavior of a topic.
func (p *SSEPublisher) ConfigureTopic(topic string, cfg TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs[topic] = cfg
}

// Subscribe registers a new subscriber and replays buffered events per
// the topic configuration.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("publisher is closed")
	}

	sub := &subscription{
		topic:     topic,
		events:    make(chan Event, 64), // buffered so publishers never block
		publisher: p,
	}
	if p.subs[topic] == nil {
		p.subs[topic] = make(map[*subscription]bool)
	}
	p.subs[topic][sub] = true

	replay := append([]Event(nil), p.buffers[topic]...)
	if !p.configs[topic].ReplayAll && len(replay) > 1 {
		replay = replay[len(replay)-1:]
	}
	p.mu.Unlock()

	for _, event := range replay {
		select {
		case sub.events <- event:
		default:
			logging.Warn("dropped replay event", "topic", topic)
		}
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

// Publish delivers an event to every subscriber of the topic.
func (p *SSEPublisher) Publish(topic, eventType string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshalling event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	p.version[topic]++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    payload,
		Version: p.version[topic],
	}

	if size := p.configs[topic].BufferSize; size > 0 {
		buffer := append(p.buffers[topic], event)
		if len(buffer) > size {
			buffer = buffer[len(buffer)-size:]
		}
		p.buffers[topic] = buffer
	}

	for sub := range p.subs[topic] {
		select {
		case sub.events <- event:
		default:
			logging.Warn("subscriber channel full, dropping event", "topic", topic)
		}
	}
	return nil
}

// Close shuts down the publisher and every subscription.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	var all []*subscription
	for _, subs := range p.subs {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	p.subs = make(map[string]map[*subscription]bool)
	p.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
	return nil
}

func (p *SSEPublisher) unsubscribe(sub *subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if subs := p.subs[sub.topic]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(p.subs, sub.topic)
		}
	}
}

type subscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	closeOnce sync.Once
}

func (s *subscription) Topic() string        { return s.topic }
func (s *subscription) Events() <-chan Event { return s.events }

// Close detaches the subscription and closes its event channel. The
// unsubscribe happens under the publisher lock, so no publish can race
// the close.
func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.publisher.unsubscribe(s)
		close(s.events)
	})
	return nil
}

// WriteSSE writes one event in text/event-stream framing.
func WriteSSE(w io.Writer, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
	return err
}
