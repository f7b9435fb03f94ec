// Package events announces persisted records to downstream consumers
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
)

// Event kinds
const (
	BatchCreated  = "batch.created"
	BatchUpdated  = "batch.updated"
	CountsCreated = "counts.created"
)

// Event describes records that were written
type Event struct {
	Kind       string    `json:"kind"`
	Collection string    `json:"collection"`
	IDs        []string  `json:"ids"`
	At         time.Time `json:"at"`
}

// Publisher sends events
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop drops every event
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// PubSubPublisher publishes events as JSON messages on a Cloud Pub/Sub topic
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher connects with application default credentials and
// creates the topic when it does not exist
func NewPubSubPublisher(ctx context.Context, project, topic string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	t := client.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check topic %q: %w", topic, err)
	}
	if !ok {
		if t, err = client.CreateTopic(ctx, topic); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("create topic %q: %w", topic, err)
		}
	}
	return &PubSubPublisher{client: client, topic: t}, nil
}

// Publish waits for the server to acknowledge the message
func (p *PubSubPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"kind": e.Kind},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", e.Kind, err)
	}
	return nil
}

func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error // returned from Publish when set
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns what has been published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Close() error { return nil }
