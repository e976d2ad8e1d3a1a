package action

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubSubSink publishes events to a Google Cloud Pub/Sub topic. Publish
// results are collected asynchronously; a failed publish is logged and
// dropped.
type PubSubSink struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	log    *zap.Logger
}

// NewPubSubSink connects a sink to projectID/topicID.
func NewPubSubSink(ctx context.Context, projectID, topicID string, log *zap.Logger) (*PubSubSink, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return &PubSubSink{client: client, topic: client.Topic(topicID), log: log}, nil
}

// Log implements Logger.
func (s *PubSubSink) Log(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Warn("action event marshal failed", zap.String("action", ev.Name), zap.Error(err))
		return
	}
	res := s.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"event": ev.Name},
	})
	go func() {
		if _, err := res.Get(context.Background()); err != nil {
			s.log.Warn("action event publish failed", zap.String("action", ev.Name), zap.Error(err))
		}
	}()
}

// Close flushes pending publishes and releases the client.
func (s *PubSubSink) Close() error {
	s.topic.Stop()
	return s.client.Close()
}
