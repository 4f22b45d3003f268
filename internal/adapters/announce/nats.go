// Package announce publishes extracted records to NATS JetStream so
// downstream consumers (summarizers, archivers) can react to new tweets
// without polling the HTTP API.
package announce

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"tweetlens/internal/domain"
	"tweetlens/pkg/log"
)

const (
	streamName    = "TWEETLENS"
	subjectTweets = "tweetlens.tweets"
	subjectThread = "tweetlens.threads"
)

// Publisher is a pipeline sink backed by a JetStream stream. Publish
// failures are surfaced to the caller and logged there; the broker being
// down never blocks scanning.
type Publisher struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	log *log.Logger
}

// Connect dials the broker and ensures the stream covering both
// subjects exists.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("tweetlens"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectTweets, subjectThread},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", streamName, err)
	}

	logger := log.Default().With("component", "announce")
	logger.Info("jetstream ready", "stream", streamName)
	return &Publisher{nc: nc, js: js, log: logger}, nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// OnTweetExtracted publishes the record on the tweets subject.
func (p *Publisher) OnTweetExtracted(ctx context.Context, rec *domain.TweetRecord) error {
	return p.publish(ctx, subjectTweets, rec, rec.ID)
}

// OnThreadExtracted publishes the thread on the threads subject.
func (p *Publisher) OnThreadExtracted(ctx context.Context, rec *domain.ThreadRecord) error {
	key := ""
	if len(rec.Tweets) > 0 {
		key = rec.Tweets[0].ID
	}
	return p.publish(ctx, subjectThread, rec, key)
}

func (p *Publisher) publish(ctx context.Context, subject string, payload any, key string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.log.Debug("published", "subject", subject, "key", key)
	return nil
}
