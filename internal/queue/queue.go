package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// SeparationEvent announces a finished separation.
type SeparationEvent struct {
	ID              string            `json:"id"`
	Filename        string            `json:"filename"`
	Stems           int               `json:"stems"`
	OutputPaths     map[string]string `json:"output_paths"`
	DurationSeconds float64           `json:"duration_seconds"`
	CompletedAt     time.Time         `json:"completed_at"`
}

// NewSeparationEvent stamps an event with a fresh id and the current time.
func NewSeparationEvent(filename string, stems int, paths map[string]string, took time.Duration) SeparationEvent {
	return SeparationEvent{
		ID:              uuid.NewString(),
		Filename:        filename,
		Stems:           stems,
		OutputPaths:     paths,
		DurationSeconds: took.Seconds(),
		CompletedAt:     time.Now().UTC(),
	}
}

// Publisher sends separation events somewhere.
type Publisher interface {
	PublishSeparation(ctx context.Context, evt SeparationEvent) error
}

const flushTimeout = 5 * time.Second

type NatsClient struct {
	conn    *nats.Conn
	subject string
}

var _ Publisher = (*NatsClient)(nil)

func NewNatsClient(url, subject string) (*NatsClient, error) {
	// default options: reconnects, timeout
	opts := []nats.Option{
		nats.Name("stems-separator"),
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(-1),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to nats at %s", url)
	}
	return &NatsClient{conn: nc, subject: subject}, nil
}

func (n *NatsClient) Close() {
	if n.conn != nil && !n.conn.IsClosed() {
		n.conn.Close()
	}
}

func (n *NatsClient) Subject() string { return n.subject }

// PublishSeparation publishes evt on the client's subject and flushes so the
// message has left the process before the HTTP response is written.
func (n *NatsClient) PublishSeparation(ctx context.Context, evt SeparationEvent) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "marshal separation event")
	}
	if err := n.conn.Publish(n.subject, b); err != nil {
		return errors.Wrapf(err, "publish to %s", n.subject)
	}
	// FlushWithContext refuses contexts without a deadline
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	return errors.Wrap(n.conn.FlushWithContext(ctx), "flush nats")
}

// Subscribe with a queue group; callback handles message
func (n *NatsClient) QueueSubscribe(queue string, cb func(msg *nats.Msg)) (*nats.Subscription, error) {
	return n.conn.QueueSubscribe(n.subject, queue, cb)
}
