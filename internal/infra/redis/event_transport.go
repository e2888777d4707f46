package redis

import (
	"context"

	"content-studio/internal/infra/events"
)

var _ events.Transport = (*EventTransport)(nil)

// EventTransport carries encoded events over a Redis pub/sub channel.
type EventTransport struct {
	client  *Client
	channel string
}

func NewEventTransport(client *Client, channel string) *EventTransport {
	return &EventTransport{client: client, channel: channel}
}

func (t *EventTransport) Name() string { return "redis" }

func (t *EventTransport) Publish(ctx context.Context, data []byte) error {
	return t.client.Publish(ctx, t.channel, data)
}

func (t *EventTransport) Messages(ctx context.Context) (<-chan []byte, error) {
	ps := t.client.cli.Subscribe(ctx, t.channel)
	// wait for the subscription confirmation so errors surface here
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer ps.Close()
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(m.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
