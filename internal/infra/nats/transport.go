// Package nats relays events between instances over a NATS subject.
package nats

import (
	"context"
	"errors"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"content-studio/internal/config"
	"content-studio/internal/infra/events"
	"content-studio/internal/infra/metrics"
)

var _ events.Transport = (*Transport)(nil)

type Transport struct {
	conn    *natsgo.Conn
	subject string
	log     *zerolog.Logger
}

// Connect dials the server and keeps reconnecting in the background.
func Connect(cfg config.NATSConfig, logger *zerolog.Logger) (*Transport, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url is empty")
	}
	l := logger.With().Str("component", "NATSTransport").Logger()
	nc, err := natsgo.Connect(cfg.URL,
		natsgo.Name("content-studio"),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				l.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(c *natsgo.Conn) {
			l.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Transport{conn: nc, subject: cfg.Subject, log: &l}, nil
}

func (t *Transport) Name() string { return "nats" }

func (t *Transport) Publish(_ context.Context, data []byte) error {
	return t.conn.Publish(t.subject, data)
}

func (t *Transport) Messages(ctx context.Context) (<-chan []byte, error) {
	in := make(chan *natsgo.Msg, 64)
	sub, err := t.conn.ChanSubscribe(t.subject, in)
	if err != nil {
		return nil, err
	}
	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Unsubscribe(); err != nil && !errors.Is(err, natsgo.ErrConnectionClosed) {
				metrics.IncRelayError("nats", "unsubscribe")
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-in:
				select {
				case out <- m.Data:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close drains in-flight messages before closing the connection.
func (t *Transport) Close() error {
	if err := t.conn.Drain(); err != nil {
		t.conn.Close()
		return err
	}
	return nil
}
