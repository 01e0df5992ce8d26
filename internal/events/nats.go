package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"photoquest/internal/logger"

	"github.com/nats-io/nats.go"
)

const SubjectPrefix = "photoquest."

// NATSPublisher publishes events to "photoquest.<type>" on a core NATS connection.
type NATSPublisher struct {
	nc *nats.Conn
}

// ConnectNATS dials url with reconnect handling.
func ConnectNATS(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("photoquest-api"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Error("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	logger.Info("nats connected", "url", url)
	return &NATSPublisher{nc: nc}, nil
}

func Subject(t Type) string {
	return SubjectPrefix + string(t)
}

func (p *NATSPublisher) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := nats.NewMsg(Subject(e.Type))
	msg.Data = data
	msg.Header.Set("Nats-Msg-Id", e.ID)
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Ping reports whether the connection to the server is up.
func (p *NATSPublisher) Ping(context.Context) error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats %s", p.nc.Status())
	}
	return nil
}

// Close flushes buffered messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
