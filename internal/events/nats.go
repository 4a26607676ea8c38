package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS publishes events as JSON on "<prefix>.<status>" subjects.
type NATS struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials the NATS server with unlimited reconnects.
func Connect(url, prefix string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("outfitlens-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &NATS{nc: nc, prefix: strings.TrimSuffix(prefix, ".")}, nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() {
	if n != nil && n.nc != nil {
		_ = n.nc.Drain()
	}
}

// Subject returns the subject used for events with the given status.
func (n *NATS) Subject(ev GenerationEvent) string {
	return Subject(n.prefix, ev)
}

func (n *NATS) PublishGeneration(_ context.Context, ev GenerationEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.nc.Publish(n.Subject(ev), b)
}

// Subject joins prefix and the event status.
func Subject(prefix string, ev GenerationEvent) string {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		return string(ev.Status)
	}
	return prefix + "." + string(ev.Status)
}
