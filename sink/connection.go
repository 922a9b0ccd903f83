package sink

import (
	"context"
	"log/slog"

	"convocube/domain/event"
)

// Connection is the outbound half of one live connection: a buffered
// channel the fanout layer pushes into and the connection's write loop
// drains. Under backpressure events are dropped rather than blocking the
// dispatcher.
type Connection struct {
	Events chan event.ServerEvent
	log    *slog.Logger
}

func NewConnection(log *slog.Logger, bufferSize int) *Connection {
	return &Connection{
		Events: make(chan event.ServerEvent, bufferSize),
		log:    log,
	}
}

// Push is called by the fanout dispatcher. It hands the event to the
// connection's write loop and returns immediately when the buffer is full.
func (c *Connection) Push(ctx context.Context, e event.ServerEvent) error {
	select {
	case c.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		c.log.Warn("Connection buffer full, dropping event", "event", e.EventName())
		return nil
	}
}
