package workers

import (
	"context"
	"log/slog"

	"convocube/contract"
	"convocube/domain"
)

// Ensure *DispatchWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*DispatchWorker)(nil)

// DispatchWorker drains the shared command channel and executes each
// client intent through the handler. Several units run in parallel under
// the supervisor; command execution never holds a registry lock across
// I/O, so units do not serialize each other.
type DispatchWorker struct {
	commands chan domain.Command
	handler  contract.CommandHandler
	log      *slog.Logger
}

func NewDispatchWorker(log *slog.Logger, commands chan domain.Command,
	handler contract.CommandHandler) *DispatchWorker {
	return &DispatchWorker{
		commands: commands,
		handler:  handler,
		log:      log,
	}
}

func (w *DispatchWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.handler.Handle(ctx, cmd)
		}
	}
}
