//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"convocube/domain"
	"convocube/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// ConnectionSink is the outbound half of one live connection. Push must
// never block longer than the caller's context allows.
type ConnectionSink interface {
	Push(ctx context.Context, e event.ServerEvent) error
}

// IConnectionRegistry maps a user to its single active connection sink.
type IConnectionRegistry interface {
	Register(user domain.UserID, sink ConnectionSink)
	Unregister(sink ConnectionSink)
	Lookup(user domain.UserID) (ConnectionSink, bool)
	Count() int
}

// IGroupDirectory resolves a chat id to a group record.
// A nil record with errors.ErrGroupNotFound means "not a group".
type IGroupDirectory interface {
	GetGroup(ctx context.Context, id domain.ChatID) (*domain.GroupRecord, error)
}

// ITargetResolver classifies a destination id as individual or group.
type ITargetResolver interface {
	Resolve(ctx context.Context, destination domain.ChatID) domain.ChatTarget
}

// IMessageStore is the durable persistence collaborator. Persistence is
// independent from fanout and never gates it.
type IMessageStore interface {
	StoreMessage(msg domain.Message) error
	GetMessages(chat domain.ChatID, cursor *string) ([]domain.Message, *string, error)
}

// IMessageIndex maintains the full-text index over persisted messages.
type IMessageIndex interface {
	Index(msg domain.Message) error
	Search(ctx context.Context, terms string, chat domain.ChatID, limit int) ([]string, error)
}

// CommandHandler executes one client command end to end.
type CommandHandler interface {
	Handle(ctx context.Context, cmd domain.Command)
}
