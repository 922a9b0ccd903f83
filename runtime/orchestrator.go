// Package runtime wires presence, fanout, typing, and status tracking.
// It orchestrates the system without containing transport or storage logic.
package runtime

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"

	"convocube/contract"
	"convocube/domain"
	"convocube/domain/event"
	"convocube/moderation"
	"convocube/runtime/workers"
)

//go:embed censored/*
var censoredFolder embed.FS

// Orchestrator is the explicitly constructed coordination core: it owns
// the connection registry, the fanout dispatcher, the status tracker and
// the typing coordinator, and executes client commands through a
// supervised worker pool. There is no ambient global state; everything is
// reachable only through its operations.
type Orchestrator struct {
	log        *slog.Logger
	supervisor contract.ISupervisor
	registry   contract.IConnectionRegistry
	resolver   contract.ITargetResolver
	dispatcher *FanoutDispatcher
	tracker    *StatusTracker
	typing     *TypingCoordinator
	moderator  moderation.Moderator
	store      contract.IMessageStore
	index      contract.IMessageIndex

	commands          chan domain.Command
	numWorkers        int
	telemetryInterval time.Duration
	charReplacement   rune
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IConnectionRegistry, resolver contract.ITargetResolver,
	store contract.IMessageStore, index contract.IMessageIndex,
	numWorkers, bufferSize int,
	pushTimeout, typingExpiry, telemetryInterval time.Duration,
	charReplacement rune) *Orchestrator {
	o := &Orchestrator{
		log:               log,
		supervisor:        supervisor,
		registry:          registry,
		resolver:          resolver,
		store:             store,
		index:             index,
		commands:          make(chan domain.Command, bufferSize),
		numWorkers:        numWorkers,
		telemetryInterval: telemetryInterval,
		charReplacement:   charReplacement,
	}
	o.dispatcher = NewFanoutDispatcher(log, registry, resolver, pushTimeout)
	o.tracker = NewStatusTracker(log, o.dispatcher)
	o.typing = NewTypingCoordinator(log, typingExpiry, o.expireTyping)
	return o
}

// Attach binds a live connection to a user identity. A reconnect for the
// same user supersedes the previous connection.
func (o *Orchestrator) Attach(user domain.UserID, sink contract.ConnectionSink) {
	o.registry.Register(user, sink)
	o.log.Info(fmt.Sprintf("User %s online", user))
}

// Detach tears down exactly one registry entry, the one still pointing at
// this sink, and cancels every typing timer the user owns. A disconnect
// racing a fresh reconnect never evicts the new connection.
func (o *Orchestrator) Detach(user domain.UserID, sink contract.ConnectionSink) {
	o.registry.Unregister(sink)
	if user != "" {
		o.typing.CancelUser(user)
		o.log.Info(fmt.Sprintf("User %s offline", user))
	}
}

// Dispatch enqueues a client command for the worker pool. Under
// backpressure the command is dropped with a warning rather than blocking
// the connection's read loop.
func (o *Orchestrator) Dispatch(cmd domain.Command) {
	select {
	case o.commands <- cmd:
	default:
		o.log.Warn(fmt.Sprintf("Command channel full, dropping command from %s", cmd.Origin()))
	}
}

// Handle executes one command end to end. Called by the dispatch workers.
func (o *Orchestrator) Handle(ctx context.Context, cmd domain.Command) {
	switch c := cmd.(type) {
	case domain.SendMessageCommand:
		o.handleSend(ctx, c)
	case domain.TypingCommand:
		o.handleTyping(ctx, c)
	case domain.StopTypingCommand:
		o.handleStopTyping(ctx, c)
	case domain.MarkDeliveredCommand:
		o.tracker.MarkDelivered(ctx, c.MessageID, c.Sender, c.Recipient)
	case domain.MarkSeenCommand:
		o.tracker.MarkSeen(ctx, c.MessageID, c.Sender, c.Recipient)
	default:
		o.log.Warn(fmt.Sprintf("Unhandled command type %T", cmd))
	}
}

// Tracker exposes the status state machine to the gateway layer.
func (o *Orchestrator) Tracker() *StatusTracker {
	return o.tracker
}

// Typing exposes the typing coordinator, mainly for tests and tooling.
func (o *Orchestrator) Typing() *TypingCoordinator {
	return o.typing
}

func (o *Orchestrator) handleSend(ctx context.Context, cmd domain.SendMessageCommand) {
	body, foundWords := o.moderator.Censor(cmd.Body)
	if len(foundWords) > 0 {
		o.log.Warn("Message censored",
			"author", cmd.From,
			"words", len(foundWords))
	}

	info := whatlanggo.Detect(body)
	kind := domain.DetectKind(cmd.Attachment)

	msg := domain.Message{
		ID:        cmd.MessageID,
		Sender:    cmd.From,
		Chat:      cmd.To,
		Body:      body,
		Kind:      kind,
		Lang:      info.Lang.Iso6391(),
		ReplyTo:   cmd.ReplyTo,
		Status:    domain.StatusSending,
		CreatedAt: cmd.At,
	}
	o.tracker.Track(msg.ID)

	o.dispatcher.Dispatch(ctx, cmd.From, cmd.To, func(target domain.ChatTarget) event.ServerEvent {
		evt := event.MessageReceived{
			MessageID:   msg.ID,
			Msg:         body,
			From:        cmd.From,
			Status:      domain.StatusSent.String(),
			ReplyTo:     cmd.ReplyTo,
			MessageType: string(kind),
		}
		if target.IsGroup() {
			evt.To = cmd.To
			evt.IsGroup = true
			evt.GroupName = target.GroupName()
		}
		return evt
	})

	// Persistence is independent from fanout and never gated on it.
	// On failure the sender is told explicitly and the message stays at
	// sending; nothing is fanned to anyone else.
	if err := o.store.StoreMessage(msg); err != nil {
		o.log.Error("Message persistence failed",
			"message_id", msg.ID,
			"error", err)
		o.dispatcher.PushTo(ctx, cmd.From, event.SendFailed{
			MessageID: msg.ID,
			Reason:    "persistence failed",
		})
		return
	}
	o.tracker.MarkSent(msg.ID)

	if o.index != nil {
		if err := o.index.Index(msg); err != nil {
			o.log.Warn("Message indexing failed", "message_id", msg.ID, "error", err)
		}
	}
}

func (o *Orchestrator) handleTyping(ctx context.Context, cmd domain.TypingCommand) {
	o.typing.Refresh(cmd.To, cmd.From)
	o.dispatcher.Dispatch(ctx, cmd.From, cmd.To, func(target domain.ChatTarget) event.ServerEvent {
		evt := event.UserTyping{From: cmd.From, IsTyping: true}
		if target.IsGroup() {
			evt.To = cmd.To
			evt.IsGroup = true
		}
		return evt
	})
}

func (o *Orchestrator) handleStopTyping(ctx context.Context, cmd domain.StopTypingCommand) {
	o.typing.Stop(cmd.To, cmd.From)
	o.dispatcher.Dispatch(ctx, cmd.From, cmd.To, func(target domain.ChatTarget) event.ServerEvent {
		evt := event.UserStoppedTyping{From: cmd.From}
		if target.IsGroup() {
			evt.To = cmd.To
			evt.IsGroup = true
		}
		return evt
	})
}

// expireTyping synthesizes the stop-typing fanout when a typing flag
// times out without an explicit stop from the client.
func (o *Orchestrator) expireTyping(chat domain.ChatID, user domain.UserID) {
	o.dispatcher.Dispatch(context.Background(), user, chat, func(target domain.ChatTarget) event.ServerEvent {
		evt := event.UserStoppedTyping{From: user}
		if target.IsGroup() {
			evt.To = chat
			evt.IsGroup = true
		}
		return evt
	})
}

// Start loads the moderation automaton, registers the worker pool with
// the supervisor, and launches supervision in the background.
func (o *Orchestrator) Start(ctx context.Context) error {
	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll("censored")
	if err != nil {
		return err
	}
	o.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	moderator, err := moderation.NewModerator(data.Words, o.charReplacement)
	if err != nil {
		return err
	}
	o.moderator = moderator

	for i := 0; i < o.numWorkers; i++ {
		o.supervisor.Add(workers.NewDispatchWorker(o.log, o.commands, o))
	}
	o.supervisor.Add(workers.NewTelemetryWorker(o.log, o.telemetryInterval, o.registry))

	o.log.Info("Starting orchestrator and all supervised workers")
	go o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown of the orchestrator.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
