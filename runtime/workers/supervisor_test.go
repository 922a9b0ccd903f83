package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"convocube/contract"
	"convocube/domain"
)

type crashingWorker struct {
	calls atomic.Int32
}

func (w *crashingWorker) Run(_ context.Context) error {
	w.calls.Add(1)
	panic("boom")
}

type oneShotWorker struct {
	calls atomic.Int32
}

func (w *oneShotWorker) Run(_ context.Context) error {
	w.calls.Add(1)
	return nil
}

func TestSupervisor_RestartOnPanic(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	worker := &crashingWorker{}

	sup := NewSupervisor(log, 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	go sup.Add(worker).Run(ctx)

	// Waiting for panics and restarts
	time.Sleep(900 * time.Millisecond)

	req.GreaterOrEqual(worker.calls.Load(), int32(2))
}

func TestSupervisor_StopOnSuccess(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	worker := &oneShotWorker{}

	sup := NewSupervisor(log, 100*time.Millisecond)

	// Given a channel to notify when Run() terminated
	done := make(chan struct{})

	go func() {
		sup.Add(worker).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
		// Then supervisor detected a success, returned and stopped
		req.Equal(int32(1), worker.calls.Load())
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped after worker success")
	}
}

type recordingHandler struct {
	handled atomic.Int32
}

func (h *recordingHandler) Handle(_ context.Context, _ domain.Command) {
	h.handled.Add(1)
}

func TestDispatchWorker_Drains_Commands(t *testing.T) {
	req := require.New(t)
	commands := make(chan domain.Command, 10)
	handler := &recordingHandler{}
	worker := NewDispatchWorker(slog.Default(), commands, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	for i := 0; i < 5; i++ {
		commands <- domain.TypingCommand{From: "alice", To: "bob"}
	}

	req.Eventually(func() bool {
		return handler.handled.Load() == 5
	}, time.Second, 5*time.Millisecond)
}

func TestDispatchWorker_Stops_On_Closed_Channel(t *testing.T) {
	req := require.New(t)
	commands := make(chan domain.Command)
	worker := NewDispatchWorker(slog.Default(), commands, &recordingHandler{})

	done := make(chan error, 1)
	go func() { done <- worker.Run(context.Background()) }()

	close(commands)

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(500 * time.Millisecond):
		req.Fail("Worker should have returned after channel close")
	}
}

var _ contract.Worker = (*crashingWorker)(nil)
