// Package gateway exposes the coordination core over WebSocket. Each
// connection gets its own session; frames are JSON envelopes with an
// event kind and a payload.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"convocube/contract"
	"convocube/domain"
)

// Coordinator is the slice of the orchestrator the gateway needs.
type Coordinator interface {
	Attach(user domain.UserID, sink contract.ConnectionSink)
	Detach(user domain.UserID, sink contract.ConnectionSink)
	Dispatch(cmd domain.Command)
}

type Server struct {
	log         *slog.Logger
	addr        string
	coordinator Coordinator
	validate    *validator.Validate
	bufferSize  int
	upgrader    websocket.Upgrader
}

func NewServer(log *slog.Logger, addr string, coordinator Coordinator, bufferSize int) *Server {
	return &Server{
		log:         log,
		addr:        addr,
		coordinator: coordinator,
		validate:    validator.New(),
		bufferSize:  bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS(ctx))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info(fmt.Sprintf("Gateway listening on %s", s.addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleWS(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("WebSocket upgrade failed", "error", err)
			return
		}
		s.log.Debug("Connection accepted", "remote", conn.RemoteAddr().String())

		session := NewSession(s.log, conn, s.coordinator, s.validate, s.bufferSize)
		go session.Run(ctx)
	}
}
