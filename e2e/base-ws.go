package e2e

import (
	"encoding/json"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("E2E_SERVER_ADDR not set, skipping end-to-end suite")
	}
}

// Dial connects one identified client to the running gateway, printing a
// colorized header for the connection step in logs.
func (s *BaseWsSuite) Dial(t *testing.T, name, userID string) *websocket.Conn {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	u := url.URL{Scheme: "ws", Host: s.Config.ServerAddr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err, "Failed to connect to gateway at "+u.String())

	s.Send(conn, "add-user", map[string]any{"userId": userID})
	return conn
}

func (s *BaseWsSuite) Send(conn *websocket.Conn, event string, payload any) {
	data, err := json.Marshal(payload)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(Envelope{Event: event, Data: data}))
}

// Recv waits for the next frame of the given kind, skipping unrelated
// events such as typing noise from concurrent scenarios.
func (s *BaseWsSuite) Recv(conn *websocket.Conn, event string, timeout time.Duration) json.RawMessage {
	deadline := time.Now().Add(timeout)
	s.Require().NoError(conn.SetReadDeadline(deadline))
	for {
		var env Envelope
		err := conn.ReadJSON(&env)
		s.Require().NoError(err, "No %q frame within %v", event, timeout)
		if env.Event == event {
			return env.Data
		}
	}
}
