// Terminal chat client. Connects to the gateway, announces the user,
// prints incoming events, and sends every stdin line as a message to
// the configured chat.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=ws://localhost:8080/ws"`
	UserID        string `env:"CHAT_USER_ID,required=true"`
	ChatID        string `env:"CHAT_PEER_ID,required=true"`
	LogLevel      string `env:"LOG_LEVEL,required=true"`
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect and announce the identity.
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerAddress, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	if err := send(conn, "add-user", map[string]any{"userId": config.UserID}); err != nil {
		return exitRuntime, fmt.Errorf("failed to announce user: %w", err)
	}

	color.Green.Printf(">>> Connected to %s as %s, chatting with %s (Ctrl+C to quit)\n",
		config.ServerAddress, config.UserID, config.ChatID)

	// 4. Reception loop in the background.
	go func() {
		for {
			var env envelope
			if err := conn.ReadJSON(&env); err != nil {
				if ctx.Err() == nil {
					log.Warn("Connection lost", "error", err)
				}
				stop()
				return
			}
			printEvent(env)
		}
	}()

	// 5. Send every stdin line as a message.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping client...")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if line == "" {
				continue
			}
			err := send(conn, "send-msg", map[string]any{
				"to":        config.ChatID,
				"from":      config.UserID,
				"msg":       line,
				"messageId": uuid.NewString(),
			})
			if err != nil {
				return exitRuntime, fmt.Errorf("send failed: %w", err)
			}
		}
	}
}

func send(conn *websocket.Conn, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteJSON(envelope{Event: event, Data: data})
}

func printEvent(env envelope) {
	switch env.Event {
	case "msg-recieve":
		var data struct {
			Msg       string `json:"msg"`
			From      string `json:"from"`
			GroupName string `json:"groupName"`
			IsGroup   bool   `json:"isGroup"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return
		}
		author := data.From
		if data.IsGroup {
			author = fmt.Sprintf("%s@%s", data.From, data.GroupName)
		}
		color.Cyan.Printf("[%s] %s: %s\n", time.Now().Format(time.TimeOnly), author, data.Msg)
	case "user-typing":
		var data struct {
			From string `json:"from"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return
		}
		color.Gray.Printf("%s is typing...\n", data.From)
	case "user-stopped-typing":
		// Quiet; the next message speaks for itself.
	case "msg-delivered":
		color.Yellow.Println("✓✓ delivered")
	case "msg-seen":
		color.Blue.Println("✓✓ seen")
	case "msg-failed":
		color.Red.Println("message failed, try again")
	default:
		color.Gray.Printf("(%s)\n", env.Event)
	}
}
