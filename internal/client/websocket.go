// ABOUTME: Client for a remote mixfix server
// ABOUTME: Uploads tracks over WebSocket for fixing and over HTTP for analysis
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harperreed/mixfix/internal/server"
	"github.com/harperreed/mixfix/pkg/audio"
	"github.com/harperreed/mixfix/pkg/audio/decode"
	"github.com/harperreed/mixfix/pkg/gain"
	"github.com/harperreed/mixfix/pkg/mixfix"
)

// DefaultTimeout bounds a whole upload exchange
const DefaultTimeout = 5 * time.Minute

// Config holds client configuration
type Config struct {
	// ServerAddr is host:port of the mixfix server
	ServerAddr string
	Timeout    time.Duration
	Debug      bool
}

// Client talks to one mixfix server
type Client struct {
	config Config
	dialer *websocket.Dialer
	http   *http.Client
}

// ServerError is a failure reported by the server
type ServerError struct {
	Message string `json:"error"`
	Stage   string `json:"stage,omitempty"`
	Silent  bool   `json:"silent,omitempty"`
}

func (e *ServerError) Error() string {
	return "server: " + e.Message
}

// UserMessage returns the server's message unchanged
func (e *ServerError) UserMessage() string {
	return e.Message
}

// Unwrap lets mixfix.IsSilent recognize a silent track rejected remotely
func (e *ServerError) Unwrap() error {
	if e.Silent {
		return gain.ErrCannotCorrectSilence
	}
	return nil
}

// NewClient creates a new client
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		http: &http.Client{Timeout: config.Timeout},
	}
}

// Fix uploads raw over WebSocket and returns the report and the fixed WAV.
// The returned Buffer is decoded from the WAV so it can be previewed locally.
func (c *Client) Fix(ctx context.Context, raw audio.Raw) (*mixfix.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	// Unblock reads and writes when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	hello := server.Hello{Name: raw.Name, Format: raw.Container}
	if err := conn.WriteJSON(hello); err != nil {
		return nil, fmt.Errorf("failed to send hello: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, raw.Data); err != nil {
		return nil, fmt.Errorf("failed to send audio: %w", err)
	}

	if c.config.Debug {
		log.Printf("[DEBUG] Sent %d bytes, waiting for report", len(raw.Data))
	}

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		return nil, c.readError(ctx, "report", err)
	}
	if msgType != websocket.TextMessage {
		return nil, fmt.Errorf("expected report text message, got type %d", msgType)
	}

	var msg server.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse server message: %w", err)
	}

	switch msg.Type {
	case "error":
		return nil, &ServerError{Message: msg.Error, Stage: msg.Stage, Silent: msg.Silent}
	case "report":
	default:
		return nil, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	if msg.Report == nil {
		return nil, errors.New("report message without report")
	}

	msgType, data, err = conn.ReadMessage()
	if err != nil {
		return nil, c.readError(ctx, "output", err)
	}
	if msgType != websocket.BinaryMessage {
		return nil, fmt.Errorf("expected binary output message, got type %d", msgType)
	}

	buf, err := decode.Decode(audio.Raw{Name: msg.Report.OutputName, Container: "wav", Data: data})
	if err != nil {
		return nil, fmt.Errorf("server returned unreadable output: %w", err)
	}

	log.Printf("[%s] received %d bytes from %s", msg.Report.RequestID, len(data), c.config.ServerAddr)

	return &mixfix.Result{Report: *msg.Report, Output: data, Buffer: buf}, nil
}

// Analyze posts raw to the analyze endpoint and returns the report
func (c *Client) Analyze(ctx context.Context, raw audio.Raw) (*mixfix.Report, error) {
	q := url.Values{}
	q.Set("name", raw.Name)
	if raw.Container != "" {
		q.Set("format", raw.Container)
	}
	u := url.URL{Scheme: "http", Host: c.config.ServerAddr, Path: "/api/analyze", RawQuery: q.Encode()}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(raw.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var serverErr ServerError
		if err := json.Unmarshal(body, &serverErr); err != nil || serverErr.Message == "" {
			return nil, fmt.Errorf("server returned %s", resp.Status)
		}
		return nil, &serverErr
	}

	var report mixfix.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// readError prefers the context error when a read failed because ctx ended
func (c *Client) readError(ctx context.Context, what string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("waiting for %s: %w", what, ctxErr)
	}
	return fmt.Errorf("failed to read %s: %w", what, err)
}
