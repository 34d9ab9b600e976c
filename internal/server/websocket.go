// ABOUTME: WebSocket upload endpoint
// ABOUTME: Receives a hello and one audio message, replies with the report and fixed WAV
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harperreed/mixfix/pkg/audio"
	"github.com/harperreed/mixfix/pkg/mixfix"
)

const (
	// writeWait bounds each outgoing message
	writeWait = 30 * time.Second
	// uploadWait bounds the whole upload exchange
	uploadWait = 5 * time.Minute
)

// Hello is the first text message a WebSocket client sends
type Hello struct {
	Name string `json:"name"`
	// Format optionally names the container instead of detecting it
	Format string `json:"format,omitempty"`
}

// Message is a text message sent by the server
type Message struct {
	Type   string         `json:"type"` // "report" or "error"
	Report *mixfix.Report `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
	Stage  string         `json:"stage,omitempty"`
	Silent bool           `json:"silent,omitempty"`
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown() {
		http.Error(w, errShuttingDown.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	s.handleConnection(conn)
}

// handleConnection runs one upload exchange on conn
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(s.config.MaxUploadBytes)
	conn.SetReadDeadline(time.Now().Add(uploadWait))

	if s.config.Debug {
		log.Printf("[DEBUG] New connection, waiting for hello")
	}

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}
	if msgType != websocket.TextMessage {
		s.sendMessage(conn, Message{Type: "error", Error: "expected hello text message"})
		return
	}

	var hello Hello
	if err := json.Unmarshal(data, &hello); err != nil {
		log.Printf("Error unmarshaling hello: %v", err)
		s.sendMessage(conn, Message{Type: "error", Error: "invalid hello message"})
		return
	}

	msgType, data, err = conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading audio from %q: %v", hello.Name, err)
		if websocket.IsCloseError(err, websocket.CloseMessageTooBig) || err == websocket.ErrReadLimit {
			s.sendMessage(conn, Message{Type: "error", Error: errTooLarge.Error()})
		}
		return
	}
	if msgType != websocket.BinaryMessage {
		s.sendMessage(conn, Message{Type: "error", Error: "expected binary audio message"})
		return
	}

	raw := audio.Raw{Name: hello.Name, Container: hello.Format, Data: data}
	result, err := s.pipeline.Process(raw)
	if err != nil {
		s.recordJob(jobFromError(raw.Name, "ws", err))
		resp := newErrorResponse(err)
		s.sendMessage(conn, Message{Type: "error", Error: resp.Error, Stage: resp.Stage, Silent: resp.Silent})
		return
	}

	s.recordJob(jobFromReport(&result.Report, "ws"))

	if err := s.sendMessage(conn, Message{Type: "report", Report: &result.Report}); err != nil {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.BinaryMessage, result.Output); err != nil {
		log.Printf("[%s] error sending output: %v", result.Report.RequestID, err)
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// sendMessage writes a JSON text message
func (s *Server) sendMessage(conn *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("Error sending message: %v", err)
		return err
	}
	return nil
}
