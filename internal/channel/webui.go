package channel

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/graei/mindcore/internal/bus"
	"github.com/graei/mindcore/internal/config"
)

//go:embed static
var staticFiles embed.FS

const (
	webUIChannelName = "webui"
	wsWriteTimeout   = 5 * time.Second
)

// Frame types on the wire. The browser sends userFrame; the server
// answers with replyFrame carrying the detected emotion and the
// simulated resource telemetry of that turn, and greets new
// connections with helloFrame so the page knows its chat id.
const (
	userFrame  = "message"
	replyFrame = "reply"
	helloFrame = "hello"
)

type wsFrame struct {
	Type      string       `json:"type"`
	ChatID    string       `json:"chatId,omitempty"`
	Content   string       `json:"content,omitempty"`
	Emotion   string       `json:"emotion,omitempty"`
	Intensity float64      `json:"intensity,omitempty"`
	Telemetry *wsTelemetry `json:"telemetry,omitempty"`
}

type wsTelemetry struct {
	ComputeRate    float64 `json:"computeRate"`
	MemoryPressure float64 `json:"memoryPressure"`
	Throughput     float64 `json:"throughput"`
	Load           float64 `json:"load"`
}

// WebUIChannel serves the embedded chat page and bridges its WebSocket
// connections onto the message bus. Each connection is its own chat.
type WebUIChannel struct {
	BaseChannel
	port   int
	server *http.Server

	mu     sync.Mutex
	conns  map[string]*websocket.Conn
	nextID int64
}

func NewWebUIChannel(cfg config.WebUIConfig, gwCfg config.GatewayConfig, b *bus.MessageBus) (*WebUIChannel, error) {
	port := gwCfg.Port
	if port == 0 {
		port = config.DefaultPort
	}
	return &WebUIChannel{
		BaseChannel: NewBaseChannel(webUIChannelName, b, cfg.AllowFrom),
		port:        port,
		conns:       make(map[string]*websocket.Conn),
	}, nil
}

func (w *WebUIChannel) Start(ctx context.Context) error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("embed static fs: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", w.handleWS)

	w.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", w.port),
		Handler: mux,
	}

	go func() {
		log.Printf("[webui] listening on :%d", w.port)
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[webui] server error: %v", err)
		}
	}()

	return nil
}

func (w *WebUIChannel) handleWS(wr http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(wr, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[webui] websocket accept error: %v", err)
		return
	}

	chatID := w.register(conn)
	log.Printf("[webui] client connected: %s", chatID)
	defer func() {
		w.unregister(chatID)
		conn.CloseNow()
		log.Printf("[webui] client disconnected: %s", chatID)
	}()

	if err := writeFrame(conn, wsFrame{Type: helloFrame, ChatID: chatID}); err != nil {
		return
	}

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type != userFrame || frame.Content == "" {
			continue
		}
		if !w.IsAllowed(chatID) {
			log.Printf("[webui] rejected message from %s", chatID)
			continue
		}

		w.bus.Inbound <- bus.InboundMessage{
			Channel:   webUIChannelName,
			SenderID:  chatID,
			ChatID:    chatID,
			Content:   frame.Content,
			Timestamp: time.Now(),
		}
	}
}

func (w *WebUIChannel) register(conn *websocket.Conn) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	chatID := fmt.Sprintf("webui-%d", w.nextID)
	w.conns[chatID] = conn
	return chatID
}

func (w *WebUIChannel) unregister(chatID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.conns, chatID)
}

// Send delivers a reply frame to the target connection, or to every
// connection when the chat id is unknown.
func (w *WebUIChannel) Send(msg bus.OutboundMessage) error {
	frame := replyFrameFor(msg)

	w.mu.Lock()
	conn, ok := w.conns[msg.ChatID]
	var all []*websocket.Conn
	if !ok {
		all = make([]*websocket.Conn, 0, len(w.conns))
		for _, c := range w.conns {
			all = append(all, c)
		}
	}
	w.mu.Unlock()

	if ok {
		return writeFrame(conn, frame)
	}
	for _, c := range all {
		_ = writeFrame(c, frame)
	}
	return nil
}

// replyFrameFor lifts the turn's emotion and resource readings out of
// the outbound metadata, when the gateway attached them.
func replyFrameFor(msg bus.OutboundMessage) wsFrame {
	frame := wsFrame{Type: replyFrame, ChatID: msg.ChatID, Content: msg.Content}
	if msg.Metadata == nil {
		return frame
	}
	if emo, ok := msg.Metadata["emotion"].(string); ok {
		frame.Emotion = emo
	}
	if v, ok := msg.Metadata["intensity"].(float64); ok {
		frame.Intensity = v
	}
	tel := wsTelemetry{}
	found := false
	for key, dst := range map[string]*float64{
		"computeRate":    &tel.ComputeRate,
		"memoryPressure": &tel.MemoryPressure,
		"throughput":     &tel.Throughput,
		"load":           &tel.Load,
	} {
		if v, ok := msg.Metadata[key].(float64); ok {
			*dst = v
			found = true
		}
	}
	if found {
		frame.Telemetry = &tel
	}
	return frame
}

func writeFrame(conn *websocket.Conn, frame wsFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

func (w *WebUIChannel) Stop() error {
	if w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.server.Shutdown(ctx); err != nil {
			log.Printf("[webui] shutdown error: %v", err)
		}
	}
	w.mu.Lock()
	for _, conn := range w.conns {
		conn.CloseNow()
	}
	w.conns = make(map[string]*websocket.Conn)
	w.mu.Unlock()
	log.Printf("[webui] stopped")
	return nil
}
