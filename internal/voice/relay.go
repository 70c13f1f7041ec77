// AngelaMos | 2026
// relay.go

package voice

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carterperez-dev/fortune-api/internal/gemini"
)

const (
	EventReady        = "ready"
	EventTranscript   = "transcript"
	EventTurnComplete = "turn_complete"
	EventInterrupted  = "interrupted"
	EventError        = "error"
	EventEnded        = "ended"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxFrameBytes  = 1 << 20
	outboundBuffer = 128
)

type LiveConnector interface {
	Connect(ctx context.Context, opts gemini.LiveOptions) (gemini.LiveSession, error)
}

type ServerEvent struct {
	Type     string `json:"type"`
	Mode     string `json:"mode,omitempty"`
	Greeting string `json:"greeting,omitempty"`
	Role     string `json:"role,omitempty"`
	Text     string `json:"text,omitempty"`
	Finished bool   `json:"finished,omitempty"`
	Error    string `json:"error,omitempty"`
}

type clientEvent struct {
	Type string `json:"type"`
}

type frame struct {
	kind int
	data []byte
}

type Relay struct {
	service   *Service
	connector LiveConnector
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

func NewRelay(service *Service, connector LiveConnector, allowedOrigins []string, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}

	return &Relay{
		service:   service,
		connector: connector,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 << 10,
			WriteBufferSize: 16 << 10,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// Serve upgrades the request and bridges the browser socket to a Live
// session until either side closes or the client sends {"type":"end"}.
func (rl *Relay) Serve(w http.ResponseWriter, r *http.Request, session *Session) {
	opts, greeting, err := rl.service.LiveOptions(r.Context(), session)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := rl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rl.logger.Warn("voice websocket upgrade failed", "session_id", session.ID, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	live, err := rl.connector.Connect(ctx, opts)
	if err != nil {
		rl.logger.Error("live connect failed", "session_id", session.ID, "error", err)
		writeJSONFrame(conn, ServerEvent{Type: EventError, Error: "voice service unavailable"})
		closeSocket(conn, websocket.CloseInternalServerErr, "live connect failed")
		return
	}

	b := &bridge{
		relay:   rl,
		session: session,
		conn:    conn,
		live:    live,
		out:     make(chan frame, outboundBuffer),
		cancel:  cancel,
	}

	b.emit(ctx, ServerEvent{Type: EventReady, Mode: session.Mode, Greeting: greeting})
	b.run(ctx)
}

type bridge struct {
	relay   *Relay
	session *Session
	conn    *websocket.Conn
	live    gemini.LiveSession
	out     chan frame
	cancel  context.CancelFunc

	endRequested bool
	userText     strings.Builder
	modelText    strings.Builder
}

func (b *bridge) run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		defer b.cancel()
		b.writePump(ctx)
	}()

	go func() {
		defer wg.Done()
		defer b.cancel()
		b.readPump(ctx)
	}()

	go func() {
		defer wg.Done()
		defer b.cancel()
		b.receivePump(ctx)
	}()

	<-ctx.Done()
	_ = b.live.Close()
	_ = b.conn.SetReadDeadline(time.Now())
	wg.Wait()

	persistCtx, done := context.WithTimeout(context.WithoutCancel(ctx), writeWait)
	defer done()

	b.flush(persistCtx, RoleUser, &b.userText)
	b.flush(persistCtx, RoleModel, &b.modelText)

	if b.endRequested {
		if _, err := b.relay.service.EndSession(persistCtx, b.session.ID); err != nil {
			b.relay.logger.Warn("end voice session failed", "session_id", b.session.ID, "error", err)
		}
		writeJSONFrame(b.conn, ServerEvent{Type: EventEnded})
	}
	closeSocket(b.conn, websocket.CloseNormalClosure, "")
}

func (b *bridge) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case f := <-b.out:
			_ = b.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := b.conn.WriteMessage(f.kind, f.data); err != nil {
				return
			}
		}
	}
}

func (b *bridge) readPump(ctx context.Context) {
	_ = b.conn.SetReadDeadline(time.Now().Add(pongWait))
	b.conn.SetPongHandler(func(string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return b.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := b.conn.ReadMessage()
		if err != nil {
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			if err := b.live.SendAudio(data); err != nil {
				b.relay.logger.Warn("forward audio failed", "session_id", b.session.ID, "error", err)
				return
			}
		case websocket.TextMessage:
			var ev clientEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			if ev.Type == "end" {
				b.endRequested = true
				return
			}
		}

		if ctx.Err() != nil {
			return
		}
	}
}

func (b *bridge) receivePump(ctx context.Context) {
	for {
		ev, err := b.live.Receive()
		if err != nil {
			if ctx.Err() == nil {
				b.relay.logger.Info("live session closed", "session_id", b.session.ID, "error", err)
			}
			return
		}

		for _, chunk := range ev.Audio {
			b.send(ctx, frame{kind: websocket.BinaryMessage, data: chunk})
		}

		if ev.InputText != "" || ev.InputFinished {
			b.userText.WriteString(ev.InputText)
			b.emit(ctx, ServerEvent{Type: EventTranscript, Role: RoleUser, Text: ev.InputText, Finished: ev.InputFinished})
			if ev.InputFinished {
				b.flush(ctx, RoleUser, &b.userText)
			}
		}

		if ev.OutputText != "" || ev.OutputFinished {
			b.modelText.WriteString(ev.OutputText)
			b.emit(ctx, ServerEvent{Type: EventTranscript, Role: RoleModel, Text: ev.OutputText, Finished: ev.OutputFinished})
			if ev.OutputFinished {
				b.flush(ctx, RoleModel, &b.modelText)
			}
		}

		if ev.Interrupted {
			b.flush(ctx, RoleModel, &b.modelText)
			b.emit(ctx, ServerEvent{Type: EventInterrupted})
		}

		if ev.TurnComplete {
			b.flush(ctx, RoleUser, &b.userText)
			b.flush(ctx, RoleModel, &b.modelText)
			b.emit(ctx, ServerEvent{Type: EventTurnComplete})
		}
	}
}

func (b *bridge) flush(ctx context.Context, role string, buf *strings.Builder) {
	text := strings.TrimSpace(buf.String())
	buf.Reset()
	if text == "" {
		return
	}

	err := b.relay.service.AppendTranscript(ctx, b.session.ID, []TranscriptInput{{Role: role, Text: text}})
	if err != nil {
		b.relay.logger.Warn("append transcript failed",
			"session_id", b.session.ID,
			"role", role,
			"error", err,
		)
	}
}

func (b *bridge) emit(ctx context.Context, ev ServerEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	b.send(ctx, frame{kind: websocket.TextMessage, data: data})
}

func (b *bridge) send(ctx context.Context, f frame) {
	select {
	case b.out <- f:
	case <-ctx.Done():
	}
}

func writeJSONFrame(conn *websocket.Conn, ev ServerEvent) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(ev)
}

func closeSocket(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
