package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/starford/wayfarer/internal/docservice"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 54 * time.Second
	wsMaxMessageSize = 4 << 10
)

// Stream message types. Clients send pointer events (down, move, up,
// leave) or one of commit and cancel; the server answers each with state,
// committed, cancelled or error.
const (
	streamCommit    = "commit"
	streamCancel    = "cancel"
	streamState     = "state"
	streamCommitted = "committed"
	streamCancelled = "cancelled"
	streamError     = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts non-browser clients and pages served by this host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

type streamMessage struct {
	Type   string                   `json:"type"`
	State  *docservice.CropState    `json:"state,omitempty"`
	Commit *docservice.CommitResult `json:"commit,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// pointerStream is one WebSocket client driving a document's crop.
type pointerStream struct {
	svc  *docservice.Service
	id   string
	conn *websocket.Conn
	send chan []byte
}

// CropStream handles GET /api/documents/{id}/crop/ws.
//
// Pointer samples arrive far faster than HTTP round trips allow; the stream
// applies them in order over one connection and replies with the crop
// state after each.
func (h *Handler) CropStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	conn.SetReadLimit(wsMaxMessageSize)

	s := &pointerStream{
		svc:  h.svc,
		id:   docID(r),
		conn: conn,
		send: make(chan []byte, 64),
	}
	go s.writePump()
	s.readPump(r.Context())
}

func (s *pointerStream) readPump(ctx context.Context) {
	defer func() {
		close(s.send)
		s.conn.Close()
	}()

	s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket unexpected close", slog.String("id", s.id), slog.String("error", err.Error()))
			}
			return
		}
		s.reply(s.handle(ctx, data))
	}
}

func (s *pointerStream) handle(ctx context.Context, data []byte) streamMessage {
	var req PointerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return streamMessage{Type: streamError, Error: "invalid JSON message"}
	}

	switch req.Type {
	case streamCommit:
		res, err := s.svc.CommitCrop(ctx, s.id)
		if err != nil {
			return errMessage(err)
		}
		return streamMessage{Type: streamCommitted, Commit: res}
	case streamCancel:
		if err := s.svc.CancelCrop(ctx, s.id); err != nil {
			return errMessage(err)
		}
		return streamMessage{Type: streamCancelled}
	}

	if err := req.Validate(); err != nil {
		return streamMessage{Type: streamError, Error: err.Error()}
	}
	st, err := s.svc.CropPointer(ctx, s.id, docservice.PointerEvent(req))
	if err != nil {
		return errMessage(err)
	}
	return streamMessage{Type: streamState, State: st}
}

func errMessage(err error) streamMessage {
	_, msg := statusOf(err)
	return streamMessage{Type: streamError, Error: msg}
}

func (s *pointerStream) reply(m streamMessage) {
	data, err := json.Marshal(m)
	if err != nil {
		slog.Error("websocket encode failed", slog.String("error", err.Error()))
		return
	}
	select {
	case s.send <- data:
	default:
		slog.Warn("websocket send buffer full, dropping message", slog.String("id", s.id))
	}
}

func (s *pointerStream) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
