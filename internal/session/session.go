// Package session owns the realtime side of the chat client: one live
// websocket per active room, and the switcher that tears sessions down
// and builds them up as the user moves between rooms.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

// EventKind classifies session events delivered to the sink.
type EventKind int

const (
	// EventOpened fires once after a successful handshake.
	EventOpened EventKind = iota
	// EventMessage carries one inbound chat message.
	EventMessage
	// EventClosed fires once when the connection ends. Err is set
	// when the close was not deliberate.
	EventClosed
)

// Event is one occurrence on a room connection. RoomID tags every
// event with the room the connection was opened for, so consumers can
// discard events that outlive a room switch.
type Event struct {
	RoomID  string
	Kind    EventKind
	Message models.Message
	Err     error
}

// Sink receives session events. Called from the session's read
// goroutine; implementations must not block for long.
type Sink func(Event)

// Config carries everything needed to open a room connection.
type Config struct {
	// WSBaseURL is the websocket origin, e.g. "ws://localhost:8000".
	WSBaseURL string
	Room      models.Room
	// Token authenticates the handshake. It travels in the connection
	// URI because the transport takes no custom headers post-handshake.
	Token  string
	UserID string
	Sink   Sink
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Session is one live connection bound to one room and one viewer.
// Never shared across rooms; replaced wholesale on room switch.
type Session struct {
	room     models.Room
	userID   string
	conn     *websocket.Conn
	sink     Sink
	connID   string
	traceID  string
	openedAt time.Time

	mu      sync.Mutex
	state   State
	closing bool
}

// Dial opens the connection for cfg.Room and starts the read pump.
// The returned error wraps ConnectionError; an invalid token or an
// inaccessible room surfaces here as a rejected handshake.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	ctx, span := otel.Tracer("chat-client/session").Start(ctx, "ws.dial")
	defer span.End()

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	endpoint, err := roomEndpoint(cfg.WSBaseURL, cfg.Room.ID, cfg.Token)
	if err != nil {
		return nil, &ConnectionError{RoomID: cfg.Room.ID, Err: err}
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		observability.IncWSEvent(cfg.Room.Kind, "ws_error")
		return nil, &ConnectionError{RoomID: cfg.Room.ID, Err: err}
	}

	s := &Session{
		room:     cfg.Room,
		userID:   cfg.UserID,
		conn:     conn,
		sink:     cfg.Sink,
		connID:   newConnID(),
		traceID:  span.SpanContext().TraceID().String(),
		openedAt: time.Now(),
		state:    StateOpen,
	}

	observability.IncWSActive(s.room.Kind)
	s.publishLifecycle(ctx, "ws_connect", "")
	if s.sink != nil {
		s.sink(Event{RoomID: s.room.ID, Kind: EventOpened})
	}

	go s.readPump()
	return s, nil
}

// Send transmits a message payload over the open connection. When the
// session is not OPEN the call drops the message and returns
// ErrSessionNotOpen. The timestamp is supplied by the caller so the
// optimistic local copy and the wire payload agree exactly.
func (s *Session) Send(content string, timestamp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		observability.IncSendDropped()
		return ErrSessionNotOpen
	}
	if err := s.conn.WriteJSON(models.Outgoing{Content: content, Timestamp: timestamp}); err != nil {
		return &ConnectionError{RoomID: s.room.ID, Err: err}
	}
	observability.IncMessageSent()
	return nil
}

// Close ends the connection deliberately. The read pump observes the
// closed transport and emits a final EventClosed without an error.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.state = StateClosed
	s.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return s.conn.Close()
}

// State reports the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Room reports the room this session is bound to.
func (s *Session) Room() models.Room {
	return s.room
}

func (s *Session) readPump() {
	defer func() {
		observability.DecWSActive(s.room.Kind)
		s.publishLifecycle(context.Background(), "ws_disconnect", "")
		_ = s.conn.Close()
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			deliberate := s.closing
			s.state = StateClosed
			s.mu.Unlock()

			ev := Event{RoomID: s.room.ID, Kind: EventClosed}
			if !deliberate && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ev.Err = &ConnectionError{RoomID: s.room.ID, Err: err}
				s.publishLifecycle(context.Background(), "ws_error", err.Error())
			}
			if s.sink != nil {
				s.sink(ev)
			}
			return
		}

		var m models.Message
		if err := json.Unmarshal(data, &m); err != nil {
			log.Printf("discarding malformed frame on room %s: %v", s.room.ID, err)
			continue
		}
		// A payload without a sender is the server echoing the
		// viewer's own message back.
		if m.SenderID == "" {
			m.SenderID = s.userID
		}
		if m.RoomID == "" {
			m.RoomID = s.room.ID
		}
		observability.IncMessageReceived()
		if s.sink != nil {
			s.sink(Event{RoomID: s.room.ID, Kind: EventMessage, Message: m})
		}
	}
}

func (s *Session) publishLifecycle(ctx context.Context, event, reason string) {
	observability.IncWSEvent(s.room.Kind, event)
	_ = observability.PublishEvent(ctx, eventRoutingKey(s.room.Kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": observability.WSEventPayload{
				Kind:       s.room.Kind,
				RoomID:     s.room.ID,
				Event:      event,
				ConnID:     s.connID,
				DurationMS: time.Since(s.openedAt).Milliseconds(),
				Reason:     reason,
			},
			"identity": observability.IdentityPayload{UserID: s.userID},
		},
	}, observability.BuildHeaders("", s.traceID))
}

func eventRoutingKey(kind string) string {
	if kind == models.RoomKindCommunity {
		return "ws_events.communities"
	}
	return "ws_events.chats"
}

func roomEndpoint(base, roomID, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/ws/" + roomID)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
