package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/chattest"
	"chat-client/internal/models"
)

const testToken = "tok-1"

var viewer = models.User{ID: "u1", Username: "me"}

func startBackend(t *testing.T) *chattest.Server {
	t.Helper()
	srv := chattest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser(testToken, viewer)
	return srv
}

func dialRoom(t *testing.T, srv *chattest.Server, roomID string, events chan Event) *Session {
	t.Helper()
	sess, err := Dial(context.Background(), Config{
		WSBaseURL: srv.WSBaseURL(),
		Room:      models.Room{ID: roomID, Kind: models.RoomKindDirect},
		Token:     testToken,
		UserID:    viewer.ID,
		Sink:      func(ev Event) { events <- ev },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func nextEvent(t *testing.T, events chan Event, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

func TestDialOpensAndEchoesSend(t *testing.T) {
	srv := startBackend(t)
	events := make(chan Event, 16)
	sess := dialRoom(t, srv, "room-a", events)

	opened := nextEvent(t, events, EventOpened)
	assert.Equal(t, "room-a", opened.RoomID)
	assert.Equal(t, StateOpen, sess.State())

	ts := time.Now().UTC()
	require.NoError(t, sess.Send("hello", ts))

	ev := nextEvent(t, events, EventMessage)
	assert.Equal(t, "hello", ev.Message.Content)
	assert.Equal(t, viewer.ID, ev.Message.SenderID)
	assert.NotEmpty(t, ev.Message.ID)
	assert.True(t, ts.Equal(ev.Message.Timestamp), "server must echo the client timestamp untouched")
}

func TestDialRejectsInvalidToken(t *testing.T) {
	srv := startBackend(t)

	_, err := Dial(context.Background(), Config{
		WSBaseURL: srv.WSBaseURL(),
		Room:      models.Room{ID: "room-a", Kind: models.RoomKindDirect},
		Token:     "expired",
		UserID:    viewer.ID,
	})
	require.Error(t, err)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "room-a", connErr.RoomID)
}

func TestMissingSenderFilledWithViewer(t *testing.T) {
	srv := startBackend(t)
	events := make(chan Event, 16)
	dialRoom(t, srv, "room-a", events)
	nextEvent(t, events, EventOpened)

	// Server echo without a sender means "your own message".
	srv.Push("room-a", models.Message{Content: "echoed", Timestamp: time.Now().UTC()})

	ev := nextEvent(t, events, EventMessage)
	assert.Equal(t, viewer.ID, ev.Message.SenderID)
	assert.Equal(t, "room-a", ev.Message.RoomID)
}

func TestSendAfterCloseIsDroppedNoop(t *testing.T) {
	srv := startBackend(t)
	events := make(chan Event, 16)
	sess := dialRoom(t, srv, "room-a", events)
	nextEvent(t, events, EventOpened)

	require.NoError(t, sess.Close())
	err := sess.Send("too late", time.Now().UTC())
	require.ErrorIs(t, err, ErrSessionNotOpen)
	assert.Empty(t, srv.Messages("room-a"), "dropped sends must not reach the server")
}

func TestDeliberateCloseEmitsCleanClosedEvent(t *testing.T) {
	srv := startBackend(t)
	events := make(chan Event, 16)
	sess := dialRoom(t, srv, "room-a", events)
	nextEvent(t, events, EventOpened)

	require.NoError(t, sess.Close())

	ev := nextEvent(t, events, EventClosed)
	assert.NoError(t, ev.Err)
	assert.Equal(t, StateClosed, sess.State())
}

func TestAbnormalDropEmitsConnectionError(t *testing.T) {
	srv := startBackend(t)
	events := make(chan Event, 16)
	dialRoom(t, srv, "room-a", events)
	nextEvent(t, events, EventOpened)

	srv.DropRoomConnections("room-a")

	ev := nextEvent(t, events, EventClosed)
	require.Error(t, ev.Err)
	var connErr *ConnectionError
	assert.True(t, errors.As(ev.Err, &connErr))
}
