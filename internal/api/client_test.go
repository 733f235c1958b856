package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/chattest"
	"chat-client/internal/models"
)

const testToken = "tok-1"

var viewer = models.User{ID: "u1", Username: "me", FullName: "Me Myself"}

func startBackend(t *testing.T) (*chattest.Server, *Client) {
	t.Helper()
	srv := chattest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser(testToken, viewer)
	return srv, New(srv.URL(), testToken)
}

func TestListConversations(t *testing.T) {
	srv, client := startBackend(t)
	srv.AddConversation(viewer.ID, models.Conversation{
		RoomID:      "r1",
		OtherUser:   &models.User{ID: "u2", Username: "bob"},
		UnreadCount: 2,
		CreatedAt:   time.Now().UTC(),
	})

	convs, err := client.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "r1", convs[0].RoomID)
	assert.Equal(t, "bob", convs[0].OtherUser.Username)
	assert.Equal(t, 2, convs[0].UnreadCount)
}

func TestListConversationsEmptyIs204(t *testing.T) {
	_, client := startBackend(t)

	convs, err := client.ListConversations(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, convs)
	assert.Empty(t, convs)
}

func TestRoomMessages(t *testing.T) {
	srv, client := startBackend(t)
	srv.SeedMessages("r1",
		models.Message{ID: "m1", RoomID: "r1", SenderID: "u2", Content: "hey"},
		models.Message{ID: "m2", RoomID: "r1", SenderID: "u1", Content: "yo"},
	)

	msgs, err := client.RoomMessages(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "yo", msgs[1].Content)
}

func TestInvalidTokenIsUnauthorized(t *testing.T) {
	srv, _ := startBackend(t)
	client := New(srv.URL(), "expired")

	_, err := client.ListConversations(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestHistoryFailureIsFetchError(t *testing.T) {
	srv, client := startBackend(t)
	srv.SetHistoryStatus("r1", http.StatusInternalServerError)

	_, err := client.RoomMessages(context.Background(), "r1")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusInternalServerError, fetchErr.Status)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestCreateRoom(t *testing.T) {
	srv, client := startBackend(t)
	srv.AddUser("tok-2", models.User{ID: "u2", Username: "bob"})

	room, err := client.CreateRoom(context.Background(), "u2")
	require.NoError(t, err)
	assert.NotEmpty(t, room.RoomID)
	require.NotNil(t, room.OtherUser)
	assert.Equal(t, "u2", room.OtherUser.ID)

	convs, err := client.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestMarkRead(t *testing.T) {
	srv, client := startBackend(t)
	srv.AddConversation(viewer.ID, models.Conversation{RoomID: "r1", UnreadCount: 5})

	require.NoError(t, client.MarkRead(context.Background(), "r1"))

	convs, err := client.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Zero(t, convs[0].UnreadCount)
}

func TestCommunityMembershipRoundTrip(t *testing.T) {
	srv, client := startBackend(t)
	srv.AddCommunity(models.Community{ID: "c1", RoomID: "room-c1", Name: "gophers"})

	require.NoError(t, client.JoinCommunity(context.Background(), "c1"))

	members, err := client.CommunityMembers(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, viewer.ID, members[0].ID)

	communities, err := client.ListCommunities(context.Background())
	require.NoError(t, err)
	require.Len(t, communities, 1)
	assert.Equal(t, 1, communities[0].MemberCount)

	require.NoError(t, client.LeaveCommunity(context.Background(), "c1"))
	members, err = client.CommunityMembers(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestCommunityMessages(t *testing.T) {
	srv, client := startBackend(t)
	srv.AddCommunity(models.Community{ID: "c1", RoomID: "room-c1", Name: "gophers"})
	srv.SeedMessages("room-c1", models.Message{ID: "m1", SenderID: "u2", Content: "welcome"})

	msgs, err := client.CommunityMessages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "welcome", msgs[0].Content)
}

func TestCommunityNotFound(t *testing.T) {
	_, client := startBackend(t)

	_, err := client.CommunityMessages(context.Background(), "nope")
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.Status)
	assert.Equal(t, "community not found", fetchErr.Message)
}

func TestSearchUsers(t *testing.T) {
	srv, client := startBackend(t)
	srv.AddUser("tok-2", models.User{ID: "u2", Username: "bob", FullName: "Bob Builder"})
	srv.AddUser("tok-3", models.User{ID: "u3", Username: "carol"})

	users, err := client.SearchUsers(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID)
}
