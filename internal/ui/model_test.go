package ui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/models"
	"chat-client/internal/session"
)

type stubController struct {
	msgs      []models.Message
	state     session.State
	sent      []string
	sendErr   error
	selected  []models.Room
	histories []session.HistoryFunc
}

func (s *stubController) Select(ctx context.Context, room models.Room, resolve session.SenderResolver, history session.HistoryFunc) {
	s.selected = append(s.selected, room)
	s.histories = append(s.histories, history)
}

func (s *stubController) Send(content string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, content)
	return nil
}

func (s *stubController) Messages() []models.Message { return s.msgs }
func (s *stubController) State() session.State       { return s.state }

type stubDirectory struct {
	convs    []models.Conversation
	comms    []models.Community
	members  []models.User
	commMsgs []models.Message
}

func (s *stubDirectory) ListConversations(context.Context) ([]models.Conversation, error) {
	return s.convs, nil
}

func (s *stubDirectory) ListCommunities(context.Context) ([]models.Community, error) {
	return s.comms, nil
}

func (s *stubDirectory) CommunityMessages(context.Context, string) ([]models.Message, error) {
	return s.commMsgs, nil
}

func (s *stubDirectory) CommunityMembers(context.Context, string) ([]models.User, error) {
	return s.members, nil
}

func (s *stubDirectory) MarkRead(context.Context, string) error { return nil }

var testViewer = models.User{ID: "u1", Username: "me"}

func loadedModel(t *testing.T, ctrl *stubController, dir *stubDirectory) model {
	t.Helper()
	m := newModel(ctrl, dir, testViewer)
	msg := m.loadEntries()
	updated, _ := m.Update(msg)
	return updated.(model)
}

func TestSidebarListsConversationsAndCommunities(t *testing.T) {
	dir := &stubDirectory{
		convs: []models.Conversation{{
			RoomID:      "r1",
			OtherUser:   &models.User{ID: "u2", Username: "bob"},
			LastMessage: &models.Message{Content: "see you"},
		}},
		comms: []models.Community{{ID: "c1", RoomID: "room-c1", Name: "gophers", MemberCount: 3}},
	}
	m := loadedModel(t, &stubController{}, dir)

	view := m.View()
	assert.Contains(t, view, "bob")
	assert.Contains(t, view, "see you")
	assert.Contains(t, view, "# gophers")
	assert.Contains(t, view, "3 members")
}

func TestEmptyDirectoryShowsStatus(t *testing.T) {
	m := loadedModel(t, &stubController{}, &stubDirectory{})
	assert.Contains(t, m.View(), "No conversations yet")
}

func TestEnterSelectsRoom(t *testing.T) {
	ctrl := &stubController{}
	dir := &stubDirectory{
		convs: []models.Conversation{{RoomID: "r1", OtherUser: &models.User{ID: "u2", Username: "bob"}}},
	}
	m := loadedModel(t, ctrl, dir)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(model)
	require.NotNil(t, cmd)

	result := cmd()
	entered, ok := result.(roomEnteredMsg)
	require.True(t, ok)
	require.NoError(t, entered.err)

	require.Len(t, ctrl.selected, 1)
	assert.Equal(t, "r1", ctrl.selected[0].ID)
	assert.Equal(t, models.RoomKindDirect, ctrl.selected[0].Kind)

	updated, _ = m.Update(result)
	m = updated.(model)
	assert.Equal(t, 0, m.selected)
	assert.Equal(t, focusInput, m.focus)

	require.Len(t, ctrl.histories, 1)
	assert.Nil(t, ctrl.histories[0], "direct rooms load history through the default loader")
}

func TestEnterOnCommunityUsesRosterAndCommunityHistory(t *testing.T) {
	ctrl := &stubController{}
	dir := &stubDirectory{
		comms:    []models.Community{{ID: "c1", RoomID: "room-c1", Name: "gophers"}},
		members:  []models.User{{ID: "u2", Username: "bob"}},
		commMsgs: []models.Message{{ID: "m1", Content: "welcome"}},
	}
	m := loadedModel(t, ctrl, dir)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, ctrl.selected, 1)
	assert.Equal(t, models.RoomKindCommunity, ctrl.selected[0].Kind)
	assert.Equal(t, "room-c1", ctrl.selected[0].ID)

	require.Len(t, ctrl.histories, 1)
	require.NotNil(t, ctrl.histories[0], "community rooms carry their own history source")
	msgs, err := ctrl.histories[0](context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "welcome", msgs[0].Content)
}

func TestSubmitSendsTrimmedContent(t *testing.T) {
	ctrl := &stubController{}
	m := loadedModel(t, ctrl, &stubDirectory{
		convs: []models.Conversation{{RoomID: "r1", OtherUser: &models.User{ID: "u2", Username: "bob"}}},
	})
	updated, _ := m.Update(roomEnteredMsg{index: 0})
	m = updated.(model)

	m.input.SetValue("  hello  ")
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(model)

	require.Equal(t, []string{"hello"}, ctrl.sent)
	assert.Empty(t, m.input.Value())
}

func TestSubmitWhileDisconnectedShowsDrop(t *testing.T) {
	ctrl := &stubController{sendErr: session.ErrSessionNotOpen}
	m := loadedModel(t, ctrl, &stubDirectory{
		convs: []models.Conversation{{RoomID: "r1", OtherUser: &models.User{ID: "u2", Username: "bob"}}},
	})
	updated, _ := m.Update(roomEnteredMsg{index: 0})
	m = updated.(model)

	m.input.SetValue("hello")
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(model)

	assert.Empty(t, ctrl.sent)
	assert.Contains(t, m.View(), "message dropped")
	assert.Equal(t, "hello", m.input.Value(), "dropped input stays for resubmission")
}

func TestProvisionalMessageRendersPending(t *testing.T) {
	ctrl := &stubController{msgs: []models.Message{
		{ID: "m1", SenderName: "bob", Content: "hey", Timestamp: time.Now()},
		{ID: "local-1", SenderName: "me", Content: "hello", Timestamp: time.Now(), Provisional: true},
	}}
	m := loadedModel(t, ctrl, &stubDirectory{
		convs: []models.Conversation{{RoomID: "r1", OtherUser: &models.User{ID: "u2", Username: "bob"}}},
	})
	updated, _ := m.Update(roomEnteredMsg{index: 0})
	m = updated.(model)

	view := m.View()
	assert.Contains(t, view, "hey")
	assert.Contains(t, view, "hello")
	assert.Contains(t, view, "(sending…)")
}

func TestDisconnectedStatusBar(t *testing.T) {
	m := loadedModel(t, &stubController{}, &stubDirectory{})
	updated, _ := m.Update(stateChangedMsg{state: session.StateClosed})
	m = updated.(model)
	assert.Contains(t, m.View(), "disconnected")
}
