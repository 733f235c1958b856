// Package ui renders the chat client in the terminal: a conversation
// sidebar, the active room's message pane and an input line. It is a
// thin layer over the session switcher. It renders the store and
// forwards submits; every messaging decision lives in internal/session.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"chat-client/internal/models"
	"chat-client/internal/session"
)

// controller is the slice of the session switcher the UI drives.
type controller interface {
	Select(ctx context.Context, room models.Room, resolve session.SenderResolver, history session.HistoryFunc)
	Send(content string) error
	Messages() []models.Message
	State() session.State
}

// directory lists the rooms the viewer can enter.
type directory interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	ListCommunities(ctx context.Context) ([]models.Community, error)
	CommunityMessages(ctx context.Context, communityID string) ([]models.Message, error)
	CommunityMembers(ctx context.Context, communityID string) ([]models.User, error)
	MarkRead(ctx context.Context, roomID string) error
}

type focusArea int

const (
	focusSidebar focusArea = iota
	focusInput
)

// entry is one selectable row in the sidebar.
type entry struct {
	title    string
	subtitle string
	room     models.Room
	other    *models.User
	// communityID is set for community rooms; the roster is fetched
	// on selection to resolve group senders.
	communityID string
}

type entriesMsg struct {
	entries []entry
	err     error
}

type roomEnteredMsg struct {
	index int
	err   error
}

// storeChangedMsg re-renders after a store mutation.
type storeChangedMsg struct{}

// stateChangedMsg tracks the connection lifecycle for the status bar.
type stateChangedMsg struct {
	state session.State
}

type model struct {
	ctrl   controller
	dir    directory
	viewer models.User

	entries  []entry
	cursor   int
	selected int
	input    textinput.Model
	focus    focusArea
	state    session.State
	status   string
	width    int
	height   int
}

func newModel(ctrl controller, dir directory, viewer models.User) model {
	input := textinput.New()
	input.Placeholder = "Type your message..."
	input.CharLimit = 2000
	return model{
		ctrl:     ctrl,
		dir:      dir,
		viewer:   viewer,
		selected: -1,
		input:    input,
		state:    session.StateIdle,
	}
}

func (m model) Init() tea.Cmd {
	return m.loadEntries
}

func (m model) loadEntries() tea.Msg {
	ctx := context.Background()

	convs, err := m.dir.ListConversations(ctx)
	if err != nil {
		return entriesMsg{err: err}
	}
	communities, err := m.dir.ListCommunities(ctx)
	if err != nil {
		return entriesMsg{err: err}
	}

	entries := make([]entry, 0, len(convs)+len(communities))
	for _, conv := range convs {
		e := entry{room: conv.Room(), title: "(unknown)"}
		if conv.OtherUser != nil {
			other := *conv.OtherUser
			e.other = &other
			e.title = other.DisplayName()
		}
		if conv.LastMessage != nil {
			e.subtitle = conv.LastMessage.Content
		} else {
			e.subtitle = "No messages yet"
		}
		if conv.UnreadCount > 0 {
			e.title = fmt.Sprintf("%s (%d)", e.title, conv.UnreadCount)
		}
		entries = append(entries, e)
	}
	for _, comm := range communities {
		entries = append(entries, entry{
			room:        comm.Room(),
			title:       "# " + comm.Name,
			subtitle:    fmt.Sprintf("%d members", comm.MemberCount),
			communityID: comm.ID,
		})
	}
	return entriesMsg{entries: entries}
}

// enterRoom resolves the sender lookup and history source for the
// chosen room and hands both to the switcher. Community rooms fetch
// the roster first and load history from the community endpoint.
func (m model) enterRoom(index int) tea.Cmd {
	e := m.entries[index]
	return func() tea.Msg {
		ctx := context.Background()
		var resolve session.SenderResolver
		var history session.HistoryFunc
		if e.communityID != "" {
			members, err := m.dir.CommunityMembers(ctx, e.communityID)
			if err != nil {
				return roomEnteredMsg{index: index, err: err}
			}
			resolve = session.RosterResolver(m.viewer, members)
			history = func(ctx context.Context) ([]models.Message, error) {
				return m.dir.CommunityMessages(ctx, e.communityID)
			}
		} else {
			other := models.User{}
			if e.other != nil {
				other = *e.other
			}
			resolve = session.DirectResolver(m.viewer, other)
			_ = m.dir.MarkRead(ctx, e.room.ID)
		}
		m.ctrl.Select(ctx, e.room, resolve, history)
		return roomEnteredMsg{index: index}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case entriesMsg:
		if msg.err != nil {
			m.status = "Could not fetch conversations"
			return m, nil
		}
		m.entries = msg.entries
		if len(m.entries) == 0 {
			m.status = "No conversations yet. Start a new one!"
		} else {
			m.status = ""
		}
		return m, nil

	case roomEnteredMsg:
		if msg.err != nil {
			m.status = "Could not open room"
			return m, nil
		}
		m.selected = msg.index
		m.focus = focusInput
		m.input.Focus()
		return m, nil

	case storeChangedMsg:
		return m, nil

	case stateChangedMsg:
		m.state = msg.state
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.focus == focusSidebar {
			m.focus = focusInput
			m.input.Focus()
		} else {
			m.focus = focusSidebar
			m.input.Blur()
		}
		return m, nil
	}

	if m.focus == focusSidebar {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.entries) {
				return m, m.enterRoom(m.cursor)
			}
		}
		return m, nil
	}

	if msg.String() == "enter" {
		content := strings.TrimSpace(m.input.Value())
		if content == "" {
			return m, nil
		}
		if err := m.ctrl.Send(content); err != nil {
			m.status = "Not connected — message dropped"
			return m, nil
		}
		m.status = ""
		m.input.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}
