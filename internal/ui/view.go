package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chat-client/internal/session"
)

var (
	sidebarStyle = lipgloss.NewStyle().
			Width(32).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	senderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")).
			Bold(true)

	provisionalStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Italic(true)

	statusOpenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	statusClosedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229"))
)

func (m model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), m.chatView()),
		m.statusBar(),
	)
}

func (m model) sidebarView() string {
	var b strings.Builder
	b.WriteString("Conversations\n\n")
	for i, e := range m.entries {
		line := e.title
		if i == m.cursor && m.focus == focusSidebar {
			line = selectedStyle.Render("> " + line)
		} else if i == m.selected {
			line = selectedStyle.Render("  " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
		b.WriteString(subtitleStyle.Render("  "+e.subtitle) + "\n")
	}
	if m.status != "" {
		b.WriteString("\n" + subtitleStyle.Render(m.status))
	}
	return sidebarStyle.Render(b.String())
}

func (m model) chatView() string {
	if m.selected < 0 {
		return "\n  Select a conversation to start chatting"
	}

	var b strings.Builder
	for _, msg := range m.ctrl.Messages() {
		name := msg.SenderName
		if name == "" {
			name = msg.SenderID
		}
		when := msg.Timestamp
		if when.IsZero() {
			when = msg.CreatedAt
		}
		line := fmt.Sprintf("%s %s: %s",
			subtitleStyle.Render(when.Local().Format("15:04")),
			senderStyle.Render(name),
			msg.Content,
		)
		if msg.Provisional {
			line = provisionalStyle.Render(fmt.Sprintf("%s %s: %s (sending…)",
				when.Local().Format("15:04"), name, msg.Content))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + m.input.View())
	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

func (m model) statusBar() string {
	label := m.state.String()
	switch m.state {
	case session.StateOpen:
		label = statusOpenStyle.Render("● " + label)
	case session.StateClosed:
		label = statusClosedStyle.Render("○ disconnected")
	default:
		label = subtitleStyle.Render("○ " + label)
	}
	room := ""
	if m.selected >= 0 && m.selected < len(m.entries) {
		room = m.entries[m.selected].title
	}
	return statusBarStyle.Render(fmt.Sprintf(" %s  %s  [tab] switch focus  [ctrl+c] quit", label, room))
}
