package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"chat-client/internal/api"
	"chat-client/internal/models"
	"chat-client/internal/session"
)

// Options configures the terminal client.
type Options struct {
	Viewer    models.User
	WSBaseURL string
	Token     string
	Reconnect session.ReconnectPolicy
}

// Run wires the switcher to a bubbletea program and blocks until the
// user quits. Switcher callbacks arrive on session goroutines and are
// marshalled onto the render loop through program.Send.
func Run(client *api.Client, opts Options) error {
	var program *tea.Program

	switcher := session.NewSwitcher(session.SwitcherConfig{
		WSBaseURL: opts.WSBaseURL,
		Token:     opts.Token,
		Viewer:    opts.Viewer,
		History:   client,
		Reconnect: opts.Reconnect,
		OnChange: func() {
			if program != nil {
				program.Send(storeChangedMsg{})
			}
		},
		OnState: func(s session.State) {
			if program != nil {
				program.Send(stateChangedMsg{state: s})
			}
		},
	})
	defer switcher.Shutdown()

	program = tea.NewProgram(newModel(switcher, client, opts.Viewer), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
