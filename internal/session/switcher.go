package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/store"
)

// HistoryLoader fetches the persisted history of a direct room.
// Satisfied by api.Client.
type HistoryLoader interface {
	RoomMessages(ctx context.Context, roomID string) ([]models.Message, error)
}

// HistoryFunc fetches the persisted history for one selection. Direct
// and community rooms are served by different endpoints, so the source
// travels with the selection; nil falls back to the configured
// HistoryLoader's RoomMessages.
type HistoryFunc func(ctx context.Context) ([]models.Message, error)

// SwitcherConfig wires a Switcher. Viewer and Token replace the
// ambient credential storage the browser client read at arbitrary
// call sites; here they are injected once at construction.
type SwitcherConfig struct {
	WSBaseURL string
	Token     string
	Viewer    models.User
	History   HistoryLoader
	Reconnect ReconnectPolicy
	Dialer    *websocket.Dialer
	// OnChange fires after every visible store mutation.
	OnChange func()
	// OnState fires on every state transition.
	OnState func(State)
}

// Switcher reacts to room selection: it tears down the previous
// session, opens a new one, and triggers the history load. At most one
// open session exists at any instant. Every in-flight operation is
// tagged with the epoch of the selection that issued it; results whose
// epoch is no longer current are discarded, so a stale history
// response or a frame from a closed room's connection can never leak
// into the new room's store.
type Switcher struct {
	wsBaseURL string
	token     string
	viewer    models.User
	history   HistoryLoader
	reconnect ReconnectPolicy
	dialer    *websocket.Dialer
	onChange  func()
	onState   func(State)

	mu      sync.Mutex
	epoch   uint64
	state   State
	room    models.Room
	resolve SenderResolver
	sess    *Session
	store   *store.Store
}

// NewSwitcher builds a Switcher in the IDLE state.
func NewSwitcher(cfg SwitcherConfig) *Switcher {
	return &Switcher{
		wsBaseURL: cfg.WSBaseURL,
		token:     cfg.Token,
		viewer:    cfg.Viewer,
		history:   cfg.History,
		reconnect: cfg.Reconnect,
		dialer:    cfg.Dialer,
		onChange:  cfg.OnChange,
		onState:   cfg.OnState,
		state:     StateIdle,
	}
}

// Select makes room the active room. The previous session, if any, is
// closed and its store discarded; the history fetch and the connection
// handshake for the new room fire concurrently. A nil history loads
// via the configured HistoryLoader.
func (w *Switcher) Select(ctx context.Context, room models.Room, resolve SenderResolver, history HistoryFunc) {
	if history == nil {
		history = func(ctx context.Context) ([]models.Message, error) {
			return w.history.RoomMessages(ctx, room.ID)
		}
	}

	w.mu.Lock()
	prev := w.sess
	w.epoch++
	epoch := w.epoch
	w.room = room
	w.resolve = resolve
	w.sess = nil
	w.store = store.New(room.ID)
	w.state = StateLoading
	w.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	w.notifyState(StateLoading)
	w.notifyChange()

	go w.loadHistory(ctx, room, history, epoch)
	go func() {
		if err := w.open(ctx, room, epoch); err != nil {
			log.Printf("open room %s failed: %v", room.ID, err)
		}
	}()
}

// Shutdown tears down the active session and returns to IDLE.
func (w *Switcher) Shutdown() {
	w.mu.Lock()
	prev := w.sess
	w.epoch++
	w.sess = nil
	w.store = nil
	w.room = models.Room{}
	w.state = StateIdle
	w.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	w.notifyState(StateIdle)
}

// Send transmits content on the active session and optimistically
// appends the local copy to the store. Outside the OPEN state the
// message is dropped and ErrSessionNotOpen returned.
func (w *Switcher) Send(content string) error {
	w.mu.Lock()
	sess := w.sess
	st := w.store
	resolve := w.resolve
	open := w.state == StateOpen
	w.mu.Unlock()

	if !open || sess == nil {
		observability.IncSendDropped()
		return ErrSessionNotOpen
	}

	ts := time.Now().UTC()
	if err := sess.Send(content, ts); err != nil {
		return err
	}

	m := models.Message{
		ID:          "local-" + uuid.NewString(),
		RoomID:      st.RoomID(),
		SenderID:    w.viewer.ID,
		Content:     content,
		Timestamp:   ts,
		CreatedAt:   ts,
		Provisional: true,
	}
	if resolve != nil {
		m.SenderName = resolve(m.SenderID)
	}
	st.Append(m)
	w.notifyChange()
	return nil
}

// State reports the current lifecycle state.
func (w *Switcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Room reports the active room; zero value when IDLE.
func (w *Switcher) Room() models.Room {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.room
}

// Messages returns the visible message list of the active room.
func (w *Switcher) Messages() []models.Message {
	w.mu.Lock()
	st := w.store
	w.mu.Unlock()
	if st == nil {
		return nil
	}
	return st.Messages()
}

// open dials the room and, on failure, hands off to the reconnect
// policy. Used for the initial connection of a selection only; redials
// loop over dialInstall directly.
func (w *Switcher) open(ctx context.Context, room models.Room, epoch uint64) error {
	err := w.dialInstall(ctx, room, epoch)
	if err != nil {
		w.scheduleReconnect(room, epoch)
	}
	return err
}

// dialInstall dials the room and installs the session if the selection
// is still current. A session that wins the dial after the user has
// moved on is closed immediately.
func (w *Switcher) dialInstall(ctx context.Context, room models.Room, epoch uint64) error {
	sess, err := Dial(ctx, Config{
		WSBaseURL: w.wsBaseURL,
		Room:      room,
		Token:     w.token,
		UserID:    w.viewer.ID,
		Dialer:    w.dialer,
		Sink: func(ev Event) {
			w.handleEvent(ev, epoch)
		},
	})

	if err != nil {
		w.mu.Lock()
		if epoch != w.epoch {
			w.mu.Unlock()
			observability.IncStaleResultDropped("dial")
			return nil
		}
		w.state = StateClosed
		w.mu.Unlock()
		w.notifyState(StateClosed)
		return err
	}
	return w.install(sess, epoch)
}

// install publishes a dialed session as the active one. The session's
// own state is re-checked under the lock: a connection that dropped
// between the handshake and here has already emitted EventClosed and
// driven the state transition, and must not be installed on top of it.
func (w *Switcher) install(sess *Session, epoch uint64) error {
	w.mu.Lock()
	if epoch != w.epoch {
		w.mu.Unlock()
		observability.IncStaleResultDropped("dial")
		_ = sess.Close()
		return nil
	}
	if sess.State() != StateOpen {
		w.mu.Unlock()
		return nil
	}
	w.sess = sess
	w.state = StateOpen
	w.mu.Unlock()
	w.notifyState(StateOpen)
	return nil
}

func (w *Switcher) loadHistory(ctx context.Context, room models.Room, history HistoryFunc, epoch uint64) {
	start := time.Now()
	msgs, err := history(ctx)
	observability.ObserveHistoryFetch(time.Since(start))

	w.mu.Lock()
	if epoch != w.epoch {
		w.mu.Unlock()
		observability.IncStaleResultDropped("history")
		return
	}
	st := w.store
	resolve := w.resolve
	w.mu.Unlock()

	if err != nil {
		// FetchError path: the room stays selected with an empty
		// list; live events still flow once the connection opens.
		log.Printf("history load failed for room %s: %v", room.ID, err)
		return
	}
	if resolve != nil {
		for i := range msgs {
			msgs[i].SenderName = resolve(msgs[i].SenderID)
		}
	}
	st.Seed(msgs)
	w.notifyChange()
}

func (w *Switcher) handleEvent(ev Event, epoch uint64) {
	w.mu.Lock()
	if epoch != w.epoch {
		w.mu.Unlock()
		observability.IncStaleResultDropped("event")
		return
	}

	switch ev.Kind {
	case EventMessage:
		st := w.store
		resolve := w.resolve
		w.mu.Unlock()
		m := ev.Message
		if resolve != nil {
			m.SenderName = resolve(m.SenderID)
		}
		if st.Append(m) {
			w.notifyChange()
		} else {
			observability.IncDuplicateDropped()
		}

	case EventClosed:
		w.sess = nil
		w.state = StateClosed
		room := w.room
		w.mu.Unlock()
		w.notifyState(StateClosed)
		// Live updates stop but the rendered list stays; data is only
		// purged on a deliberate room switch.
		if ev.Err != nil {
			log.Printf("room %s disconnected: %v", room.ID, ev.Err)
			w.scheduleReconnect(room, epoch)
		}

	default:
		w.mu.Unlock()
	}
}

// scheduleReconnect redials after an unexpected drop when the policy
// allows it. Every attempt re-checks the epoch so a redial never
// resurrects a room the user has left.
func (w *Switcher) scheduleReconnect(room models.Room, epoch uint64) {
	if !w.reconnect.Enabled {
		return
	}
	go func() {
		b := w.reconnect.backOff()
		for {
			d := b.NextBackOff()
			if d == backoff.Stop {
				log.Printf("giving up reconnecting to room %s", room.ID)
				return
			}
			time.Sleep(d)

			w.mu.Lock()
			if epoch != w.epoch {
				w.mu.Unlock()
				return
			}
			w.state = StateLoading
			w.mu.Unlock()
			w.notifyState(StateLoading)

			if err := w.dialInstall(context.Background(), room, epoch); err == nil {
				return
			}
		}
	}()
}

func (w *Switcher) notifyChange() {
	if w.onChange != nil {
		w.onChange()
	}
}

func (w *Switcher) notifyState(s State) {
	if w.onState != nil {
		w.onState(s)
	}
}
