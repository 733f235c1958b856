package models

import "time"

// Message is a single chat line as carried over the wire and held in
// the room store. Provisional is client-side only: true from the
// moment the user submits until a server copy is reconciled.
type Message struct {
	ID          string    `json:"id,omitempty"`
	RoomID      string    `json:"room_id,omitempty"`
	SenderID    string    `json:"sender_id,omitempty"`
	SenderName  string    `json:"sender_name,omitempty"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
	Provisional bool      `json:"-"`
}

// Duplicate reports whether m and other describe the same logical
// message. The id clause absorbs exact redelivery (history reload of a
// message already streamed live); the content/sender/timestamp clause
// absorbs the server echo of a locally-sent message, which carries a
// fresh server id.
func (m Message) Duplicate(other Message) bool {
	if m.ID != "" && m.ID == other.ID {
		return true
	}
	return m.Content == other.Content &&
		m.SenderID == other.SenderID &&
		m.Timestamp.Equal(other.Timestamp)
}

// Outgoing is the payload sent over an open room connection.
type Outgoing struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
