package models

import "time"

// Room kinds. A room is the unit of connection scope: one live
// websocket exists per currently-viewed room.
const (
	RoomKindDirect    = "direct"
	RoomKindCommunity = "community"
)

// Room identifies a conversation scope for session purposes.
type Room struct {
	ID   string `json:"room_id"`
	Kind string `json:"kind"`
}

// User is the display identity of a chat participant.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Conversation is a direct (two-participant) room as listed by the
// conversations endpoint, with preview data for the sidebar.
type Conversation struct {
	RoomID      string    `json:"room_id"`
	OtherUser   *User     `json:"other_user,omitempty"`
	LastMessage *Message  `json:"last_message,omitempty"`
	UnreadCount int       `json:"unread_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Room returns the session-level room descriptor for the conversation.
func (c Conversation) Room() Room {
	return Room{ID: c.RoomID, Kind: RoomKindDirect}
}

// Community is a group room with a member roster.
type Community struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Members     []User    `json:"members,omitempty"`
	MemberCount int       `json:"member_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Room returns the session-level room descriptor for the community.
func (c Community) Room() Room {
	return Room{ID: c.RoomID, Kind: RoomKindCommunity}
}
