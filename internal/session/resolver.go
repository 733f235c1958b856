package session

import "chat-client/internal/models"

// SenderResolver maps a sender id to a display name. Direct and
// community rooms differ only in how senders are looked up, so the
// lookup is configuration rather than two copies of the session logic.
type SenderResolver func(senderID string) string

// DirectResolver resolves senders in a two-participant room.
func DirectResolver(viewer, other models.User) SenderResolver {
	return func(senderID string) string {
		switch senderID {
		case viewer.ID:
			return viewer.DisplayName()
		case other.ID:
			return other.DisplayName()
		}
		return senderID
	}
}

// RosterResolver resolves senders against a community member roster.
// Unknown senders (members who joined after the roster was fetched)
// fall back to their raw id.
func RosterResolver(viewer models.User, members []models.User) SenderResolver {
	byID := make(map[string]string, len(members)+1)
	for _, m := range members {
		byID[m.ID] = m.DisplayName()
	}
	byID[viewer.ID] = viewer.DisplayName()
	return func(senderID string) string {
		if name, ok := byID[senderID]; ok {
			return name
		}
		return senderID
	}
}
