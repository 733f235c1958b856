// Package chattest is an in-process stand-in for the chat backend:
// the REST surface the client consumes plus a per-room websocket
// endpoint that persists, ids and echoes messages the way the real
// service does. Integration tests run the full client stack against it.
package chattest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chat-client/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the fake backend. Zero-value state is empty; seed users,
// conversations and history through the exported helpers.
type Server struct {
	hub *hub
	srv *httptest.Server

	mu            sync.Mutex
	users         map[string]models.User // token -> user
	conversations map[string][]models.Conversation
	communities   []models.Community
	messages      map[string][]models.Message
	historyStatus map[string]int
	historyGate   map[string]chan struct{}
	nextID        int
}

// NewServer starts the fake backend on an ephemeral port.
func NewServer() *Server {
	s := &Server{
		hub:           newHub(),
		users:         make(map[string]models.User),
		conversations: make(map[string][]models.Conversation),
		messages:      make(map[string][]models.Message),
		historyStatus: make(map[string]int),
		historyGate:   make(map[string]chan struct{}),
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()

	auth := s.authMiddleware()
	router.GET("/chat/conversations", auth, s.listConversations)
	router.GET("/chat/rooms/:room_id/messages", auth, s.roomMessages)
	router.POST("/chat/create-room", auth, s.createRoom)
	router.POST("/chat/rooms/:room_id/read", auth, s.markRead)
	router.GET("/communities", auth, s.listCommunities)
	router.GET("/communities/:id/messages", auth, s.communityMessages)
	router.GET("/communities/:id/members", auth, s.communityMembers)
	router.POST("/communities/:id/join", auth, s.joinCommunity)
	router.POST("/communities/:id/leave", auth, s.leaveCommunity)
	router.GET("/users/search", auth, s.searchUsers)
	router.GET("/ws/:room_id", s.handleWS)

	s.srv = httptest.NewServer(router)
	return s
}

// URL is the http base of the fake backend.
func (s *Server) URL() string {
	return s.srv.URL
}

// WSBaseURL is the websocket base of the fake backend.
func (s *Server) WSBaseURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// AddUser registers a token/user pair accepted by both the REST auth
// middleware and the websocket handshake.
func (s *Server) AddUser(token string, user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[token] = user
}

// AddConversation seeds a conversation into a user's listing.
func (s *Server) AddConversation(userID string, conv models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[userID] = append(s.conversations[userID], conv)
}

// AddCommunity seeds a community.
func (s *Server) AddCommunity(c models.Community) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.communities = append(s.communities, c)
}

// SeedMessages sets the persisted history of a room.
func (s *Server) SeedMessages(roomID string, msgs ...models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[roomID] = append(s.messages[roomID], msgs...)
}

// Messages returns the persisted history of a room.
func (s *Server) Messages(roomID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages[roomID]))
	copy(out, s.messages[roomID])
	return out
}

// Push broadcasts a message to a room as if another participant had
// sent it. An empty ID gets a server id assigned; the message is also
// persisted so later history loads return it.
func (s *Server) Push(roomID string, m models.Message) models.Message {
	s.mu.Lock()
	if m.ID == "" {
		s.nextID++
		m.ID = fmt.Sprintf("srv-%d", s.nextID)
	}
	m.RoomID = roomID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.messages[roomID] = append(s.messages[roomID], m)
	s.mu.Unlock()

	s.hub.broadcast(roomID, m)
	return m
}

// DropRoomConnections abnormally closes every live connection in a
// room, simulating a network drop.
func (s *Server) DropRoomConnections(roomID string) {
	s.hub.dropRoom(roomID)
}

// RoomConnections reports how many live connections a room has.
func (s *Server) RoomConnections(roomID string) int {
	return s.hub.roomSize(roomID)
}

// SetHistoryStatus makes the history endpoint of a room fail with the
// given status.
func (s *Server) SetHistoryStatus(roomID string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyStatus[roomID] = status
}

// GateHistory delays history responses for a room until the returned
// release function is called. Used to provoke the stale-response race.
func (s *Server) GateHistory(roomID string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.historyGate[roomID] = gate
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		s.mu.Lock()
		user, ok := s.users[parts[1]]
		s.mu.Unlock()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

func currentUser(c *gin.Context) models.User {
	return c.MustGet("user").(models.User)
}

func (s *Server) listConversations(c *gin.Context) {
	user := currentUser(c)
	s.mu.Lock()
	convs := s.conversations[user.ID]
	s.mu.Unlock()
	if len(convs) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// roomMessages serves direct-chat history only; community rooms are
// served by the community endpoint and 404 here, as on the real
// backend.
func (s *Server) roomMessages(c *gin.Context) {
	roomID := c.Param("room_id")

	s.mu.Lock()
	gate := s.historyGate[roomID]
	status := s.historyStatus[roomID]
	communityRoom := false
	for _, comm := range s.communities {
		if comm.RoomID == roomID {
			communityRoom = true
			break
		}
	}
	s.mu.Unlock()

	if communityRoom {
		c.JSON(http.StatusNotFound, gin.H{"error": "not a direct chat room"})
		return
	}

	if gate != nil {
		<-gate
	}
	if status != 0 {
		c.JSON(status, gin.H{"error": "history unavailable"})
		return
	}

	s.mu.Lock()
	msgs := make([]models.Message, len(s.messages[roomID]))
	copy(msgs, s.messages[roomID])
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (s *Server) createRoom(c *gin.Context) {
	var req struct {
		OtherUserID string `json:"other_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := currentUser(c)
	s.mu.Lock()
	s.nextID++
	conv := models.Conversation{
		RoomID:    fmt.Sprintf("room-%d", s.nextID),
		CreatedAt: time.Now().UTC(),
	}
	for _, u := range s.users {
		if u.ID == req.OtherUserID {
			other := u
			conv.OtherUser = &other
			break
		}
	}
	s.conversations[user.ID] = append(s.conversations[user.ID], conv)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"room": conv})
}

func (s *Server) markRead(c *gin.Context) {
	roomID := c.Param("room_id")
	user := currentUser(c)
	s.mu.Lock()
	for i, conv := range s.conversations[user.ID] {
		if conv.RoomID == roomID {
			s.conversations[user.ID][i].UnreadCount = 0
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listCommunities(c *gin.Context) {
	s.mu.Lock()
	communities := make([]models.Community, len(s.communities))
	copy(communities, s.communities)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"communities": communities})
}

func (s *Server) findCommunity(id string) (int, bool) {
	for i, comm := range s.communities {
		if comm.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (s *Server) communityMessages(c *gin.Context) {
	s.mu.Lock()
	i, ok := s.findCommunity(c.Param("id"))
	if !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "community not found"})
		return
	}
	roomID := s.communities[i].RoomID
	msgs := make([]models.Message, len(s.messages[roomID]))
	copy(msgs, s.messages[roomID])
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (s *Server) communityMembers(c *gin.Context) {
	s.mu.Lock()
	i, ok := s.findCommunity(c.Param("id"))
	if !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "community not found"})
		return
	}
	members := make([]models.User, len(s.communities[i].Members))
	copy(members, s.communities[i].Members)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (s *Server) joinCommunity(c *gin.Context) {
	user := currentUser(c)
	s.mu.Lock()
	i, ok := s.findCommunity(c.Param("id"))
	if !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "community not found"})
		return
	}
	for _, m := range s.communities[i].Members {
		if m.ID == user.ID {
			s.mu.Unlock()
			c.JSON(http.StatusOK, gin.H{"status": "already a member"})
			return
		}
	}
	s.communities[i].Members = append(s.communities[i].Members, user)
	s.communities[i].MemberCount = len(s.communities[i].Members)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

func (s *Server) leaveCommunity(c *gin.Context) {
	user := currentUser(c)
	s.mu.Lock()
	i, ok := s.findCommunity(c.Param("id"))
	if !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "community not found"})
		return
	}
	members := s.communities[i].Members[:0]
	for _, m := range s.communities[i].Members {
		if m.ID != user.ID {
			members = append(members, m)
		}
	}
	s.communities[i].Members = members
	s.communities[i].MemberCount = len(members)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

func (s *Server) searchUsers(c *gin.Context) {
	query := strings.ToLower(c.Query("q"))
	s.mu.Lock()
	var matches []models.User
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Username), query) ||
			strings.Contains(strings.ToLower(u.FullName), query) {
			matches = append(matches, u)
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"users": matches})
}

// handleWS authenticates the handshake via the token query parameter,
// upgrades, then echoes every received payload to the whole room with
// a server-assigned id and created_at. The client's timestamp is
// echoed back untouched; it is what the sender's dedup key matches on.
func (s *Server) handleWS(c *gin.Context) {
	roomID := c.Param("room_id")

	s.mu.Lock()
	user, ok := s.users[c.Query("token")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.hub.add(roomID, conn)

	go func() {
		defer func() {
			s.hub.remove(roomID, conn)
			conn.Close()
		}()
		for {
			var in models.Outgoing
			if err := conn.ReadJSON(&in); err != nil {
				return
			}

			s.mu.Lock()
			s.nextID++
			msg := models.Message{
				ID:        fmt.Sprintf("srv-%d", s.nextID),
				RoomID:    roomID,
				SenderID:  user.ID,
				Content:   in.Content,
				Timestamp: in.Timestamp,
				CreatedAt: time.Now().UTC(),
			}
			s.messages[roomID] = append(s.messages[roomID], msg)
			s.mu.Unlock()

			s.hub.broadcast(roomID, msg)
		}
	}()
}
