package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/majstri/messaging/internal/logger"
	"github.com/majstri/messaging/internal/realtime"
)

// Frame types
const (
	FrameNotice           = "notice"
	FrameRefreshContacts  = "refresh_contacts"
	FrameRefreshMessages  = "refresh_messages"
	FrameTyping           = "typing"
	FrameOpenConversation = "open_conversation"
	FrameError            = "error"
)

var log = logger.New("websocket")

// Frame is the single envelope exchanged with browser clients. Pushes
// from the server are invalidation signals and notices; the client
// reloads data over the REST API. Inbound frames select the open
// conversation or relay typing indicators.
type Frame struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id,omitempty"`
	SenderID       uuid.UUID `json:"sender_id,omitempty"`
	ReceiverID     uuid.UUID `json:"receiver_id,omitempty"`
	Content        string    `json:"content,omitempty"`
	IsTyping       bool      `json:"is_typing,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Client represents one connected session. Each session owns a
// realtime supervisor scoped to its user; closing the session closes
// the supervisor.
type Client struct {
	ID         uuid.UUID
	Socket     *websocket.Conn
	Send       chan []byte
	supervisor *realtime.Supervisor
}

// Manager maintains the set of active client sessions.
type Manager struct {
	channel       realtime.Channel
	supervisorCfg realtime.Config

	clients    map[uuid.UUID]*Client
	register   chan *Client
	unregister chan *Client
	mutex      sync.Mutex
}

// NewManager creates a session manager whose supervisors subscribe on
// the given channel.
func NewManager(channel realtime.Channel, supervisorCfg realtime.Config) *Manager {
	return &Manager{
		channel:       channel,
		supervisorCfg: supervisorCfg,
		clients:       make(map[uuid.UUID]*Client),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
	}
}

// Run starts the session manager loop.
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.mutex.Lock()
			if prev, ok := m.clients[client.ID]; ok {
				// One session per user; the newer mount wins.
				prev.supervisor.Close()
				close(prev.Send)
			}
			m.clients[client.ID] = client
			m.mutex.Unlock()
			log.Info("Client connected: %s", client.ID)
		case client := <-m.unregister:
			m.mutex.Lock()
			if current, ok := m.clients[client.ID]; ok && current == client {
				delete(m.clients, client.ID)
				close(client.Send)
			}
			m.mutex.Unlock()
			client.supervisor.Close()
			log.Info("Client disconnected: %s", client.ID)
		}
	}
}

// SendFrame pushes one frame to a user's session, if connected.
// Best effort: an absent or saturated session drops the frame.
func (m *Manager) SendFrame(userID uuid.UUID, frame Frame) {
	frame.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Error("Failed to encode frame: %v", err)
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	client, ok := m.clients[userID]
	if !ok {
		log.Debug("User %s not connected, dropping %s frame", userID, frame.Type)
		return
	}

	select {
	case client.Send <- payload:
	default:
		log.Warn("Send buffer full for user %s, dropping %s frame", userID, frame.Type)
	}
}

// Notice implements the transient toast surface.
func (m *Manager) Notice(userID uuid.UUID, text string) {
	m.SendFrame(userID, Frame{Type: FrameNotice, Content: text})
}

// ContactsChanged tells the user's session to reload its contact
// list.
func (m *Manager) ContactsChanged(userID uuid.UUID) {
	m.SendFrame(userID, Frame{Type: FrameRefreshContacts})
}

// HandleSession upgrades the request and runs one client session.
// The caller's middleware already placed the authenticated user id in
// the context.
func (m *Manager) HandleSession(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		log.Warn("No userID in context, rejecting connection from %s", c.Request.RemoteAddr)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	userUUID, ok := userID.(uuid.UUID)
	if !ok {
		log.Error("Invalid UUID in context from %s", c.Request.RemoteAddr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user identification"})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Origin is enforced by the CORS layer in front.
			return true
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		ID:     userUUID,
		Socket: conn,
		Send:   make(chan []byte, 256),
	}
	client.supervisor = realtime.NewSupervisor(m.channel, userUUID, func(e realtime.Event) {
		m.pushInvalidation(client, e)
	}, m.supervisorCfg)

	m.register <- client
	client.supervisor.Start()

	go client.readPump(m)
	go client.writePump()
	log.Info("Client %s connected and ready", client.ID)
}

// pushInvalidation translates a row-change event into refresh signals
// for one session. Both subscription scopes can match the same event;
// the resulting duplicate refreshes are idempotent on the client.
func (m *Manager) pushInvalidation(client *Client, e realtime.Event) {
	if e.ConversationID != uuid.Nil {
		m.SendFrame(client.ID, Frame{Type: FrameRefreshMessages, ConversationID: e.ConversationID})
	}
	m.SendFrame(client.ID, Frame{Type: FrameRefreshContacts})
}

// readPump pumps inbound frames from the socket.
func (c *Client) readPump(m *Manager) {
	defer func() {
		m.unregister <- c
		c.Socket.Close()
	}()

	c.Socket.SetReadLimit(64 * 1024)
	c.Socket.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Socket.SetPongHandler(func(string) error {
		c.Socket.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	messageCount := 0
	lastResetTime := time.Now()
	const maxMessagesPerMinute = 60

	for {
		if messageCount >= maxMessagesPerMinute {
			if time.Since(lastResetTime) < time.Minute {
				log.Warn("Rate limit exceeded for client %s", c.ID)
				time.Sleep(time.Second)
				continue
			}
			messageCount = 0
			lastResetTime = time.Now()
		}

		_, payload, err := c.Socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error("Error reading from client %s: %v", c.ID, err)
			} else {
				log.Info("Client %s closed connection: %v", c.ID, err)
			}
			break
		}

		messageCount++

		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			log.Error("Error unmarshaling frame from %s: %v", c.ID, err)
			c.sendError("Invalid frame format")
			continue
		}

		switch frame.Type {
		case FrameOpenConversation:
			// uuid.Nil closes the conversation scope.
			c.supervisor.SetConversation(frame.ConversationID)
		case FrameTyping:
			if frame.ReceiverID == uuid.Nil {
				log.Debug("Typing indicator without receiver from %s", c.ID)
				continue
			}
			m.SendFrame(frame.ReceiverID, Frame{
				Type:           FrameTyping,
				ConversationID: frame.ConversationID,
				SenderID:       c.ID,
				IsTyping:       frame.IsTyping,
			})
		default:
			log.Warn("Unknown frame type '%s' from client %s", frame.Type, c.ID)
			c.sendError("Unknown frame type")
		}
	}
}

func (c *Client) sendError(text string) {
	payload, _ := json.Marshal(Frame{Type: FrameError, Content: text, Timestamp: time.Now().UTC()})
	select {
	case c.Send <- payload:
	default:
	}
}

// writePump pumps frames from the manager to the socket.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Socket.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Socket.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Socket.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Socket.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
