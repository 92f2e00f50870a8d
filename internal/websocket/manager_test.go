package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majstri/messaging/internal/chat"
	"github.com/majstri/messaging/internal/realtime"
)

// The manager is the chat core's outbound signal surface.
var _ chat.Signals = (*Manager)(nil)

// setupTestServer runs a manager behind a stub auth middleware that
// injects the user id from the query string.
func setupTestServer(t *testing.T, broker *realtime.Broker) (*httptest.Server, *Manager) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	manager := NewManager(broker, realtime.Config{
		MaxRetries:    3,
		RetryBackoff:  time.Millisecond,
		SweepInterval: time.Hour,
	})
	go manager.Run()

	router.GET("/ws", func(c *gin.Context) {
		userID, err := uuid.Parse(c.Query("user"))
		require.NoError(t, err)
		c.Set("userID", userID)
		c.Next()
	}, manager.HandleSession)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, manager
}

func dial(t *testing.T, server *httptest.Server, userID uuid.UUID) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?user=" + userID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	// Pumped writes may batch frames newline-separated; take the
	// first.
	if i := strings.IndexByte(string(payload), '\n'); i >= 0 {
		payload = payload[:i]
	}

	var frame Frame
	require.NoError(t, json.Unmarshal(payload, &frame))
	return frame
}

func TestSessionReceivesNotice(t *testing.T) {
	server, manager := setupTestServer(t, realtime.NewBroker())

	userID := uuid.New()
	conn := dial(t, server, userID)

	// Wait for registration before pushing.
	require.Eventually(t, func() bool {
		manager.mutex.Lock()
		defer manager.mutex.Unlock()
		_, ok := manager.clients[userID]
		return ok
	}, time.Second, time.Millisecond)

	manager.Notice(userID, "Správu sa nepodarilo odoslať")

	frame := readFrame(t, conn)
	assert.Equal(t, FrameNotice, frame.Type)
	assert.Equal(t, "Správu sa nepodarilo odoslať", frame.Content)
}

func TestSessionReceivesInvalidationOnPublish(t *testing.T) {
	broker := realtime.NewBroker()
	server, manager := setupTestServer(t, broker)

	userID := uuid.New()
	conversationID := uuid.New()
	conn := dial(t, server, userID)

	require.Eventually(t, func() bool {
		manager.mutex.Lock()
		defer manager.mutex.Unlock()
		client, ok := manager.clients[userID]
		if !ok {
			return false
		}
		user, _ := client.supervisor.Healthy()
		return user
	}, time.Second, time.Millisecond)

	broker.Publish(realtime.Event{
		Table:          "messages",
		Type:           realtime.EventInsert,
		ConversationID: conversationID,
		ReceiverID:     userID,
	})

	// The insert yields a message refresh for the conversation and a
	// contact refresh; order is fixed by pushInvalidation.
	first := readFrame(t, conn)
	assert.Equal(t, FrameRefreshMessages, first.Type)
	assert.Equal(t, conversationID, first.ConversationID)
}

func TestTypingPassthrough(t *testing.T) {
	server, manager := setupTestServer(t, realtime.NewBroker())

	sender := uuid.New()
	receiver := uuid.New()
	senderConn := dial(t, server, sender)
	receiverConn := dial(t, server, receiver)

	require.Eventually(t, func() bool {
		manager.mutex.Lock()
		defer manager.mutex.Unlock()
		_, okA := manager.clients[sender]
		_, okB := manager.clients[receiver]
		return okA && okB
	}, time.Second, time.Millisecond)

	payload, _ := json.Marshal(Frame{Type: FrameTyping, ReceiverID: receiver, IsTyping: true})
	require.NoError(t, senderConn.WriteMessage(websocket.TextMessage, payload))

	frame := readFrame(t, receiverConn)
	assert.Equal(t, FrameTyping, frame.Type)
	assert.Equal(t, sender, frame.SenderID)
	assert.True(t, frame.IsTyping)
}

func TestUnknownFrameType(t *testing.T) {
	server, manager := setupTestServer(t, realtime.NewBroker())

	userID := uuid.New()
	conn := dial(t, server, userID)

	require.Eventually(t, func() bool {
		manager.mutex.Lock()
		defer manager.mutex.Unlock()
		_, ok := manager.clients[userID]
		return ok
	}, time.Second, time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))

	frame := readFrame(t, conn)
	assert.Equal(t, FrameError, frame.Type)
}
