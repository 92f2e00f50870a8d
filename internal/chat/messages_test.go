package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majstri/messaging/internal/models"
)

func TestLoadMessagesNilConversation(t *testing.T) {
	store := new(MockStore)
	service := NewService(store, nil, nil)

	messages := service.LoadMessages(uuid.Nil, uuid.New())

	assert.Empty(t, messages)
	store.AssertNotCalled(t, "GetMessages")
}

func TestLoadMessagesFetchFailure(t *testing.T) {
	store := new(MockStore)
	signals := &recordingSignals{}
	service := NewService(store, signals, nil)

	conversationID := uuid.New()
	viewerID := uuid.New()
	store.On("GetMessages", conversationID).Return(nil, errors.New("timeout"))

	messages := service.LoadMessages(conversationID, viewerID)

	assert.Empty(t, messages)
	assert.Equal(t, 1, signals.noticeCount())
}

func TestLoadMessagesDecodesMetadata(t *testing.T) {
	store := new(MockStore)
	service := NewService(store, nil, nil)

	conversationID := uuid.New()
	viewerID := uuid.New()

	rows := []*models.Message{
		{
			ID:          uuid.New(),
			SenderID:    viewerID,
			Content:     "žiadosť",
			RawMetadata: []byte(`{"kind":"booking_request","status":"pending"}`),
			Read:        true,
		},
		{
			ID:       uuid.New(),
			SenderID: viewerID,
			Content:  "🔨 Žiadosť o rezerváciu\nDátum: 12.05.2024",
			Read:     true,
		},
		{
			ID:       uuid.New(),
			SenderID: viewerID,
			Content:  "obyčajná správa",
			Read:     true,
		},
	}
	store.On("GetMessages", conversationID).Return(rows, nil)

	messages := service.LoadMessages(conversationID, viewerID)

	require.Len(t, messages, 3)
	require.NotNil(t, messages[0].Metadata)
	assert.Equal(t, models.MetadataBookingRequest, messages[0].Metadata.Kind)
	require.NotNil(t, messages[1].Metadata)
	assert.Equal(t, "pending", messages[1].Metadata.Status)
	assert.Nil(t, messages[2].Metadata)
}

func TestLoadMessagesMarksUnreadBatch(t *testing.T) {
	store := new(MockStore)
	signals := &recordingSignals{}
	service := NewService(store, signals, nil)
	service.SetConfirmWindow(time.Millisecond, 10*time.Millisecond)

	conversationID := uuid.New()
	viewerID := uuid.New()
	senderID := uuid.New()

	rows := []*models.Message{
		{ID: uuid.New(), SenderID: senderID, ReceiverID: viewerID, Content: "a", Read: false},
		{ID: uuid.New(), SenderID: senderID, ReceiverID: viewerID, Content: "b", Read: false},
	}
	store.On("GetMessages", conversationID).Return(rows, nil)
	store.On("MarkConversationRead", conversationID, viewerID).Return(int64(2), nil)
	store.On("CountUnread", conversationID, viewerID).Return(0, nil)

	messages := service.LoadMessages(conversationID, viewerID)
	require.Len(t, messages, 2)

	// The read-state mutation is delegated asynchronously.
	assert.Eventually(t, func() bool {
		return store.AssertCalled(t, "MarkConversationRead", conversationID, viewerID)
	}, time.Second, 5*time.Millisecond)
}

func TestLoadMessagesNoUnreadNoMutation(t *testing.T) {
	store := new(MockStore)
	service := NewService(store, nil, nil)

	conversationID := uuid.New()
	viewerID := uuid.New()

	rows := []*models.Message{
		// Unread but addressed to the counterpart, not the viewer.
		{ID: uuid.New(), SenderID: viewerID, ReceiverID: uuid.New(), Content: "x", Read: false},
	}
	store.On("GetMessages", conversationID).Return(rows, nil)

	service.LoadMessages(conversationID, viewerID)
	time.Sleep(20 * time.Millisecond)

	store.AssertNotCalled(t, "MarkConversationRead")
}
