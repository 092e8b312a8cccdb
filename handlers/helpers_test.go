package handlers

import (
	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"

	"github.com/bladi23/ImportadoraSonib/identity"
)

// mockProducer records published messages instead of talking to a broker.
type mockProducer struct {
	sarama.SyncProducer
	messages []*sarama.ProducerMessage
}

func (m *mockProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	m.messages = append(m.messages, msg)
	return 0, int64(len(m.messages)), nil
}

func (m *mockProducer) Close() error { return nil }

type trackedEvent struct {
	EventType string
	ProductID int
	UserID    string
	SessionID string
}

type fakeTracker struct {
	events []trackedEvent
}

func (f *fakeTracker) Track(eventType string, productID int, userID, sessionID string) {
	f.events = append(f.events, trackedEvent{eventType, productID, userID, sessionID})
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(identity.Middleware())
	return router
}
