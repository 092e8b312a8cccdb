package reco

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/middleware"
	"github.com/bladi23/ImportadoraSonib/models"
)

const (
	defaultQueueSize = 1024
	writeTimeout     = 5 * time.Second
)

// Tracker records behavioral events off the request path. Track never blocks:
// when the queue is full the event is dropped and counted. A background
// goroutine drains the queue into product_events.
type Tracker struct {
	db      *sql.DB
	logger  *zap.Logger
	queue   chan models.ProductEvent
	dropped atomic.Int64
	stopped atomic.Bool
	wg      sync.WaitGroup
}

func NewTracker(db *sql.DB, logger *zap.Logger) *Tracker {
	return &Tracker{
		db:     db,
		logger: logger,
		queue:  make(chan models.ProductEvent, defaultQueueSize),
	}
}

// Start launches the background writer. Call Stop to drain and shut down.
func (t *Tracker) Start() {
	t.wg.Add(1)
	go t.run()
}

// Stop prevents further enqueues, drains the queue and waits for the writer.
func (t *Tracker) Stop() {
	if t.stopped.Swap(true) {
		return
	}
	close(t.queue)
	t.wg.Wait()
}

// Track enqueues one event. Failures are invisible to the caller: a full
// queue or a stopped tracker drops the event and bumps the drop counter.
func (t *Tracker) Track(eventType string, productID int, userID, sessionID string) {
	if t.stopped.Load() {
		t.drop()
		return
	}
	if sessionID == "" {
		// session_id is NOT NULL; synthesize one for callers that only
		// carry a user identity.
		sessionID = uuid.New().String()
	}

	ev := models.ProductEvent{
		ProductID: productID,
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
	}
	select {
	case t.queue <- ev:
	default:
		t.drop()
	}
}

// Dropped reports how many events were discarded since startup.
func (t *Tracker) Dropped() int64 {
	return t.dropped.Load()
}

func (t *Tracker) drop() {
	t.dropped.Add(1)
	middleware.RecordRecoEventDropped()
}

func (t *Tracker) run() {
	defer t.wg.Done()
	for ev := range t.queue {
		t.write(ev)
	}
}

func (t *Tracker) write(ev models.ProductEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	userID := sql.NullString{String: ev.UserID, Valid: ev.UserID != ""}
	_, err := t.db.ExecContext(ctx,
		"INSERT INTO product_events (product_id, event_type, user_id, session_id) VALUES ($1, $2, $3, $4)",
		ev.ProductID, ev.EventType, userID, ev.SessionID,
	)
	if err != nil {
		// A lost event is acceptable; a blocked purchase path is not.
		t.logger.Warn("Failed to write product event",
			zap.Int("product_id", ev.ProductID),
			zap.String("event_type", ev.EventType),
			zap.Error(err),
		)
	}
}
