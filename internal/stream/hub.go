// Package stream pushes each cycle's candidates to websocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"skyflip/internal/models"
)

type Message struct {
	Type       string                 `json:"type"`
	CycleID    string                 `json:"cycle_id"`
	SentAt     time.Time              `json:"sent_at"`
	Candidates []models.FlipCandidate `json:"candidates"`
}

// Hub fans candidates out to connected websocket clients. A client whose buffer is full
// is disconnected rather than slowing the cycle down.
type Hub struct {
	Logger         *zap.Logger
	BufferSize     int
	WriteTimeout   time.Duration
	OriginPatterns []string

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	msgs      chan []byte
	closeSlow func()
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{Logger: logger, BufferSize: 16, WriteTimeout: 5 * time.Second}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Accept broadcasts one message per cycle that produced candidates.
func (h *Hub) Accept(ctx context.Context, cycleID string, candidates []models.FlipCandidate) error {
	if h == nil || len(candidates) == 0 {
		return nil
	}
	payload, err := json.Marshal(Message{
		Type:       "flip_candidates",
		CycleID:    cycleID,
		SentAt:     time.Now().UTC(),
		Candidates: candidates,
	})
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.msgs <- payload:
		default:
			// Dropped from subs first so later broadcasts do not close it again.
			delete(h.subs, s)
			go s.closeSlow()
		}
	}
	return nil
}

// ServeHTTP upgrades the request and streams messages until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		h.logDebug("websocket accept failed", err)
		return
	}
	defer conn.CloseNow()

	err = h.serve(r.Context(), conn)
	if errors.Is(err, context.Canceled) ||
		websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return
	}
	if err != nil {
		h.logDebug("websocket subscriber closed", err)
	}
}

func (h *Hub) serve(ctx context.Context, conn *websocket.Conn) error {
	size := h.BufferSize
	if size <= 0 {
		size = 16
	}
	s := &subscriber{
		msgs: make(chan []byte, size),
		closeSlow: func() {
			_ = conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
		},
	}
	h.add(s)
	defer h.remove(s)

	// Subscribers never send; CloseRead handles control frames and cancels ctx on close.
	ctx = conn.CloseRead(ctx)
	timeout := h.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	for {
		select {
		case msg := <-s.msgs:
			if err := writeTimeout(ctx, timeout, conn, msg); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	if h.subs == nil {
		h.subs = map[*subscriber]struct{}{}
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

func (h *Hub) logDebug(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Debug(msg, zap.Error(err))
	}
}

func writeTimeout(ctx context.Context, timeout time.Duration, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}
