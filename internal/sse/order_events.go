package sse

import (
	"context"
	"sync"
	"time"
)

// OrderEvent is what a subscribed client sees when one of their orders
// moves through the pipeline.
type OrderEvent struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderEventEmitter manages SSE connections and broadcasts order
// status changes to the user they belong to.
type OrderEventEmitter struct {
	userClients     map[string][]chan OrderEvent
	userClientMutex sync.RWMutex
}

func NewOrderEventEmitter() *OrderEventEmitter {
	return &OrderEventEmitter{
		userClients: make(map[string][]chan OrderEvent),
	}
}

// Subscribe adds a client to the user's order events. The channel is
// removed and closed when the context ends.
func (e *OrderEventEmitter) Subscribe(ctx context.Context, userID string) chan OrderEvent {
	clientChan := make(chan OrderEvent, 10)

	e.userClientMutex.Lock()
	e.userClients[userID] = append(e.userClients[userID], clientChan)
	e.userClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(userID, clientChan)
	}()

	return clientChan
}

// Broadcast fans an order status change out to the owner's clients.
func (e *OrderEventEmitter) Broadcast(orderID, userID, status string) {
	event := OrderEvent{
		OrderID:    orderID,
		UserID:     userID,
		Status:     status,
		OccurredAt: time.Now(),
	}

	e.userClientMutex.RLock()
	clients := e.userClients[userID]
	e.userClientMutex.RUnlock()

	for _, clientChan := range clients {
		// Non-blocking send so a slow client never stalls the emitter
		select {
		case clientChan <- event:
		default:
		}
	}
}

func (e *OrderEventEmitter) removeClient(userID string, clientChan chan OrderEvent) {
	e.userClientMutex.Lock()
	defer e.userClientMutex.Unlock()

	clients := e.userClients[userID]
	for i, ch := range clients {
		if ch == clientChan {
			e.userClients[userID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.userClients[userID]) == 0 {
		delete(e.userClients, userID)
	}
}

// ClientCount returns the number of clients currently subscribed for a
// user.
func (e *OrderEventEmitter) ClientCount(userID string) int {
	e.userClientMutex.RLock()
	defer e.userClientMutex.RUnlock()
	return len(e.userClients[userID])
}
