package clientsync

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/realtime"
)

// HubSubscriber subscribes directly to an in-process SSE hub.
type HubSubscriber struct {
	Hub *realtime.SSEHub
}

func (h HubSubscriber) Subscribe(_ context.Context, userID uuid.UUID) (Subscription, error) {
	if h.Hub == nil {
		return nil, errors.New("clientsync: hub not configured")
	}
	client := h.Hub.NewSSEClient(userID)
	h.Hub.AddChannel(client, realtime.UserChannel(userID))
	sub := &hubSubscription{hub: h.Hub, client: client, signals: make(chan struct{}, 1)}
	go sub.pump()
	return sub, nil
}

type hubSubscription struct {
	hub     *realtime.SSEHub
	client  *realtime.SSEClient
	signals chan struct{}
}

func (s *hubSubscription) pump() {
	defer close(s.signals)
	for msg := range s.client.Outbound {
		if msg.Event != realtime.SSEEventReady {
			continue
		}
		notify(s.signals)
	}
}

func (s *hubSubscription) Signals() <-chan struct{} { return s.signals }

func (s *hubSubscription) Close() error {
	s.hub.CloseClient(s.client)
	return nil
}

// notify coalesces: one pending signal already guarantees a refetch of the latest state.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
