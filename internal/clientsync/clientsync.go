// Package clientsync keeps a client session's view of the ritual in step with the server.
//
// A Session subscribes to the user's realtime channel, refetches the authoritative status on
// mount, on every ready signal and on a stale timer, and redirects the displayed day to the
// server's current target. Cached values never short-circuit a refetch.
package clientsync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type State int32

const (
	StateIdle State = iota
	StateListening
	StateRefreshing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateRefreshing:
		return "refreshing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Cache keys invalidated on every refresh.
const (
	StatusKey   = "ritual.status"
	ImprintsKey = "ritual.imprints"
)

// Status mirrors GET /api/ritual/status.
type Status struct {
	QuestID           string          `json:"quest_id"`
	CurrentDayTarget  int             `json:"current_day_target"`
	IsQuestComplete   bool            `json:"is_quest_complete"`
	LastAdvancementAt *time.Time      `json:"last_advancement_at"`
	DayDefinition     json.RawMessage `json:"day_definition,omitempty"`
	Imprints          json.RawMessage `json:"imprints,omitempty"`
}

// DefaultStatus is what a user without a projection sees.
func DefaultStatus() *Status {
	return &Status{CurrentDayTarget: 1}
}

// Subscription delivers "state changed" signals. Signals is closed when the subscription
// ends for good.
type Subscription interface {
	Signals() <-chan struct{}
	Close() error
}

type Subscriber interface {
	Subscribe(ctx context.Context, userID uuid.UUID) (Subscription, error)
}

type StatusFetcher interface {
	FetchStatus(ctx context.Context, userID uuid.UUID) (*Status, error)
}

// Navigator is the session's view of which day is on screen.
type Navigator interface {
	DisplayedDay() int
	Redirect(day int)
}

type QueryCache interface {
	Invalidate(keys ...string)
	Put(key string, value any)
}
