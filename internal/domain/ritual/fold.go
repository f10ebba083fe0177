package ritual

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Apply folds a single event onto p. Non-advancing stages are ignored; events for another
// quest or user are skipped. An event that names the day it completed only applies while
// that day is p's target, so folding an already-applied event again is a no-op. The
// returned bool reports whether p changed.
func Apply(p *ProgressProjection, evt *ProgressionEvent) bool {
	if p == nil || evt == nil || !evt.Stage.Advances() {
		return false
	}
	if evt.UserID == nil || *evt.UserID != p.UserID {
		return false
	}
	if p.QuestID != "" && evt.QuestID != p.QuestID {
		return false
	}
	if p.IsQuestComplete {
		return false
	}
	if day, ok := evt.Day(); ok && day != p.CurrentDayTarget {
		return false
	}
	at := evt.CreatedAt
	switch evt.Stage {
	case StageDayCompleted:
		p.CurrentDayTarget = ClampDay(p.CurrentDayTarget + 1)
	case StageQuestCompleted:
		p.CurrentDayTarget = DayCount
		p.IsQuestComplete = true
	}
	p.LastAdvancementAt = &at
	if at.After(p.UpdatedAt) {
		p.UpdatedAt = at
	}
	return true
}

// Fold replays events in (created_at, id) order on top of a fresh day-1 projection.
func Fold(userID uuid.UUID, questID string, events []*ProgressionEvent) ProgressProjection {
	p := NewProjection(userID, questID, time.Time{})
	for _, evt := range SortEvents(events) {
		Apply(p, evt)
	}
	return *p
}

// SortEvents returns events ordered by (created_at, id) without mutating the input.
func SortEvents(events []*ProgressionEvent) []*ProgressionEvent {
	out := make([]*ProgressionEvent, 0, len(events))
	for _, e := range events {
		if e != nil {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
