package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/atcloud/signup/core"
	"github.com/atcloud/signup/core/event"
)

type eventRepository struct {
	db *eventTable
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) *eventRepository {
	return &eventRepository{db: db.event}
}

// BeginTx is a no-op: the table mutex serializes writers.
func (repo *eventRepository) BeginTx(ctx context.Context) (core.DBTransactor, error) {
	return nil, nil
}

func (repo *eventRepository) query() []event.Event {
	events := make([]event.Event, 0, len(repo.db.table))
	for _, evt := range repo.db.table {
		events = append(events, *evt)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	evt.ID = uuid.New().String()
	repo.db.table[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) GetEventByID(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if evt, ok := repo.db.table[id]; ok {
		return *evt, nil
	}
	return event.Event{}, event.ErrNotFound
}

// GetEventForUpdate does NOT hold a lock until the matching UpdateEvent:
// the read-merge-write sequence is only atomic for single-goroutine tests.
// The sqlx repository is the one providing real row locking (FOR UPDATE).
func (repo *eventRepository) GetEventForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	return repo.GetEventByID(ctx, id, exec...)
}

func (repo *eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := repo.query()
	if filter == nil || filter.IsEmpty() {
		return events, nil
	}
	filter.Clean()

	matched := make([]event.Event, 0, len(events))
	for _, evt := range events {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !(strings.Contains(strings.ToLower(evt.Title), search) ||
				strings.Contains(strings.ToLower(evt.Description), search)) {
				continue
			}
		}
		if filter.Format != "" && evt.Format != filter.Format {
			continue
		}
		if filter.Published != nil && evt.Publish != *filter.Published {
			continue
		}
		if !filter.DateFrom.IsZero() && evt.Date.Before(filter.DateFrom) {
			continue
		}
		if !filter.DateTo.IsZero() && evt.Date.After(filter.DateTo) {
			continue
		}
		matched = append(matched, evt)
	}
	return matched, nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[evt.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	repo.db.table[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) DeleteEventsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
