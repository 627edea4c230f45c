package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/atcloud/signup/core"
	"github.com/atcloud/signup/core/event"
)

const eventColumns = `id, title, description, format, location, zoom_link, meeting_id, passcode,
	date, organizer_id, publish, published_at, auto_unpublished_at, auto_unpublish_reason,
	created_at, updated_at`

type eventRow struct {
	ID                  string      `db:"id"`
	Title               string      `db:"title"`
	Description         string      `db:"description"`
	Format              string      `db:"format"`
	Location            string      `db:"location"`
	ZoomLink            string      `db:"zoom_link"`
	MeetingID           string      `db:"meeting_id"`
	Passcode            string      `db:"passcode"`
	Date                null.Time   `db:"date"`
	OrganizerID         null.String `db:"organizer_id"`
	Publish             bool        `db:"publish"`
	PublishedAt         null.Time   `db:"published_at"`
	AutoUnpublishedAt   null.Time   `db:"auto_unpublished_at"`
	AutoUnpublishReason string      `db:"auto_unpublish_reason"`
	CreatedAt           null.Time   `db:"created_at"`
	UpdatedAt           null.Time   `db:"updated_at"`
}

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo eventRepository) getExt(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if tx, ok := svcExec[0].(*sqlx.Tx); ok {
			return tx
		}
	}
	return repo.db
}

func (repo eventRepository) row(evt event.Event) eventRow {
	return eventRow{
		ID:                  evt.ID,
		Title:               evt.Title,
		Description:         evt.Description,
		Format:              string(evt.Format),
		Location:            evt.Location,
		ZoomLink:            evt.ZoomLink,
		MeetingID:           evt.MeetingID,
		Passcode:            evt.Passcode,
		Date:                null.TimeFrom(evt.Date.UTC()),
		OrganizerID:         null.NewString(evt.OrganizerID, evt.OrganizerID != ""),
		Publish:             evt.Publish,
		PublishedAt:         null.TimeFromPtr(evt.PublishedAt),
		AutoUnpublishedAt:   null.TimeFromPtr(evt.AutoUnpublishedAt),
		AutoUnpublishReason: evt.AutoUnpublishReason,
		CreatedAt:           null.TimeFrom(evt.CreatedAt.UTC()),
		UpdatedAt:           null.TimeFrom(evt.UpdatedAt.UTC()),
	}
}

func (repo eventRepository) unrow(row eventRow) event.Event {
	return event.Event{
		ID:                  row.ID,
		Title:               row.Title,
		Description:         row.Description,
		Format:              event.Format(row.Format),
		Location:            row.Location,
		ZoomLink:            row.ZoomLink,
		MeetingID:           row.MeetingID,
		Passcode:            row.Passcode,
		Date:                row.Date.Time,
		OrganizerID:         row.OrganizerID.String,
		Publish:             row.Publish,
		PublishedAt:         row.PublishedAt.Ptr(),
		AutoUnpublishedAt:   row.AutoUnpublishedAt.Ptr(),
		AutoUnpublishReason: row.AutoUnpublishReason,
		CreatedAt:           row.CreatedAt.Time,
		UpdatedAt:           row.UpdatedAt.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to event.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return event.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo eventRepository) BeginTx(ctx context.Context) (core.DBTransactor, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	return tx, nil
}

func (repo eventRepository) CreateEvent(ctx context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	evt.ID = uuid.New().String()
	row := repo.row(evt)

	q := `INSERT INTO event (` + eventColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := repo.getExt(exec).ExecContext(ctx, q,
		row.ID, row.Title, row.Description, row.Format, row.Location, row.ZoomLink,
		row.MeetingID, row.Passcode, row.Date, row.OrganizerID, row.Publish,
		row.PublishedAt, row.AutoUnpublishedAt, row.AutoUnpublishReason,
		row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return evt, nil
}

func (repo eventRepository) getEvent(ctx context.Context, id string, forUpdate bool, exec []core.DBExecutor) (event.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM event WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	var row eventRow
	if err := sqlx.GetContext(ctx, repo.getExt(exec), &row, q, id); err != nil {
		return event.Event{}, trapNoRowsErr(err, "getting event")
	}
	return repo.unrow(row), nil
}

func (repo eventRepository) GetEventByID(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	return repo.getEvent(ctx, id, false, exec)
}

func (repo eventRepository) GetEventForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	return repo.getEvent(ctx, id, true, exec)
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]event.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM event`
	var conds []string
	var args []interface{}

	next := func(v interface{}) int {
		args = append(args, v)
		return len(args)
	}

	if filter != nil {
		filter.Clean()
		if filter.Search != "" {
			n := next("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
		}
		if filter.Format != "" {
			conds = append(conds, fmt.Sprintf("format = $%d", next(string(filter.Format))))
		}
		if filter.Published != nil {
			conds = append(conds, fmt.Sprintf("publish = $%d", next(*filter.Published)))
		}
		if !filter.DateFrom.IsZero() {
			conds = append(conds, fmt.Sprintf("date >= $%d", next(filter.DateFrom.UTC())))
		}
		if !filter.DateTo.IsZero() {
			conds = append(conds, fmt.Sprintf("date <= $%d", next(filter.DateTo.UTC())))
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, "date ASC")

	var rows []eventRow
	if err := sqlx.SelectContext(ctx, repo.getExt(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, repo.unrow(row))
	}
	return events, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	row := repo.row(evt)

	q := `UPDATE event SET
		title = $2, description = $3, format = $4, location = $5, zoom_link = $6,
		meeting_id = $7, passcode = $8, date = $9, organizer_id = $10, publish = $11,
		published_at = $12, auto_unpublished_at = $13, auto_unpublish_reason = $14,
		updated_at = $15
	WHERE id = $1`
	res, err := repo.getExt(exec).ExecContext(ctx, q,
		row.ID, row.Title, row.Description, row.Format, row.Location, row.ZoomLink,
		row.MeetingID, row.Passcode, row.Date, row.OrganizerID, row.Publish,
		row.PublishedAt, row.AutoUnpublishedAt, row.AutoUnpublishReason, row.UpdatedAt,
	)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return evt, nil
}

func (repo eventRepository) DeleteEventsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM event WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting events")
	}
	return nil
}
