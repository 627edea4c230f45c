package event

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/atcloud/signup/core"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		// BeginTx starts a transaction that repo calls can run in via their
		// exec argument; implementations without transactions return nil.
		BeginTx(ctx context.Context) (core.DBTransactor, error)
		CreateEvent(ctx context.Context, evt Event, exec ...core.DBExecutor) (Event, error)
		GetEventByID(ctx context.Context, id string, exec ...core.DBExecutor) (Event, error)
		// GetEventForUpdate locks the event row for the duration of the
		// surrounding transaction so read-merge-decide-write sequences on the
		// same event are serialized.
		GetEventForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (Event, error)
		QueryEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Event, error)
		UpdateEvent(ctx context.Context, evt Event, exec ...core.DBExecutor) (Event, error)
		DeleteEventsByID(ctx context.Context, ids ...string) error
	}

	// OrganizerDirectory resolves an event's organizer to an email address.
	OrganizerDirectory interface {
		GetOrganizerAddress(ctx context.Context, organizerID string) (mail.Address, error)
	}

	Service struct {
		repo       Repository
		organizers OrganizerDirectory
		mailSvc    core.EmailService
		logger     core.Logger
		conf       *core.Config
	}
)

func NewService(
	repo Repository,
	organizers OrganizerDirectory,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:       repo,
		organizers: organizers,
		mailSvc:    mailSvc,
		logger:     logger,
		conf:       conf,
	}
}

// begin opens a transaction on repos that support them; in-memory repos run without one.
func (svc *Service) begin(ctx context.Context) (core.DBTransactor, []core.DBExecutor, error) {
	tx, err := svc.repo.BeginTx(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "beginning transaction")
	}
	if tx == nil {
		return nil, nil, nil
	}
	return tx, []core.DBExecutor{tx}, nil
}

func rollback(tx core.DBTransactor) {
	if tx != nil {
		_ = tx.Rollback()
	}
}

func commit(tx core.DBTransactor) error {
	if tx == nil {
		return nil
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (svc *Service) Create(ctx context.Context, ne NewEvent, organizerID string) (Event, error) {
	ne.Clean()
	now := NowFunc().UTC()
	evt := Event{
		Title:       ne.Title,
		Description: ne.Description,
		Format:      ne.Format,
		Location:    ne.Location,
		ZoomLink:    ne.ZoomLink,
		MeetingID:   ne.MeetingID,
		Passcode:    ne.Passcode,
		Date:        ne.Date.UTC(),
		OrganizerID: organizerID,
		Publish:     false, // events are always created as drafts
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateEvent(ctx, evt)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEventByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

// Publish transitions a draft to published. The event must satisfy its
// format's necessary-field matrix; otherwise a *MissingFieldsError is
// returned and nothing is mutated.
func (svc *Service) Publish(ctx context.Context, id string) (Event, error) {
	tx, exec, err := svc.begin(ctx)
	if err != nil {
		return Event{}, err
	}
	defer rollback(tx)

	evt, err := svc.repo.GetEventForUpdate(ctx, id, exec...)
	if err != nil {
		return Event{}, err
	}

	missing, err := MissingPublishFields(evt)
	if err != nil {
		return Event{}, err
	}
	if len(missing) > 0 {
		return Event{}, &MissingFieldsError{Format: evt.Format, Missing: missing}
	}

	if !evt.Publish {
		now := NowFunc().UTC()
		evt.Publish = true
		evt.PublishedAt = &now
		evt.AutoUnpublishedAt = nil
		evt.AutoUnpublishReason = ""
		evt.UpdatedAt = now
		if evt, err = svc.repo.UpdateEvent(ctx, evt, exec...); err != nil {
			return Event{}, errors.Wrap(err, "publishing event")
		}
	}
	return evt, commit(tx)
}

// Unpublish transitions a published event back to draft. It is unconditional
// and idempotent: unpublishing a draft is a no-op.
func (svc *Service) Unpublish(ctx context.Context, id string) (Event, error) {
	tx, exec, err := svc.begin(ctx)
	if err != nil {
		return Event{}, err
	}
	defer rollback(tx)

	evt, err := svc.repo.GetEventForUpdate(ctx, id, exec...)
	if err != nil {
		return Event{}, err
	}

	if evt.Publish || evt.PublishedAt != nil {
		evt.Publish = false
		evt.PublishedAt = nil
		evt.UpdatedAt = NowFunc().UTC()
		if evt, err = svc.repo.UpdateEvent(ctx, evt, exec...); err != nil {
			return Event{}, errors.Wrap(err, "unpublishing event")
		}
	}
	return evt, commit(tx)
}

// Update applies a partial update. Updates are never rejected for publish
// readiness; but if the merged result of a published event no longer
// satisfies its matrix, the event is force-demoted in the same write
// (publish=false + autoUnpublishedAt/autoUnpublishReason stamps) and the
// organizer is notified best-effort after the write lands.
func (svc *Service) Update(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	tx, exec, err := svc.begin(ctx)
	if err != nil {
		return Event{}, err
	}
	defer rollback(tx)

	evt, err := svc.repo.GetEventForUpdate(ctx, id, exec...)
	if err != nil {
		return Event{}, err
	}

	wasPublished := evt.Publish
	evt = ue.apply(evt)
	now := NowFunc().UTC()
	evt.UpdatedAt = now

	var missing []string
	if wasPublished {
		if missing, err = MissingPublishFields(evt); err != nil {
			return Event{}, err
		}
		if len(missing) > 0 {
			evt.Publish = false
			evt.AutoUnpublishedAt = &now
			evt.AutoUnpublishReason = AutoUnpublishReasonIncompleteFields
		}
	}

	if evt, err = svc.repo.UpdateEvent(ctx, evt, exec...); err != nil {
		return Event{}, errors.Wrap(err, "updating event")
	}
	if err = commit(tx); err != nil {
		return Event{}, err
	}

	if wasPublished && !evt.Publish {
		svc.notifyAutoUnpublished(ctx, evt, missing)
	}
	return evt, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteEventsByID(ctx, ids...)
}

// notifyAutoUnpublished emails the organizer that their event was demoted.
// Best effort: failures are logged, never propagated.
func (svc *Service) notifyAutoUnpublished(ctx context.Context, evt Event, missing []string) {
	if svc.mailSvc == nil || svc.organizers == nil || evt.OrganizerID == "" {
		return
	}
	addr, err := svc.organizers.GetOrganizerAddress(ctx, evt.OrganizerID)
	if err != nil {
		if svc.logger != nil {
			svc.logger.Warn(fmt.Sprintf("resolving organizer %s: %v", evt.OrganizerID, err), err)
		}
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{addr},
		Subject:      "Your event was unpublished: " + evt.Title,
		TemplateName: "event-auto-unpublished",
		TemplateData: struct {
			Title   string
			Format  string
			Reason  string
			Missing []string
			EventID string
		}{
			Title:   evt.Title,
			Format:  string(evt.Format),
			Reason:  evt.AutoUnpublishReason,
			Missing: missing,
			EventID: evt.ID,
		},
	})
}
