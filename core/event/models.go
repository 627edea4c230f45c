package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/atcloud/signup/core"
)

// Format is the event's delivery mode; it drives which fields are necessary for publishing.
type Format string

const (
	FormatOnline   Format = "Online"
	FormatInPerson Format = "In-person"
	FormatHybrid   Format = "Hybrid Participation"
)

var AllFormats = []Format{FormatOnline, FormatInPerson, FormatHybrid}

// Known reports whether f is one of the supported formats.
func (f Format) Known() bool {
	_, ok := necessaryPublishFields[f]
	return ok
}

// AutoUnpublishReasonIncompleteFields is stamped on an event when an update
// leaves a published event without all of its format's necessary fields.
const AutoUnpublishReasonIncompleteFields = "REQUIRED_FIELDS_INCOMPLETE"

type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Format      Format `json:"format"`

	// format-dependent fields; necessary (non-blank) for publishing per NecessaryFields
	Location  string `json:"location,omitempty"`
	ZoomLink  string `json:"zoomLink,omitempty"`
	MeetingID string `json:"meetingId,omitempty"`
	Passcode  string `json:"passcode,omitempty"`

	Date        time.Time `json:"date"` // UTC
	OrganizerID string    `json:"organizerId,omitempty"`

	Publish             bool       `json:"publish"`
	PublishedAt         *time.Time `json:"publishedAt,omitempty"`         // UTC
	AutoUnpublishedAt   *time.Time `json:"autoUnpublishedAt,omitempty"`   // UTC
	AutoUnpublishReason string     `json:"autoUnpublishReason,omitempty"` // stable machine-readable code

	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

func (e Event) IsDraft() bool { return !e.Publish }

// IsAutoUnpublished distinguishes force-demoted drafts from plain drafts.
func (e Event) IsAutoUnpublished() bool { return !e.Publish && e.AutoUnpublishReason != "" }

// publishField returns the value of a necessary field by its wire name.
func (e Event) publishField(name string) string {
	switch name {
	case FieldLocation:
		return e.Location
	case FieldZoomLink:
		return e.ZoomLink
	case FieldMeetingID:
		return e.MeetingID
	case FieldPasscode:
		return e.Passcode
	}
	return ""
}

type NewEvent struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Format      Format    `json:"format" validate:"required,eventformat"`
	Location    string    `json:"location"`
	ZoomLink    string    `json:"zoomLink"`
	MeetingID   string    `json:"meetingId"`
	Passcode    string    `json:"passcode"`
	Date        time.Time `json:"date" validate:"required"`
}

func (ne *NewEvent) Clean() {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	// the format-dependent fields are kept as provided; the publish
	// validator treats whitespace-only values as blank anyway
}

func (ne NewEvent) Validate(validate *validator.Validate) error {
	return validate.Struct(ne)
}

// UpdateEvent carries a partial update; nil fields are left untouched.
type UpdateEvent struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Format      *Format    `json:"format" validate:"omitempty,eventformat"`
	Location    *string    `json:"location"`
	ZoomLink    *string    `json:"zoomLink"`
	MeetingID   *string    `json:"meetingId"`
	Passcode    *string    `json:"passcode"`
	Date        *time.Time `json:"date"`
}

func (ue UpdateEvent) Validate(validate *validator.Validate) error {
	return validate.Struct(ue)
}

// apply merges the proposed changes onto a working copy of evt.
func (ue UpdateEvent) apply(evt Event) Event {
	if ue.Title != nil {
		evt.Title = core.CleanString(*ue.Title)
	}
	if ue.Description != nil {
		evt.Description = core.CleanString(*ue.Description)
	}
	if ue.Format != nil {
		evt.Format = *ue.Format
	}
	if ue.Location != nil {
		evt.Location = *ue.Location
	}
	if ue.ZoomLink != nil {
		evt.ZoomLink = *ue.ZoomLink
	}
	if ue.MeetingID != nil {
		evt.MeetingID = *ue.MeetingID
	}
	if ue.Passcode != nil {
		evt.Passcode = *ue.Passcode
	}
	if ue.Date != nil {
		evt.Date = ue.Date.UTC()
	}
	return evt
}

type QueryFilter struct {
	Search    string    `query:"search"`
	Format    Format    `query:"format"`
	Published *bool     `query:"published"`
	DateFrom  time.Time `query:"date_from"`
	DateTo    time.Time `query:"date_to"`
}

func (f *QueryFilter) Clean() {
	f.Search = core.CleanString(f.Search)
}

func (f *QueryFilter) IsEmpty() bool {
	return f.Search == "" && f.Format == "" && f.Published == nil &&
		f.DateFrom.IsZero() && f.DateTo.IsZero()
}
