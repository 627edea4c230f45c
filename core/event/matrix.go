package event

// Wire names of the format-dependent fields.
const (
	FieldLocation  = "location"
	FieldZoomLink  = "zoomLink"
	FieldMeetingID = "meetingId"
	FieldPasscode  = "passcode"
)

// necessaryPublishFields maps each format to the fields that must be non-blank
// for an event of that format to be (or remain) published.
//
// The per-format order is the order missing fields are reported in; changing
// this table is a conscious, visible change (see the guard test).
var necessaryPublishFields = map[Format][]string{
	FormatOnline:   {FieldZoomLink, FieldMeetingID, FieldPasscode},
	FormatInPerson: {FieldLocation},
	FormatHybrid:   {FieldLocation, FieldZoomLink, FieldMeetingID, FieldPasscode},
}

// NecessaryFields returns the ordered field names that must be non-blank for
// an event of the given format to be published. Unknown formats are an error;
// they are never treated as "no required fields".
func NecessaryFields(f Format) ([]string, error) {
	fields, ok := necessaryPublishFields[f]
	if !ok {
		return nil, &UnsupportedFormatError{Format: f}
	}
	out := make([]string, len(fields))
	copy(out, fields)
	return out, nil
}
