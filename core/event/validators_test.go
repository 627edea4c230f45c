package event

import (
	"reflect"
	"testing"
)

func TestIsBlank(t *testing.T) {
	tests := []struct {
		name string
		val  string
		want bool
	}{
		{name: "empty", val: "", want: true},
		{name: "spaces only", val: "   ", want: true},
		{name: "tabs and newlines", val: "\t\n ", want: true},
		{name: "value", val: "Room 101", want: false},
		{name: "padded value", val: "  Room 101  ", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBlank(tt.val); got != tt.want {
				t.Errorf("IsBlank(%q) = %v, want %v", tt.val, got, tt.want)
			}
		})
	}
}

func TestMissingPublishFields(t *testing.T) {
	tests := []struct {
		name    string
		evt     Event
		want    []string
		wantErr bool
	}{
		{
			name: "Online complete",
			evt:  Event{Format: FormatOnline, ZoomLink: "https://zoom.us/j/1", MeetingID: "123", Passcode: "pw"},
			want: []string{},
		},
		{
			name: "Online missing meetingId only",
			evt:  Event{Format: FormatOnline, ZoomLink: "https://zoom.us/j/1", MeetingID: "", Passcode: "1234"},
			want: []string{FieldMeetingID},
		},
		{
			name: "Online all blank, matrix order",
			evt:  Event{Format: FormatOnline},
			want: []string{FieldZoomLink, FieldMeetingID, FieldPasscode},
		},
		{
			name: "Online whitespace counts as blank",
			evt:  Event{Format: FormatOnline, ZoomLink: "   ", MeetingID: "\t", Passcode: "ok"},
			want: []string{FieldZoomLink, FieldMeetingID},
		},
		{
			name: "In-person complete; online fields irrelevant",
			evt:  Event{Format: FormatInPerson, Location: "Main Hall"},
			want: []string{},
		},
		{
			name: "In-person missing location",
			evt:  Event{Format: FormatInPerson, ZoomLink: "https://zoom.us/j/1"},
			want: []string{FieldLocation},
		},
		{
			name: "Hybrid needs all four, matrix order",
			evt:  Event{Format: FormatHybrid, MeetingID: "123"},
			want: []string{FieldLocation, FieldZoomLink, FieldPasscode},
		},
		{
			name:    "unknown format is an error, not zero required fields",
			evt:     Event{Format: "Metaverse", Location: "x", ZoomLink: "x", MeetingID: "x", Passcode: "x"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MissingPublishFields(tt.evt)
			if tt.wantErr {
				if err == nil {
					t.Fatal("MissingPublishFields() expected an error")
				}
				if _, ok := err.(*UnsupportedFormatError); !ok {
					t.Errorf("MissingPublishFields() error = %T, want *UnsupportedFormatError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MissingPublishFields() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingPublishFields() = %v, want %v", got, tt.want)
			}
		})
	}
}

// the report order never depends on the order fields were blanked in
func TestMissingPublishFields_deterministicOrder(t *testing.T) {
	evt := Event{Format: FormatHybrid}
	want := []string{FieldLocation, FieldZoomLink, FieldMeetingID, FieldPasscode}

	for i := 0; i < 10; i++ {
		got, err := MissingPublishFields(evt)
		if err != nil {
			t.Fatalf("MissingPublishFields() error = %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("MissingPublishFields() = %v, want %v", got, want)
		}
	}
}
