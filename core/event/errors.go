package event

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("event not found")

// UnsupportedFormatError is returned when an event's format is not one of the
// known formats; necessary fields cannot be determined for it.
type UnsupportedFormatError struct {
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported event format: %q", string(e.Format))
}

// MissingFieldsError rejects a publish request; Missing lists the blank
// necessary fields in matrix order.
type MissingFieldsError struct {
	Format  Format
	Missing []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("Missing necessary field(s) for publishing: %s.", strings.Join(e.Missing, ", "))
}
