package event

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/atcloud/signup/core"
)

var (
	eventFormatTag  = "eventformat"
	eventFormatText = "must be one of: Online, In-person, Hybrid Participation"
)

// IsBlank implements the blank rule: empty or whitespace-only counts as missing.
// (Absent JSON string fields decode to "", so null/undefined collapse into this rule.)
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// MissingPublishFields evaluates an event snapshot against its format's
// necessary-field matrix and returns the blank fields in matrix order.
// An empty result means the event is valid for publishing.
//
// Both the publish-request path and the auto-unpublish path go through this
// single function, so the two can never disagree about what "complete" means.
func MissingPublishFields(e Event) ([]string, error) {
	fields, err := NecessaryFields(e.Format)
	if err != nil {
		return nil, err
	}
	missing := make([]string, 0, len(fields))
	for _, name := range fields {
		if IsBlank(e.publishField(name)) {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// InitValidators registers the event domain's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(eventFormatTag, formatValidation)
	core.RegisterCustomTranslation(validate, translator, eventFormatTag, eventFormatText)
}

// formatValidation checks that a provided format is a known one.
func formatValidation(fl validator.FieldLevel) bool {
	return Format(fl.Field().String()).Known()
}
