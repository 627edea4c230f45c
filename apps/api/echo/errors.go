package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/atcloud/signup/core"
	"github.com/atcloud/signup/core/event"
	"github.com/atcloud/signup/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// Error codes surfaced on publish validation failures.
const (
	codeMissingRequiredFields = "MISSING_REQUIRED_FIELDS"
	codeMissing               = "MISSING"
	codeUnsupportedFormat     = "UNSUPPORTED_FORMAT"

	aggregateField = "__aggregate__"
)

type (
	publishFieldError struct {
		Field   string `json:"field"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}

	publishErrorResponse struct {
		Success bool                `json:"success"`
		Code    string              `json:"code"`
		Format  string              `json:"format,omitempty"`
		Missing []string            `json:"missing,omitempty"`
		Message string              `json:"message"`
		Errors  []publishFieldError `json:"errors,omitempty"`
	}
)

// newMissingFieldsResponse renders the publish validation contract: one entry
// per missing field (in matrix order) plus a trailing aggregate entry.
func newMissingFieldsResponse(err *event.MissingFieldsError) publishErrorResponse {
	fldErrs := make([]publishFieldError, 0, len(err.Missing)+1)
	for _, field := range err.Missing {
		fldErrs = append(fldErrs, publishFieldError{
			Field:   field,
			Code:    codeMissing,
			Message: fmt.Sprintf("%s is required to publish this %s event.", field, err.Format),
		})
	}
	fldErrs = append(fldErrs, publishFieldError{
		Field:   aggregateField,
		Code:    codeMissingRequiredFields,
		Message: err.Error(),
	})
	return publishErrorResponse{
		Success: false,
		Code:    codeMissingRequiredFields,
		Format:  string(err.Format),
		Missing: err.Missing,
		Message: err.Error(),
		Errors:  fldErrs,
	}
}

func newUnsupportedFormatResponse(err *event.UnsupportedFormatError) publishErrorResponse {
	return publishErrorResponse{
		Success: false,
		Code:    codeUnsupportedFormat,
		Format:  string(err.Format),
		Message: err.Error(),
	}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *event.MissingFieldsError:
			code = http.StatusUnprocessableEntity
			message = newMissingFieldsResponse(origErr)
		case *event.UnsupportedFormatError:
			code = http.StatusUnprocessableEntity
			message = newUnsupportedFormatResponse(origErr)
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if fldErrs := origErr.FieldMap(); fldErrs != nil {
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if cause := errors.Cause(err); cause == event.ErrNotFound || cause == user.ErrNotFound {
				code = http.StatusNotFound
				message = cause.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
