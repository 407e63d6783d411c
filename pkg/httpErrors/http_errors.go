package httpErrors

import (
	"errors"
	"net/http"

	"github.com/amankumarsingh77/media-muxer/internal/models"
	"github.com/go-playground/validator/v10"
)

// ErrorBody is the JSON error envelope returned by every handler.
type ErrorBody struct {
	Error *models.JobError `json:"error"`
}

var statusByKind = map[models.ErrorKind]int{
	models.KindInvalidInput:   http.StatusBadRequest,
	models.KindNotFound:       http.StatusNotFound,
	models.KindInvalidState:   http.StatusConflict,
	models.KindProcessFailure: http.StatusInternalServerError,
	models.KindTimeout:        http.StatusGatewayTimeout,
	models.KindCancelled:      http.StatusConflict,
	models.KindStorageFailure: http.StatusInternalServerError,
}

// ParseErrors maps an error to an HTTP status and response body. Errors
// that carry no kind are reported as a generic 500.
func ParseErrors(err error) (int, ErrorBody) {
	var jobErr *models.JobError
	if errors.As(err, &jobErr) {
		status, ok := statusByKind[jobErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		return status, ErrorBody{Error: jobErr}
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, ErrorBody{Error: models.NewJobError(models.KindInvalidInput, "%s", validationErrs.Error())}
	}
	return http.StatusInternalServerError, ErrorBody{Error: &models.JobError{Kind: "Internal", Message: "internal server error"}}
}

// NewBadRequest builds the InvalidInput body used for undecodable payloads.
func NewBadRequest(message string) ErrorBody {
	return ErrorBody{Error: models.NewJobError(models.KindInvalidInput, "%s", message)}
}
