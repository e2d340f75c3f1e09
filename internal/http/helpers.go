package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"finance/internal/core"
	flog "finance/internal/log"
	"finance/internal/middleware/trace"
)

var errInvalidID = errors.New("invalid transaction id")

// parseID reads the {id} path segment. Ids are positive.
func parseID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// successMessage is the confirmation shown after adding a transaction.
func successMessage(typ core.TransactionType) string {
	return typ.String() + " added successfully!"
}

// writeServiceError maps a service error to a status code and logs
// anything that is not the caller's fault.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := flog.FromContext(r.Context()).With(flog.FieldRequestID, trace.GetRequestID(r.Context()))

	switch {
	case core.IsValidation(err):
		logger.DebugContext(r.Context(), "Request rejected", flog.FieldOperation, op, flog.FieldError, err)
		UnprocessableEntityError(core.UserMessage(err)).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(core.UserMessage(err)).Write(w)
	case core.IsStorage(err):
		logger.ErrorContext(r.Context(), "Storage failure", flog.FieldOperation, op, flog.FieldError, err)
		InternalServerError(core.UserMessage(err)).Write(w)
	default:
		logger.ErrorContext(r.Context(), "Unexpected error", flog.FieldOperation, op, flog.FieldError, err)
		InternalServerError(core.UserMessage(err)).Write(w)
	}
}
