package api

import (
	"errors"
	"net/http"

	"github.com/p-n-ai/pai-tracker/internal/progress"
)

const (
	msgToggleFailed  = "Failed to update progress. Please try again."
	msgFetchFailed   = "Failed to fetch questions. Please try again."
	msgSummaryFailed = "Failed to fetch profile data"
	msgExportFailed  = "Failed to export progress"
)

// statusFor maps the progress error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var re *progress.RemoteError
	switch {
	case errors.Is(err, progress.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, progress.ErrBusy), errors.Is(err, progress.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, progress.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &re):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the user-facing message for err. The authority's own
// message is passed through; everything unclassified gets fallback.
func messageFor(err error, fallback string) string {
	var re *progress.RemoteError
	switch {
	case errors.Is(err, progress.ErrNotFound):
		return err.Error()
	case errors.Is(err, progress.ErrBusy):
		return "This problem is still being saved. Please wait a moment."
	case errors.Is(err, progress.ErrConflict):
		return "Progress changed elsewhere. Please refresh and try again."
	case errors.As(err, &re) && re.Message != "":
		return re.Message
	default:
		return fallback
	}
}
