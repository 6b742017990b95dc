package remote

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/p-n-ai/pai-tracker/internal/progress"
)

// maxMessageLen caps a non-JSON error body used as a message.
const maxMessageLen = 200

// classify maps a non-2xx response onto the progress error taxonomy.
func classify(status int, body []byte) error {
	msg := errorMessage(status, body)
	switch status {
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", progress.ErrConflict, msg)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d: %s", progress.ErrRemoteUnavailable, status, msg)
	default:
		return &progress.RemoteError{Status: status, Message: msg}
	}
}

// errorMessage pulls the authority's "message" field out of an error body,
// falling back to the raw body or the status text.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		if m := gjson.GetBytes(body, "message"); m.Exists() && m.String() != "" {
			return m.String()
		}
		if m := gjson.GetBytes(body, "error"); m.Type == gjson.String && m.String() != "" {
			return m.String()
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" || strings.HasPrefix(text, "<") {
		return http.StatusText(status)
	}
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen]
	}
	return text
}

// invalidPayload reports a 2xx response the client could not accept.
func invalidPayload(status int, err error) error {
	return &progress.RemoteError{Status: status, Message: fmt.Sprintf("invalid payload: %v", err)}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", progress.ErrRemoteUnavailable, err)
}
