package apperr

import (
	"github.com/tidwall/gjson"
)

// Classification is the user-presentable interpretation of a failure.
type Classification struct {
	Message        string
	IsNetworkError bool
	IsAuthError    bool
	Status         int
}

// FallbackMessage is the generic, user-safe message used when nothing
// better can be recovered. Raw technical messages are never shown.
const FallbackMessage = "Something went wrong. Please try again."

// CancelledMessage is used when a request was intentionally aborted.
const CancelledMessage = "The request was cancelled."

// NetworkMessage is used when no response was obtained at all.
const NetworkMessage = "Unable to reach the server. Check your connection."

// statusMessages maps common status codes to fixed user-facing messages,
// consulted when the error payload carries no usable message.
var statusMessages = map[int]string{
	400: "The request was invalid.",
	401: "You need to sign in to continue.",
	403: "You don't have permission to do that.",
	404: "The requested resource was not found.",
	408: "The request timed out. Please try again.",
	409: "This conflicts with the current state. Refresh and retry.",
	422: "Some of the submitted data was invalid.",
	429: "Too many requests. Please wait a moment.",
	500: "The server encountered an error.",
	502: "The server is temporarily unavailable.",
	503: "The service is temporarily unavailable.",
	504: "The server took too long to respond.",
}

// payloadPaths is the ordered chain of known error payload shapes probed
// for a message. First non-empty string wins.
var payloadPaths = []string{
	"message",
	"error",
	"error.message",
	"errors.0",
	"errors.0.message",
}

// messageFromPayload recovers a message from a structured error body.
// Unrecognized shapes fall through to empty.
func messageFromPayload(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range payloadPaths {
		if res := gjson.GetBytes(body, path); res.Type == gjson.String && res.Str != "" {
			return res.Str
		}
	}
	return ""
}

// Classify maps any raised error to a Classification. Rules are applied in
// priority order: structured HTTP error, network failure, cancellation,
// anything else with a message, generic fallback.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Message: FallbackMessage}
	}

	if he, ok := IsHTTPError(err); ok {
		c := Classification{Status: he.Status}
		c.IsAuthError = he.Status == 401 || he.Status == 403
		if msg := messageFromPayload(he.Body); msg != "" {
			c.Message = msg
		} else if msg, ok := statusMessages[he.Status]; ok {
			c.Message = msg
		} else {
			c.Message = FallbackMessage
		}
		return c
	}

	if IsNetworkError(err) {
		return Classification{Message: NetworkMessage, IsNetworkError: true}
	}

	if IsCancelled(err) {
		return Classification{Message: CancelledMessage}
	}

	if msg := err.Error(); msg != "" {
		return Classification{Message: msg}
	}
	return Classification{Message: FallbackMessage}
}
