package agent

import (
	"strings"

	"outfitter/retry"
)

// Apologetic replies sent when processing fails. The guest gets one of
// these; the stored message keeps the raw error text for the operator.
const (
	failureReplyGeneric = "I apologize, but I encountered an error processing your message. " +
		"Please try again or contact support if the issue persists."
	failureReplyRateLimit  = "I'm currently experiencing high demand. Please try again in a few moments."
	failureReplyConnection = "I'm having trouble connecting to services. Please try again shortly."
)

// FailureReply picks the user-visible apology matching the error class.
func FailureReply(err error) string {
	if err == nil {
		return failureReplyGeneric
	}

	text := strings.ToLower(err.Error())

	switch {
	case strings.Contains(text, "rate limit"),
		strings.Contains(text, "rate_limit"),
		strings.Contains(text, "too many requests"),
		strings.Contains(text, "429"):
		return failureReplyRateLimit
	case retry.IsConnectionError(err),
		strings.Contains(text, "connection"),
		strings.Contains(text, "network"):
		return failureReplyConnection
	}

	return failureReplyGeneric
}
