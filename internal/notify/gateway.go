// Package notify delivers push notifications through a multicast gateway and
// keeps the device registry clean of tokens the gateway reports as dead.
package notify

import "context"

// ErrorCode classifies a per-token delivery failure.
type ErrorCode string

const (
	CodeInvalidToken    ErrorCode = "messaging/invalid-registration-token"
	CodeNotRegistered   ErrorCode = "messaging/registration-token-not-registered"
	// CodeInvalidArgument is a rejected request. FCM reports payload problems
	// this way too, so it says nothing about the token.
	CodeInvalidArgument ErrorCode = "messaging/invalid-argument"
	CodeTransient       ErrorCode = "transient"
)

// Permanent reports whether the token will never be deliverable again.
func (c ErrorCode) Permanent() bool {
	return c == CodeInvalidToken || c == CodeNotRegistered
}

// Message is one multicast send.
type Message struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

// SendResult is the outcome for a single token.
type SendResult struct {
	Token   string
	Success bool
	Code    ErrorCode
	Err     error
}

// BatchResult holds the per-token outcomes of a multicast.
type BatchResult struct {
	Results []SendResult
}

// SuccessCount returns the number of delivered tokens.
func (b BatchResult) SuccessCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// FailureCount returns the number of failed tokens.
func (b BatchResult) FailureCount() int {
	return len(b.Results) - b.SuccessCount()
}

// Gateway sends a multicast and reports per-token outcomes. An error means the
// whole send failed and no per-token outcome is known.
type Gateway interface {
	SendMulticast(ctx context.Context, msg Message) (BatchResult, error)
}

// TokenStore removes dead tokens from whichever users hold them.
type TokenStore interface {
	ClearDeviceTokens(ctx context.Context, tokens []string) (int64, error)
}
