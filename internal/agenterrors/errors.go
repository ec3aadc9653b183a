// Package agenterrors defines the typed error kinds raised by the pipeline
// subsystems, replacing the teacher's string-classified EnhancedError with
// Go error types carrying a Kind and an Unwrap chain.
package agenterrors

import "fmt"

// Kind is the taxonomy of error surfaces raised across the pipeline, per
// the disposition table: each kind has a single RetryManager/runtime
// disposition, independent of the free-text message.
type Kind string

const (
	KindStorage       Kind = "StorageError"
	KindModelRouter   Kind = "ModelRouterError"
	KindCapability    Kind = "CapabilityError"
	KindNetwork       Kind = "NetworkError"
	KindRateLimit     Kind = "RateLimitError"
	KindData          Kind = "DataError"
	KindPermanent     Kind = "PermanentError"
	KindCancelled     Kind = "Cancelled"
	KindTimeout       Kind = "TimeoutError"
	KindWorkerLost    Kind = "WorkerLost"
)

// AgentError is the common typed error shape for every kind above. Backend
// clients that already know their failure's kind should construct one
// directly rather than relying on RetryManager's substring fallback.
type AgentError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *AgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AgentError) Unwrap() error { return e.Cause }

func newError(kind Kind, message string, cause error) *AgentError {
	return &AgentError{Kind: kind, Message: message, Cause: cause}
}

// Storage wraps a failure raised by ItemStore or StatsStore.
func Storage(message string, cause error) *AgentError { return newError(KindStorage, message, cause) }

// ModelRouterErr wraps a ModelRouter misconfiguration; it is fatal to run
// initialization.
func ModelRouterErr(message string, cause error) *AgentError {
	return newError(KindModelRouter, message, cause)
}

// Capability wraps a backend-lacks-required-capability failure; it aborts
// the run immediately.
func Capability(message string) *AgentError { return newError(KindCapability, message, nil) }

// Network wraps a connectivity/timeout failure from an AI or storage
// backend call; the RetryManager classifies it as NETWORK_ERROR.
func Network(message string, cause error) *AgentError { return newError(KindNetwork, message, cause) }

// RateLimit wraps a backend rate-limit rejection; the RetryManager
// classifies it as RATE_LIMIT and applies the 10x base delay.
func RateLimit(message string, cause error) *AgentError { return newError(KindRateLimit, message, cause) }

// Data wraps a parse/validation failure on backend response payloads.
func Data(message string, cause error) *AgentError { return newError(KindData, message, cause) }

// Permanent wraps a backend 404/deleted/suspended failure; never retried.
func Permanent(message string, cause error) *AgentError { return newError(KindPermanent, message, cause) }

// Cancelled wraps a cooperative-cancellation stop; item flags are left
// unchanged by the caller.
func Cancelled(message string) *AgentError { return newError(KindCancelled, message, nil) }

// Timeout wraps an AI-call or heartbeat timeout; mapped to NETWORK_ERROR by
// the RetryManager classifier.
func Timeout(message string, cause error) *AgentError { return newError(KindTimeout, message, cause) }

// WorkerLost wraps a heartbeat-expiry failure; the owning job transitions
// to FAILURE and is re-enqueueable if retry policy allows.
func WorkerLost(message string) *AgentError { return newError(KindWorkerLost, message, nil) }

// As reports whether err (or anything in its Unwrap chain) is an
// *AgentError of the given kind.
func As(err error, kind Kind) bool {
	var ae *AgentError
	for err != nil {
		if a, ok := err.(*AgentError); ok {
			ae = a
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ae != nil && ae.Kind == kind
}

// KindOf returns the Kind carried by err if it is (or wraps) an
// *AgentError, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if a, ok := err.(*AgentError); ok {
			return a.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return "", false
}
