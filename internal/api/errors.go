package api

// PermanentError means the server explicitly rejected the request (bad
// credentials, disabled capability). Callers must not retry; the engine
// invalidates the session or clears credentials.
type PermanentError struct {
	Message string
}

func (e *PermanentError) Error() string {
	return "api: " + e.Message
}

// TransientError covers everything retryable: network failures, empty or
// undecodable payloads, non-2xx statuses without a structured error. The
// engine retries after a backoff sleep.
type TransientError struct {
	Message string
	Cause   error
}

func (e *TransientError) Error() string {
	if e.Message != "" {
		return "api: " + e.Message
	}
	return "api: failed to talk to the server"
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}
