package ai

import "fmt"

// StatusError is a non-2xx reply from the completion endpoint. The body
// is truncated for logging.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion endpoint returned HTTP %d", e.Code)
}

// BadReplyError is a 2xx reply whose body does not contain a choice
// with message content. Retrying cannot fix a shape mismatch, so this
// error is never retried.
type BadReplyError struct {
	Body string
}

func (e *BadReplyError) Error() string {
	return "unexpected completion response shape"
}
