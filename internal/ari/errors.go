package ari

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx response from the control server.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ari: %s %s returned %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 from the control server. A
// missing channel, bridge, playback or recording is expected during
// teardown and callers tolerate it.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
