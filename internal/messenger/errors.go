package messenger

import "net/http"

// ValidationError is a request that cannot be processed as given.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

func (e *ValidationError) HTTPStatus() int           { return http.StatusBadRequest }
func (e *ValidationError) PublicMessage() string     { return e.Message }
func (e *ValidationError) ErrorDetails() interface{} { return nil }
