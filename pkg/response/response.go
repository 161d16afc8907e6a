package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the error envelope shared by every endpoint.
type ErrorBody struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// StatusError is implemented by errors that know which HTTP status they map to.
type StatusError interface {
	error
	HTTPStatus() int
}

// publicMessenger errors replace the endpoint's generic message (e.g. "Authentication failed").
type publicMessenger interface {
	PublicMessage() string
}

// detailer errors carry a structured payload (typically the upstream response body).
type detailer interface {
	ErrorDetails() interface{}
}

// Success sends {"success": true}.
func Success(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// OK sends a 200 JSON response with data as-is.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Raw sends an already encoded JSON document with status 200.
func Raw(c *gin.Context, body []byte) {
	if len(body) == 0 {
		body = []byte("null")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, msg string, details interface{}) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: msg, Details: details})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, msg string, details interface{}) {
	c.JSON(http.StatusUnauthorized, ErrorBody{Error: msg, Details: details})
}

// Internal sends 500.
func Internal(c *gin.Context, msg string, details interface{}) {
	c.JSON(http.StatusInternalServerError, ErrorBody{Error: msg, Details: details})
}

// Error maps err to a status and writes the error envelope.
// Errors implementing StatusError choose the status, everything else is a 500.
// msg is the endpoint's message unless the error supplies its own public message.
func Error(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	var se StatusError
	if errors.As(err, &se) {
		status = se.HTTPStatus()
	}

	var pm publicMessenger
	if errors.As(err, &pm) && pm.PublicMessage() != "" {
		msg = pm.PublicMessage()
	}

	var details interface{} = err.Error()
	var d detailer
	if errors.As(err, &d) {
		details = d.ErrorDetails()
	}
	c.JSON(status, ErrorBody{Error: msg, Details: details})
}
