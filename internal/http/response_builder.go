// Package http exposes the goal engine as a JSON API.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps engine errors onto HTTP status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"savings/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.payload)
}

// errorBody is the error payload of every failed request.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// ErrorResponse creates an error response with an explicit status.
func ErrorResponse(statusCode int, kind, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message, Kind: kind})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

// EngineError maps a goal engine error onto its HTTP status. Store failures
// keep their detail out of the response body.
func EngineError(err error) *JSONResponseBuilder {
	kind := core.ErrorKind(err)
	switch kind {
	case core.KindValidation:
		return ErrorResponse(http.StatusUnprocessableEntity, kind, err.Error())
	case core.KindUnauthenticated:
		return ErrorResponse(http.StatusUnauthorized, kind, "authentication required").
			Header("WWW-Authenticate", `Bearer realm="savings"`)
	case core.KindNotFound:
		return ErrorResponse(http.StatusNotFound, kind, core.ErrNotFound.Error())
	case core.KindStoreUnavailable:
		return ErrorResponse(http.StatusServiceUnavailable, kind, core.ErrStoreUnavailable.Error()).
			Header("Retry-After", "5")
	}
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return BadRequestError("malformed JSON body")
	}
	return ErrorResponse(http.StatusInternalServerError, kind, "internal error")
}
