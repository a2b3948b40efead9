// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response utilities used across all endpoints. Every
// non-2xx response carries the same envelope:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "error": "One or both characters not found",
//	  "details": {"character1_exists": true, "character2_exists": false, "missing": ["Bob"]},
//	  "status_code": 404,
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000"
//	}
//
// Conventions:
//   - Service failures go through failWith(), the single place where an error
//     kind becomes an HTTP status.
//   - fail() logs 5xx responses with the request-scoped logger.
//   - ok() writes success bodies.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/character-chat-backend/internal/http/middleware"
	"github.com/tbourn/character-chat-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Human-readable message (safe to show to users)
	Error string `json:"error" example:"Character already exists"`
	// Structured context, e.g. field-level validation messages
	Details map[string]any `json:"details"`
	// Mirrors the HTTP status
	StatusCode int `json:"status_code" example:"400"`
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, msg string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	resp := ErrorResponse{
		Error:      msg,
		Details:    details,
		StatusCode: status,
		RequestID:  c.Writer.Header().Get("X-Request-ID"),
	}

	// Log 5xx (server-side) with request-scoped logger
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("message", msg).
			Interface("details", details).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for router-level handlers
// (NoRoute, NoMethod, rate limiting).
func Fail(c *gin.Context, status int, msg string) { fail(c, status, msg, nil) }

// failWith translates a service error into the envelope.
func failWith(c *gin.Context, err error) {
	se := services.AsError(err)
	fail(c, statusFor(se.Kind), se.Message, se.Details)
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
