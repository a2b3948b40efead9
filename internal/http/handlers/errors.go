// Package handlers maps service error kinds to HTTP statuses and holds the
// transport-level messages used by the router.
//
//	ValidationError -> 400
//	ConflictError   -> 400
//	NotFoundError   -> 404
//	InProgressError -> 409
//	InternalError   -> 500
package handlers

import (
	"net/http"

	"github.com/tbourn/character-chat-backend/internal/services"
)

// Transport-level messages.
const (
	MsgInvalidJSON      = "Invalid JSON body"
	MsgRouteNotFound    = "Route not found"
	MsgMethodNotAllowed = "Method not allowed"
	MsgRateLimited      = "Too many requests"
	MsgBadIdempotency   = "Invalid Idempotency-Key"
)

func statusFor(k services.Kind) int {
	switch k {
	case services.KindValidation, services.KindConflict:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
