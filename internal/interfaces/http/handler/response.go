package handler

import "github.com/custdesk/backend/internal/interfaces/http/dto"

// APIResponse is the success envelope with a typed data field. Handlers
// write dto.Response; this type names the payload in godoc annotations and
// lets clients decode data without a second pass.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// ErrorResponse is the failure envelope
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}
