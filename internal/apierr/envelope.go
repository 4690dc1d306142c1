package apierr

import "time"

// Response is the envelope every API route answers with.
type Response struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp string    `json:"timestamp"`
}

func Success(data any, message string) Response {
	return Response{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: Timestamp(time.Now()),
	}
}

func Failure(e *APIError) Response {
	return Response{
		Success:   false,
		Error:     e,
		Timestamp: e.Timestamp,
	}
}
