// Package wrapper defines the envelope every panel API response is sent in.
package wrapper

import (
	"errors"
	"net/http"
)

type JSONResult struct {
	Code    int         `json:"-"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// StatusCoder is implemented by errors that know which HTTP status
// they should be reported with.
type StatusCoder interface {
	StatusCode() int
}

// ErrorStatus reports errors matching Err (via errors.Is) with Code.
type ErrorStatus struct {
	Err  error
	Code int
}

func ResponseSuccess(httpCode int, data interface{}) JSONResult {
	return JSONResult{
		Code:    httpCode,
		Success: true,
		Message: "Success",
		Data:    data,
	}
}

// ResponseFailed builds a failed result. data carries details such as
// per-field validation errors and may be nil.
func ResponseFailed(httpCode int, message string, data interface{}) JSONResult {
	return JSONResult{
		Code:    httpCode,
		Success: false,
		Message: message,
		Data:    data,
	}
}

// ResponseFromError builds a failed result for err. The first matching
// entry of statuses wins, then a StatusCoder in the chain, then 500.
func ResponseFromError(err error, statuses ...ErrorStatus) JSONResult {
	return ResponseFailed(StatusFromError(err, statuses...), err.Error(), nil)
}

func StatusFromError(err error, statuses ...ErrorStatus) int {
	for _, s := range statuses {
		if errors.Is(err, s.Err) {
			return s.Code
		}
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
