package clone

import (
	"encoding/json"
	"time"
)

// HTTPRequestTimeout is the default timeout for all HTTP requests to xMatters.
const HTTPRequestTimeout = 60 * time.Second

// DefaultMaxRetries is the number of additional attempts made after a 5xx or transport failure.
const DefaultMaxRetries = 2

// Response is the uniform result of a call to xMatters.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// IsValidStatusCode reports whether statusCode is a 2xx success.
func IsValidStatusCode(statusCode int) bool {
	return statusCode >= 200 && statusCode <= 299
}

// XMattersError is the error body xMatters returns, and the body synthesized
// for a call that failed before a response was received.
type XMattersError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
	Subcode string `json:"subcode"`
}

// exceptionResponse converts a failed send into a response the caller can inspect.
func exceptionResponse(funcName string, err error) Response {
	body, _ := json.Marshal(XMattersError{
		Code:    400,
		Message: err.Error(),
		Reason:  "Exception",
		Subcode: "Exception caught in " + funcName,
	})
	return Response{
		StatusCode: 400,
		Body:       string(body),
	}
}
