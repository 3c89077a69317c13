package finnhub

import "fmt"

// BadRequestError reports a missing or empty required parameter, or an
// unsupported request kind. Handlers map it to HTTP 400.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

func badRequestf(format string, args ...any) *BadRequestError {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

// UpstreamError reports a failed provider call: transport failure, non-2xx
// status, or an undecodable body. Handlers map it to HTTP 500.
type UpstreamError struct {
	Status int // 0 when the request never got a response
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("finnhub: upstream returned status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("finnhub: upstream request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
