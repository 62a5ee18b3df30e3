package flights

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"

	"github.com/kbukum/flightsearch/errors"
)

const serviceName = "flights api"

// classifyStatus converts a non-2xx response into an AppError. A body in
// the errors.ErrorResponse shape is decoded and kept; otherwise the status
// alone decides the code. Returns nil for 2xx.
func classifyStatus(status int, body []byte) *errors.AppError {
	if status >= 200 && status < 300 {
		return nil
	}
	var resp errors.ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error.Code != "" {
		return errors.FromResponse(resp.Error, status)
	}

	msg := fmt.Sprintf("HTTP %d", status)
	switch {
	case status == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, msg, status)
	case status == http.StatusTooManyRequests:
		return errors.RateLimited()
	case status == http.StatusServiceUnavailable:
		return errors.ServiceUnavailable(serviceName)
	case status >= 400 && status < 500:
		return errors.New(errors.ErrCodeInvalidInput, msg, status)
	default:
		return errors.ExternalServiceError(serviceName, stderrors.New(msg))
	}
}

// classifyTransport converts a failed round trip. Caller cancellation is
// returned as the context's error so it stays silent upstream.
func classifyTransport(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.Timeout(serviceName).WithCause(err)
	}
	return errors.ConnectionFailed(serviceName).WithCause(err)
}
