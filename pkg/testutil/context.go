package testutil

import (
	"net/http"
	"time"

	"fieldplot/pkg/requestcontext"
)

// WithDevice stamps device identity on the request context.
// This simulates what the device middleware would do for a trusted
// installation. Empty values are silently skipped.
func WithDevice(req *http.Request, deviceID, role string) *http.Request {
	ctx := req.Context()
	if deviceID != "" {
		ctx = requestcontext.WithDeviceID(ctx, deviceID)
	}
	if role != "" {
		ctx = requestcontext.WithDeviceRole(ctx, role)
	}
	return req.WithContext(ctx)
}

// WithRequestTime pins the request-scoped clock so assertions on derived
// timestamps (report dates, enrollment times) are deterministic.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
