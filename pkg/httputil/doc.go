// Package httputil provides the HTTP plumbing shared by controller clients.
//
// # Overview
//
//   - [Client]: JSON GET with default headers, a per-request timeout and
//     retry of transient failures
//   - [Retry]: retry with exponential backoff for errors wrapped in
//     [RetryableError]
//   - [StatusError]: a non-2xx response, kept so callers can classify it
//
// # Retry
//
// Only errors wrapped in [RetryableError] are retried; connection failures
// and 5xx responses are wrapped by [Client], 4xx responses are not:
//
//	err := httputil.Retry(ctx, 3, 200*time.Millisecond, func() error {
//	    return client.GetJSON(ctx, url, &v)
//	})
package httputil
