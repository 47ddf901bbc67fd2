// Package http provides the HTTP client used to fetch cover images.
//
// Every request carries a User-Agent header and is bounded by the client
// timeout (15 seconds by default). Failures are reported as *NetworkError so
// callers can tell timeouts and bad statuses apart:
//
//	client := http.NewClient(0)
//	data, err := client.Get(ctx, url)
//	var netErr *http.NetworkError
//	if errors.As(err, &netErr) && netErr.Timeout {
//	    // ...
//	}
package http
