package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const requestTimeout = 30 * time.Second

// newHTTPClient returns a client that retries connection errors and 5xx/429
// responses and keeps cookies for the session.
func newHTTPClient(opts Options) *http.Client {
	if opts.HTTPClient != nil {
		return opts.HTTPClient
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.MaxRetries
	rc.RetryWaitMin = opts.RetryWaitMin
	rc.RetryWaitMax = 8 * opts.RetryWaitMin
	rc.Logger = opts.Logger
	rc.HTTPClient.Timeout = requestTimeout

	hc := rc.StandardClient()
	jar, _ := cookiejar.New(nil)
	hc.Jar = jar
	return hc
}

// doJSON sends req and decodes a JSON body into out. Bodies larger than
// maxBodyBytes are rejected.
func doJSON(client *http.Client, req *http.Request, out any) (int, error) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, &Error{Message: fmt.Sprintf("%s %s failed", req.Method, req.URL.Path), Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, &Error{Message: "failed to read response body", Cause: err}
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, &StatusError{URL: req.URL.Redacted(), StatusCode: resp.StatusCode}
	}
	if out == nil || len(body) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, &Error{Message: "invalid JSON response", Cause: err}
	}
	return resp.StatusCode, nil
}

const maxBodyBytes = 32 << 20

func newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &Error{Message: "failed to create request", Cause: err}
	}
	return req, nil
}
