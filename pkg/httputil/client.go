package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/procflow/procflow/pkg/observability"
)

// DefaultTimeout bounds a single collaborator request. Image analysis is
// the slowest call we make; anything beyond this is treated as failed.
const DefaultTimeout = 60 * time.Second

// PostJSON sends in as a JSON body to url and decodes the response into
// out. Network failures and 5xx responses come back wrapped in
// [RetryableError]; 4xx responses do not, since retrying a rejected
// request cannot succeed.
func PostJSON(ctx context.Context, client *http.Client, url string, in, out any) error {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	host, path := req.URL.Host, req.URL.Path
	observability.HTTP().OnRequest(ctx, http.MethodPost, host, path)
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, http.MethodPost, host, path, err)
		return &RetryableError{Err: fmt.Errorf("request %s: %w", url, err)}
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, http.MethodPost, host, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 500 {
		return &RetryableError{Err: fmt.Errorf("request %s: status %d", url, resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RetryableError{Err: fmt.Errorf("read response: %w", err)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
