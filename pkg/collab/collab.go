// Package collab implements the clients for the external collaborator
// services: document/image analysis that extracts table rows from a
// process diagram, and AI enrichment that fills missing row columns.
//
// Both collaborators sit outside the rebuild loop. Their responses only
// ever produce table rows or column values, which re-enter the pipeline
// through the normal table-edit path; a failed call never partially
// merges anything.
package collab

import (
	"context"
	"encoding/base64"
	goerrors "errors"
	"net/http"
	"time"

	"github.com/procflow/procflow/pkg/errors"
	"github.com/procflow/procflow/pkg/httputil"
	"github.com/procflow/procflow/pkg/table"
)

// Client calls the collaborator endpoints.
type Client struct {
	// AnalyzeURL is the image-to-table endpoint.
	AnalyzeURL string
	// EnrichURL is the AI enrichment endpoint.
	EnrichURL string

	// HTTPClient defaults to a client with [httputil.DefaultTimeout].
	HTTPClient *http.Client

	// Attempts and RetryDelay tune the backoff. Zero values take the
	// defaults (3 attempts, 1 second initial delay).
	Attempts   int
	RetryDelay time.Duration
}

func (c *Client) retry(ctx context.Context, fn func() error) error {
	attempts := c.Attempts
	if attempts == 0 {
		attempts = 3
	}
	delay := c.RetryDelay
	if delay == 0 {
		delay = time.Second
	}
	return httputil.Retry(ctx, attempts, delay, fn)
}

// NewClient validates the endpoint URLs and returns a client.
func NewClient(analyzeURL, enrichURL string) (*Client, error) {
	if err := errors.ValidateEndpointURL(analyzeURL); err != nil {
		return nil, err
	}
	if err := errors.ValidateEndpointURL(enrichURL); err != nil {
		return nil, err
	}
	return &Client{AnalyzeURL: analyzeURL, EnrichURL: enrichURL}, nil
}

type analyzeRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"` // base64 image or document bytes
}

type analyzeResponse struct {
	Success    bool        `json:"success"`
	Workflow   []table.Row `json:"workflow"`
	StepsCount int         `json:"steps_count"`
}

// Analyze submits a process diagram image or document and returns the
// extracted table rows. Transient failures are retried with backoff.
func (c *Client) Analyze(ctx context.Context, filename string, content []byte) ([]table.Row, error) {
	req := analyzeRequest{
		Filename: filename,
		Content:  base64.StdEncoding.EncodeToString(content),
	}

	var resp analyzeResponse
	err := c.retry(ctx, func() error {
		resp = analyzeResponse{}
		return httputil.PostJSON(ctx, c.HTTPClient, c.AnalyzeURL, req, &resp)
	})
	if err != nil {
		return nil, classify(err, "image analysis failed")
	}
	if !resp.Success {
		return nil, errors.New(errors.ErrCodeCollaborator, "image analysis rejected the document")
	}
	return resp.Workflow, nil
}

type enrichRequest struct {
	Workflow []table.Row `json:"workflow"`
}

type enrichResponse struct {
	Success     bool               `json:"success"`
	Enrichments []table.Enrichment `json:"enrichments"`
}

// Enrich asks the AI collaborator to fill missing columns for the given
// rows and returns the merged result. Only empty columns are filled; the
// input rows are not mutated.
func (c *Client) Enrich(ctx context.Context, rows []table.Row) ([]table.Row, error) {
	var resp enrichResponse
	err := c.retry(ctx, func() error {
		resp = enrichResponse{}
		return httputil.PostJSON(ctx, c.HTTPClient, c.EnrichURL, enrichRequest{Workflow: rows}, &resp)
	})
	if err != nil {
		return nil, classify(err, "enrichment failed")
	}
	if !resp.Success {
		return nil, errors.New(errors.ErrCodeCollaborator, "enrichment rejected the table")
	}
	return table.Merge(rows, resp.Enrichments), nil
}

// classify maps transport failures onto the error taxonomy: context
// expiry means timeout, anything else from the wire is a network error.
func classify(err error, msg string) error {
	if goerrors.Is(err, context.DeadlineExceeded) || goerrors.Is(err, context.Canceled) {
		return errors.Wrap(errors.ErrCodeTimeout, err, "%s", msg)
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, "%s", msg)
}
