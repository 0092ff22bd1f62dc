package interest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"zetta/internal/pkg/apiclient"
)

const (
	listPath    = "/admin/interests"
	approvePath = "/admin/interests/%s/approve"
)

// ApproveResult is the backend's answer to an approval.
type ApproveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client is the REST side of the interest feed.
type Client struct {
	api *apiclient.Client
	log *zap.Logger
}

func NewClient(api *apiclient.Client, log *zap.Logger) *Client {
	return &Client{api: api, log: log}
}

// List returns every interest known to the backend. Entries that fail
// normalization are skipped and logged.
func (c *Client) List(ctx context.Context) ([]Record, error) {
	var body struct {
		Interests []json.RawMessage `json:"interests"`
	}
	if err := c.api.Get(ctx, listPath, &body); err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}

	records := make([]Record, 0, len(body.Interests))
	for _, raw := range body.Interests {
		r, err := Normalize(raw)
		if err != nil {
			c.log.Warn("skipping malformed interest", zap.Error(err))
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// Approve asks the backend to accept the interest. A refusal comes back as
// an error whose text is the server's message. Transport and 5xx failures
// also match ErrBackendUnavailable.
func (c *Client) Approve(ctx context.Context, id string) (ApproveResult, error) {
	var res ApproveResult
	err := c.api.Post(ctx, fmt.Sprintf(approvePath, url.PathEscape(id)), nil, &res)
	if err != nil {
		var apiErr *apiclient.Error
		if !errors.As(err, &apiErr) {
			return ApproveResult{}, fmt.Errorf("%w: %w: %w", ErrApproveFailed, ErrBackendUnavailable, err)
		}
		if apiErr.StatusCode >= http.StatusInternalServerError {
			return ApproveResult{Message: apiErr.Message}, fmt.Errorf("%w: %w", ErrBackendUnavailable, apiErr)
		}
		if apiErr.Message != "" {
			return ApproveResult{Message: apiErr.Message}, apiErr
		}
		return ApproveResult{}, ErrApproveFailed
	}

	if !res.Success {
		if res.Message != "" {
			return res, &apiclient.Error{StatusCode: 200, Message: res.Message}
		}
		return res, ErrApproveFailed
	}
	return res, nil
}
