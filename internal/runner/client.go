package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Khan/genqlient/graphql"
)

// client posts editor text as-is. The body carries only the query, and a
// GraphQL response is decoded whatever the HTTP status, since servers
// commonly report syntax and validation errors with a 400.
type client struct {
	endpoint string
	doer     graphql.Doer
}

var _ graphql.Client = (*client)(nil)

type requestBody struct {
	Query string `json:"query"`
}

// HTTPError is returned for a non-200 response that carries no GraphQL errors
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("returned error %d: %s", e.StatusCode, e.Body)
}

func (c *client) MakeRequest(ctx context.Context, req *graphql.Request, resp *graphql.Response) error {
	body, err := json.Marshal(requestBody{Query: req.Query})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.doer.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	decodeErr := json.Unmarshal(raw, resp)
	if len(resp.Errors) > 0 {
		return resp.Errors
	}
	if httpResp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: httpResp.StatusCode, Body: string(raw)}
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	return nil
}
