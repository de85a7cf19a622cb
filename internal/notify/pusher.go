package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"messbook/internal/errs"
)

// HTTPPusher talks to the push delivery service over its JSON batch endpoint.
// The service takes a token list plus {title, body, link} and answers with a
// per-token success flag or failure code.
type HTTPPusher struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPPusher creates a pusher for the given endpoint.
func NewHTTPPusher(endpoint, apiKey string) *HTTPPusher {
	return &HTTPPusher{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type pushRequest struct {
	Tokens []string `json:"tokens"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Link   string   `json:"link"`
}

type pushResponse struct {
	Results []struct {
		Token string `json:"token"`
		Error string `json:"error,omitempty"`
	} `json:"results"`
}

// Send delivers the payload to every token in one batch call.
func (p *HTTPPusher) Send(ctx context.Context, tokens []string, payload Payload) ([]Result, error) {
	body, err := json.Marshal(pushRequest{
		Tokens: tokens,
		Title:  payload.Title,
		Body:   payload.Body,
		Link:   payload.Link,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &errs.ExternalServiceError{Service: "push", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &errs.ExternalServiceError{Service: "push", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var pr pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}

	results := make([]Result, len(pr.Results))
	for i, r := range pr.Results {
		results[i] = Result{Token: r.Token, Code: r.Error}
	}
	return results, nil
}
