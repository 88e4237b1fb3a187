package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openlearn/edusync/internal/model"
)

// HTTPClient talks to the backend over JSON/HTTP: POST /v1/{entity}/{action}
// for submits and GET /v1/pull for the bulk download. All calls are bounded
// by the client timeout; a micro circuit breaker sheds load from a flapping
// backend.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	br      *breaker
}

type HTTPClientOpts struct {
	Timeout       time.Duration
	APIKey        string
	FailThreshold int
	OpenFor       time.Duration
}

func NewHTTPClient(baseURL string, opts HTTPClientOpts) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  opts.APIKey,
		client:  &http.Client{Timeout: timeout},
		br:      newBreaker(opts.FailThreshold, opts.OpenFor),
	}
}

var _ API = (*HTTPClient)(nil)

func (c *HTTPClient) Submit(ctx context.Context, entityType model.EntityType, action model.Action, payload []byte) error {
	if !c.br.allow() {
		return fmt.Errorf("%w: circuit open", ErrUnavailable)
	}

	path := fmt.Sprintf("/v1/%s/%s", entityType, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.br.onFailure()
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		c.br.onFailure()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode/100 == 2:
		c.br.onSuccess()
		return nil
	case res.StatusCode/100 == 4:
		// the backend answered; only the request is bad
		c.br.onSuccess()
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &PermanentError{Status: res.StatusCode, Body: string(body)}
	default:
		c.br.onFailure()
		return fmt.Errorf("%w: path=%s status=%d", ErrUnavailable, path, res.StatusCode)
	}
}

type pullResponse struct {
	Records []model.Envelope `json:"records"`
}

func (c *HTTPClient) PullAll(ctx context.Context, entityTypes []model.EntityType) ([]model.Envelope, error) {
	if !c.br.allow() {
		return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
	}

	names := make([]string, 0, len(entityTypes))
	for _, t := range entityTypes {
		names = append(names, t.String())
	}

	url := c.baseURL + "/v1/pull?types=" + strings.Join(names, ",")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.br.onFailure()
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		c.br.onFailure()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		c.br.onFailure()
		return nil, fmt.Errorf("%w: pull status=%d", ErrUnavailable, res.StatusCode)
	}
	c.br.onSuccess()

	var pr pullResponse
	if err := json.NewDecoder(res.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode pull response: %w", err)
	}
	return pr.Records, nil
}
