package connectivity

import (
	"context"
	"net/http"
	"time"
)

// Prober checks actual network reachability.
type Prober interface {
	Probe(ctx context.Context) bool
}

// HTTPProber issues a HEAD request against a well-known endpoint. Any
// response, including an HTTP error status, proves reachability; only
// transport failures count as offline.
type HTTPProber struct {
	url    string
	client *http.Client
}

func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProber{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProber) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}

	res, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	return true
}
