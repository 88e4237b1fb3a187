package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHTTPProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	p := NewHTTPProber(srv.URL, time.Second)
	assert.True(t, p.Probe(context.Background()), "any HTTP response proves reachability")

	srv.Close()
	assert.False(t, p.Probe(context.Background()), "transport failure means offline")
}
