package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/znetops/netmon/internal/config"
)

type httpProber struct {
	target config.Target
	client *http.Client
}

func newHTTPProber(target config.Target) *httpProber {
	return &httpProber{
		target: target,
		client: &http.Client{Timeout: target.Timeout.Duration},
	}
}

func (p *httpProber) Probe(ctx context.Context) Outcome {
	start := time.Now()
	out := Outcome{
		Name:      p.target.Name,
		Host:      p.target.Host,
		Timestamp: start,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target.URL(), nil)
	if err != nil {
		out.Latency = time.Since(start)
		out.Reason = fmt.Sprintf("creating request: %v", err)
		return out
	}

	resp, err := p.client.Do(req)
	out.Latency = time.Since(start)
	if err != nil {
		out.Reason = err.Error()
		return out
	}
	resp.Body.Close()

	expected := p.target.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}
	if resp.StatusCode != expected {
		out.Reason = fmt.Sprintf("expected status %d, got %d", expected, resp.StatusCode)
		return out
	}

	out.Success = true
	return out
}
