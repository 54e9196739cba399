package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/znetops/netmon/internal/config"
)

// Outcome is the raw result of a single reachability probe. Expected failure
// modes (unreachable host, timeout, DNS error) are reported as Success=false
// with a Reason, never as an error.
type Outcome struct {
	Name      string
	Host      string
	Timestamp time.Time
	Success   bool
	Latency   time.Duration
	Reason    string
}

// Prober performs a single reachability/latency check against one target.
type Prober interface {
	Probe(ctx context.Context) Outcome
}

// New returns the appropriate Prober for the given target configuration.
func New(target config.Target) (Prober, error) {
	switch target.Probe {
	case "ping":
		return newPingProber(target), nil
	case "icmp":
		return newICMPProber(target), nil
	case "tcp":
		return newTCPProber(target), nil
	case "http":
		return newHTTPProber(target), nil
	default:
		return nil, fmt.Errorf("unknown probe type %q", target.Probe)
	}
}
